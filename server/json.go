package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 64 << 10

	msgLogIn      = "please log in"
	msgTryAgain   = "something went wrong, try again"
	msgBadRequest = "invalid request"
	msgBadLogin   = "invalid email or password"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeKindError maps a classified error to one of the user-facing states.
// The error itself is only logged.
func writeKindError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	switch {
	case kind == apperrors.KindInvalidCredentials:
		writeJSONError(w, http.StatusUnauthorized, msgBadLogin)
	case kind.IsAuthFatal():
		writeJSONError(w, http.StatusUnauthorized, msgLogIn)
	case kind == apperrors.KindUpstreamUnavailable:
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("backend unavailable")
		writeJSONError(w, http.StatusBadGateway, msgTryAgain)
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, msgTryAgain)
	}
}

// relay writes a backend reply through to the browser.
func relay(w http.ResponseWriter, status int, body []byte) {
	if len(body) == 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == contentTypeJSON
}

func isFormPost(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func wantsJSON(r *http.Request) bool {
	if isJSONRequest(r) {
		return true
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Accept"))
	return mediaType == contentTypeJSON
}

// readBodyAsJSON returns the request body as JSON. HTML form posts are
// converted to a flat JSON object so pages can post to the same endpoints.
func readBodyAsJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if isJSONRequest(r) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if !json.Valid(data) {
			return nil, errors.New("body is not valid JSON")
		}
		return data, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}
	return json.Marshal(fields)
}
