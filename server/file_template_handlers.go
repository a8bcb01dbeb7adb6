package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	contentTypeHTML = "text/html; charset=utf-8"
	partialsFile    = "partials.html"
)

var pageTemplates = []string{
	"login.html",
	"page.html",
	"home.html",
	"profile.html",
	"forgot_password.html",
	"reset_password.html",
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared partials
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(TemplateFilesFS(), name, partialsFile)
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, err
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// PageData is the common data every page template receives.
type PageData struct {
	AppName       string
	Title         string
	Body          string
	User          *sessions.UserProfile
	Error         string
	Message       string
	Email         string
	Redirect      string
	Token         string
	GoogleEnabled bool
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data PageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "something went wrong, try again", http.StatusInternalServerError)
		return
	}

	data.AppName = s.config.GetAppName()
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "something went wrong, try again", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
