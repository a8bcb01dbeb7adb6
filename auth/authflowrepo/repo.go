package authflowrepo

import (
	"context"
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("state not found")

// AuthFlowState is what the server remembers between redirecting a browser to
// Google and receiving the callback.
type AuthFlowState struct {
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	ReturnURL    string    `json:"return_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repo interface {
	Upsert(ctx context.Context, state string, authState *AuthFlowState) error
	// Take returns the state and removes it so it can only be used once.
	// States older than the repo's TTL are reported as ErrStateNotFound.
	Take(ctx context.Context, state string) (*AuthFlowState, error)
	Delete(ctx context.Context, state string) error
}
