package sessions

import (
	"context"
	"time"
)

// Repo stores complete session records keyed by Session.ID.
// Implementations must be safe for concurrent use. Every Upsert replaces the
// whole record, so concurrent refreshes can only race to a complete value.
type Repo interface {
	// Get returns the session or apperrors.ErrSessionNotFound when missing or expired.
	Get(ctx context.Context, sessionID string) (Session, error)

	// Upsert creates or replaces a session.
	Upsert(ctx context.Context, session Session) error

	// Delete removes a session. Missing sessions are not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions whose ExpiresAt is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}
