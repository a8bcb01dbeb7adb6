package sessions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltRepo is a single-node persistent Repo backed by a BBolt file.
// Records are sealed with a Codec.
type BoltRepo struct {
	db    *bbolt.DB
	codec *Codec
}

var _ Repo = (*BoltRepo)(nil)

// NewBoltRepoFromFile opens (or creates) the BBolt database at path.
func NewBoltRepoFromFile(path string, codec *Codec) (*BoltRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	return &BoltRepo{db: db, codec: codec}, nil
}

func (r *BoltRepo) Get(_ context.Context, sessionID string) (Session, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(sessionsBucket).Get([]byte(sessionID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("[BoltRepo Get] %w", err)
	}
	if data == nil {
		return Session{}, apperrors.ErrSessionNotFound
	}

	s, err := r.codec.Open(data)
	if err != nil {
		return Session{}, fmt.Errorf("[BoltRepo Get] %w", err)
	}
	if s.IsExpired(time.Now()) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	return s, nil
}

func (r *BoltRepo) Upsert(_ context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	data, err := r.codec.Seal(session)
	if err != nil {
		return fmt.Errorf("[BoltRepo Upsert] %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(session.ID), data)
	})
}

func (r *BoltRepo) Delete(_ context.Context, sessionID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(sessionID))
	})
}

// DeleteExpired removes expired records and records that can no longer be opened
// (for example after a session secret rotation).
func (r *BoltRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	deleted := 0
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			s, err := r.codec.Open(v)
			if err != nil || s.IsExpired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("[BoltRepo DeleteExpired] %w", err)
	}
	return deleted, nil
}

func (r *BoltRepo) Close() error {
	return r.db.Close()
}
