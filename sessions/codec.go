package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize     = 24
	codecKeyLabel = "reminder-bff session store v1"
)

var errSealedSessionInvalid = errors.New("sealed session failed authentication")

// Codec seals session records before they reach an external store so refresh
// tokens are never persisted in plaintext.
type Codec struct {
	key [32]byte
}

// NewCodec derives the store encryption key from the session secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}

	c := &Codec{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(codecKeyLabel))
	if _, err := io.ReadFull(kdf, c.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive session store key: %w", err)
	}
	return c, nil
}

// Seal encodes and encrypts a session. Output is nonce || secretbox.
func (c *Codec) Seal(s Session) ([]byte, error) {
	plain, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &c.key), nil
}

// Open decrypts and decodes a sealed session.
func (c *Codec) Open(data []byte) (Session, error) {
	if len(data) < nonceSize+secretbox.Overhead {
		return Session{}, errSealedSessionInvalid
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &c.key)
	if !ok {
		return Session{}, errSealedSessionInvalid
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return s, nil
}
