package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// TokenStore tracks registered devices and issued refresh tokens.
type TokenStore interface {
	UpsertDevice(ctx context.Context, deviceID string) error
	SaveRefreshToken(ctx context.Context, subject, token string, expiresAt time.Time) error
	// RevokeRefreshToken marks token revoked and reports whether it was
	// active (known, unrevoked, unexpired) before the call.
	RevokeRefreshToken(ctx context.Context, token string, now time.Time) (bool, error)
}

// PGTokenStore keeps devices and refresh tokens in Postgres.
type PGTokenStore struct {
	db *sql.DB
}

// NewPGTokenStore creates a store.
func NewPGTokenStore(db *sql.DB) *PGTokenStore {
	return &PGTokenStore{db: db}
}

// UpsertDevice ensures a device record exists.
func (s *PGTokenStore) UpsertDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.New("device id required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (device_id)
		VALUES ($1)
		ON CONFLICT (device_id) DO NOTHING
	`, deviceID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (s *PGTokenStore) SaveRefreshToken(ctx context.Context, subject, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, subject, expires_at)
		VALUES ($1, $2, $3)
	`, token, subject, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked in a single statement, so two
// concurrent refreshes cannot both succeed.
func (s *PGTokenStore) RevokeRefreshToken(ctx context.Context, token string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND NOT revoked AND expires_at > $2
	`, token, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MemTokenStore is the in-process TokenStore used with the memory backend.
type MemTokenStore struct {
	mu      sync.Mutex
	devices map[string]bool
	tokens  map[string]memToken
}

type memToken struct {
	expiresAt time.Time
	revoked   bool
}

// NewMemTokenStore creates an empty store.
func NewMemTokenStore() *MemTokenStore {
	return &MemTokenStore{devices: map[string]bool{}, tokens: map[string]memToken{}}
}

func (s *MemTokenStore) UpsertDevice(_ context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.New("device id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID] = true
	return nil
}

func (s *MemTokenStore) SaveRefreshToken(_ context.Context, _ string, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memToken{expiresAt: expiresAt}
	return nil
}

func (s *MemTokenStore) RevokeRefreshToken(_ context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.revoked || !t.expiresAt.After(now) {
		return false, nil
	}
	t.revoked = true
	s.tokens[token] = t
	return true, nil
}
