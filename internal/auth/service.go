package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Service issues tokens to the front-desk admin and to reader devices.
type Service struct {
	signer        Signer
	store         TokenStore
	adminUsername string
	adminHash     string
}

// NewService creates a service. An empty adminHash disables admin login.
func NewService(signer Signer, store TokenStore, adminUsername, adminHash string) *Service {
	return &Service{signer: signer, store: store, adminUsername: adminUsername, adminHash: adminHash}
}

// Signer returns the token signer used by the middleware.
func (s *Service) Signer() Signer { return s.signer }

// Login checks admin credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	if s.adminHash == "" || username != s.adminUsername {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, username, RoleAdmin)
}

// RegisterDevice records a reader device and issues it a token pair.
func (s *Service) RegisterDevice(ctx context.Context, deviceID string) (TokenPair, error) {
	deviceID = strings.TrimSpace(deviceID)
	if err := s.store.UpsertDevice(ctx, deviceID); err != nil {
		return TokenPair{}, fmt.Errorf("register device: %w", err)
	}
	return s.issue(ctx, deviceID, RoleDevice)
}

// Refresh revokes a refresh token and issues a new pair for its subject.
// Each refresh token can be used once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.signer.Parse(refreshToken)
	if err != nil || !claims.Refresh {
		return TokenPair{}, ErrInvalidToken
	}
	ok, err := s.store.RevokeRefreshToken(ctx, refreshToken, time.Now())
	if err != nil {
		return TokenPair{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !ok {
		return TokenPair{}, ErrInvalidToken
	}
	return s.issue(ctx, claims.Subject, claims.Role)
}

func (s *Service) issue(ctx context.Context, subject, role string) (TokenPair, error) {
	tokens, err := s.signer.Issue(subject, role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("token issue failed: %w", err)
	}
	if err := s.store.SaveRefreshToken(ctx, subject, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		return TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return tokens, nil
}
