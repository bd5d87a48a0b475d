// Package auth holds dashboard authentication logic independent of the
// HTTP layer.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned when a login attempt does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is what a dashboard login submits.
type Credentials struct {
	Password string
}

// AuthProvider validates credentials against one backing mechanism.
type AuthProvider interface {
	ValidateCredentials(ctx context.Context, creds Credentials) error
	Name() string
}

// AuthService validates dashboard logins through its provider.
type AuthService struct {
	provider AuthProvider
}

// NewAuthService creates a new authentication service.
func NewAuthService(provider AuthProvider) *AuthService {
	return &AuthService{provider: provider}
}

// ValidateCredentials validates creds via the configured provider. A
// cancelled context fails the attempt.
func (s *AuthService) ValidateCredentials(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.provider.ValidateCredentials(ctx, creds)
}

// GetProvider returns the current authentication provider.
func (s *AuthService) GetProvider() AuthProvider {
	return s.provider
}
