package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	authservice "chanwatch/internal/service/auth"
)

// SecretProvider accepts exactly one shared dashboard password
// (WEB_UI_SECRET).
type SecretProvider struct {
	digest [sha256.Size]byte
}

// NewSecretProvider creates a provider for secret.
func NewSecretProvider(secret string) *SecretProvider {
	return &SecretProvider{digest: sha256.Sum256([]byte(secret))}
}

// ValidateCredentials compares digests in constant time so neither the
// content nor the length of the secret leaks through timing.
func (p *SecretProvider) ValidateCredentials(_ context.Context, creds authservice.Credentials) error {
	if creds.Password == "" {
		return errors.New("password is required")
	}
	got := sha256.Sum256([]byte(creds.Password))
	if subtle.ConstantTimeCompare(got[:], p.digest[:]) != 1 {
		return authservice.ErrInvalidCredentials
	}
	return nil
}

// Name returns the provider name.
func (p *SecretProvider) Name() string {
	return "web_ui_secret"
}
