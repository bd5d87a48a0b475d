package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authservice "chanwatch/internal/service/auth"

	"github.com/golang-jwt/jwt/v5"
)

const dashboardPassword = "Tr0ub4dor&3-horse"

func newTokenHandler(secret []byte) http.HandlerFunc {
	svc := authservice.NewAuthService(NewSecretProvider(dashboardPassword))
	return TokenHandler(svc, secret)
}

func postToken(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTokenHandler_Success(t *testing.T) {
	rr := postToken(newTokenHandler(testSecret), `{"password":"`+dashboardPassword+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return testSecret, nil })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("sub = %q, want dashboard", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("role = %q, want %q", claims.Role, RoleAdmin)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != TokenTTL {
		t.Errorf("ttl = %v, want %v", ttl, TokenTTL)
	}
	if !resp.ExpiresAt.Equal(claims.ExpiresAt.Time) {
		t.Errorf("expires_at = %v, want %v", resp.ExpiresAt, claims.ExpiresAt.Time)
	}
}

func TestTokenHandler_IssuedTokenPassesAuthz(t *testing.T) {
	rr := postToken(newTokenHandler(testSecret), `{"password":"`+dashboardPassword+`"}`)
	var resp tokenResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)

	got := doRequest(AuthzWithSecret(testSecret, successHandler(t)), "GET", "/channels", resp.Token)
	if got.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", got.Code)
	}
}

func TestTokenHandler_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"wrong password", `{"password":"nope-nope-nope"}`, http.StatusUnauthorized},
		{"empty password", `{"password":""}`, http.StatusUnauthorized},
		{"missing field", `{}`, http.StatusUnauthorized},
		{"invalid json", `{"password":`, http.StatusBadRequest},
	}

	h := newTokenHandler(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postToken(h, tt.body)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if strings.Contains(rr.Body.String(), "token\"") {
				t.Errorf("token leaked on failure: %s", rr.Body.String())
			}
		})
	}
}

func TestTokenHandler_MissingSigningKey(t *testing.T) {
	rr := postToken(newTokenHandler(nil), `{"password":"`+dashboardPassword+`"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

type failingProvider struct{}

func (failingProvider) ValidateCredentials(context.Context, authservice.Credentials) error {
	return errors.New("backend down")
}
func (failingProvider) Name() string { return "failing" }

func TestTokenHandler_ProviderError(t *testing.T) {
	h := TokenHandler(authservice.NewAuthService(failingProvider{}), testSecret)
	if rr := postToken(h, `{"password":"anything-at-all"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestIssueToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, exp, err := IssueToken(testSecret, "dashboard", now, TokenTTL)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if !exp.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("exp = %v", exp)
	}
	if strings.Count(tok, ".") != 2 {
		t.Errorf("not a compact JWS: %q", tok)
	}

	if _, _, err := IssueToken(nil, "dashboard", now, TokenTTL); err == nil {
		t.Error("expected error without signing key")
	}
}
