package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chanwatch/internal/handler/http/requestid"
	"chanwatch/internal/handler/http/respond"
	authservice "chanwatch/internal/service/auth"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a dashboard token stays valid.
const TokenTTL = 24 * time.Hour

// dashboardSubject is the sub claim of every dashboard token; there is a
// single shared login.
const dashboardSubject = "dashboard"

type loginRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken signs a dashboard token for subject valid until now+ttl.
func IssueToken(secret []byte, subject string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("no signing key configured")
	}
	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// TokenHandler exchanges the dashboard password for a token.
//
//	POST /auth/token {"password": "..."} -> 200 {"token": "...", "expires_at": "..."}
func TokenHandler(authService *authservice.AuthService, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := slog.With(slog.String("request_id", requestid.FromContext(r.Context())))

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RecordAuthRequest("failure", time.Since(start).Seconds())
			respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}

		if err := authService.ValidateCredentials(r.Context(), authservice.Credentials{Password: req.Password}); err != nil {
			logger.Warn("authentication failed",
				slog.String("provider", authService.GetProvider().Name()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			RecordAuthRequest("failure", time.Since(start).Seconds())
			respond.SafeError(w, http.StatusUnauthorized, errors.New("invalid password"))
			return
		}

		signed, exp, err := IssueToken(secret, dashboardSubject, time.Now(), TokenTTL)
		if err != nil {
			logger.Error("token generation failed", slog.Any("error", err))
			RecordAuthRequest("error", time.Since(start).Seconds())
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}

		logger.Info("authentication successful",
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		RecordAuthRequest("success", time.Since(start).Seconds())
		respond.JSON(w, http.StatusOK, tokenResponse{Token: signed, ExpiresAt: exp.UTC()})
	}
}
