package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"chanwatch/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role dashboard tokens carry.
const RoleAdmin = "admin"

type ctxKey string

const ctxUser ctxKey = "user"

var errMissingToken = errors.New("missing bearer token")

// Claims are the JWT claims of a dashboard token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authz requires a valid dashboard token on every non-public endpoint,
// regardless of method. The signing key is read from JWT_SECRET when the
// middleware is built.
func Authz(next http.Handler) http.Handler {
	return AuthzWithSecret([]byte(os.Getenv("JWT_SECRET")), next)
}

// AuthzWithSecret is Authz with an explicit signing key.
func AuthzWithSecret(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := validateJWT(r.Header.Get("Authorization"), secret)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, errMissingToken) {
				reason = "missing_token"
			}
			RecordDenied(reason)
			w.Header().Set("WWW-Authenticate", `Bearer realm="chanwatch"`)
			respond.SafeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		if claims.Role != RoleAdmin {
			RecordDenied("forbidden")
			respond.Message(w, http.StatusForbidden, "forbidden")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the token subject stored by Authz.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUser).(string); ok {
		return v
	}
	return ""
}

func validateJWT(authz string, secret []byte) (*Claims, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return nil, errMissingToken
	}
	if len(secret) == 0 {
		return nil, errors.New("no signing key configured")
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(strings.TrimPrefix(authz, prefix), claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid sub claim")
	}
	return claims, nil
}
