package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for storing user claims.
	UserContextKey contextKey = "user"
)

// UserClaims represents the JWT claims on operator tokens.
type UserClaims struct {
	jwt.RegisteredClaims
	Callsign string `json:"callsign"`
	Role     string `json:"role"`
}

// AuthMiddleware validates HMAC-signed bearer tokens. An empty secret
// disables authentication and the middleware passes every request through.
type AuthMiddleware struct {
	secret []byte
	issuer string
	log    zerolog.Logger
}

// NewAuthMiddleware creates the bearer-token middleware from config.
func NewAuthMiddleware(cfg config.AuthConfig, log zerolog.Logger) *AuthMiddleware {
	if cfg.JWTSecret == "" {
		log.Info().Msg("auth disabled, no JWT secret configured")
		return &AuthMiddleware{log: log}
	}
	log.Info().Str("issuer", cfg.Issuer).Msg("JWT authentication middleware initialized")
	return &AuthMiddleware{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		log:    log,
	}
}

// Enabled reports whether bearer tokens are enforced.
func (a *AuthMiddleware) Enabled() bool {
	return len(a.secret) > 0
}

// Middleware returns an HTTP middleware that validates JWT tokens.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, err := a.extractAndValidateToken(r)
		if err != nil {
			a.log.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(*UserClaims)
		if !ok {
			a.log.Debug().Msg("failed to extract claims from token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAndValidateToken extracts and validates the JWT from the Authorization header.
func (a *AuthMiddleware) extractAndValidateToken(r *http.Request) (*jwt.Token, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("invalid Authorization header format")
	}

	token, err := jwt.ParseWithClaims(parts[1], &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(a.issuer),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return token, nil
}
