// Package auth authenticates API callers with a static API key or HS256 bearer tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
)

var Module = fx.Module("auth",
	fx.Provide(NewMiddleware),
)

// APIKeyHeader carries the static API key.
const APIKeyHeader = "X-API-Key"

// Principal identifies the caller of a request.
type Principal struct {
	Subject string `json:"sub"`
	Method  string `json:"method"` // "api_key", "jwt" or "anonymous"
}

type contextKey string

const principalContextKey contextKey = "auth_principal"

// GetPrincipal returns the authenticated caller, or nil outside RequireAuth.
func GetPrincipal(c echo.Context) *Principal {
	if p, ok := c.Get(string(principalContextKey)).(*Principal); ok {
		return p
	}
	return nil
}

// Middleware validates credentials on /api routes.
type Middleware struct {
	cfg config.AuthConfig
	log *slog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(cfg *config.Config, log *slog.Logger) *Middleware {
	m := &Middleware{
		cfg: cfg.Auth,
		log: log.With(logger.Scope("auth")),
	}
	if !m.cfg.Enabled() {
		m.log.Warn("authentication disabled - API is open")
	}
	return m
}

// RequireAuth returns middleware that requires authentication when configured.
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := m.authenticate(c.Request())
			if err != nil {
				m.log.Warn("authentication failed",
					slog.String("path", c.Request().URL.Path),
					logger.Error(err),
				)
				return err
			}
			c.Set(string(principalContextKey), p)
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(r *http.Request) (*Principal, error) {
	if !m.cfg.Enabled() {
		return &Principal{Subject: "anonymous", Method: "anonymous"}, nil
	}

	if key := r.Header.Get(APIKeyHeader); key != "" && m.cfg.APIKey != "" {
		if subtle.ConstantTimeCompare([]byte(key), []byte(m.cfg.APIKey)) == 1 {
			return &Principal{Subject: "api-key", Method: "api_key"}, nil
		}
		return nil, apperror.ErrInvalidToken.WithMessage("invalid API key")
	}

	token := extractToken(r)
	if token == "" {
		return nil, apperror.ErrUnauthorized
	}
	if m.cfg.JWTSecret == "" {
		return nil, apperror.ErrInvalidToken
	}

	claims, err := ParseToken(token, m.cfg.JWTSecret, m.cfg.JWTIssuer)
	if err != nil {
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}

	sub, _ := claims.GetSubject()
	return &Principal{Subject: sub, Method: "jwt"}, nil
}

// extractToken reads the bearer token, falling back to ?token= for EventSource clients.
func extractToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// ParseToken verifies an HS256 token and its issuer when one is expected.
func ParseToken(token, secret, issuer string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// SignToken issues an HS256 token. Used by the CLI and tests.
func SignToken(claims jwt.Claims, secret string) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
