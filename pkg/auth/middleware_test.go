package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/testutil"
	"github.com/Tatenda/fullstori/pkg/apperror"
)

const testSecret = "test-secret"

func newTestEcho(auth config.AuthConfig) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(testutil.Logger())
	m := NewMiddleware(&config.Config{Auth: auth}, testutil.Logger())

	g := e.Group("/api", m.RequireAuth())
	g.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetPrincipal(c))
	})
	return e
}

func do(e *echo.Echo, setup func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := SignToken(claims, testSecret)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth_OpenWhenUnconfigured(t *testing.T) {
	rec := do(newTestEcho(config.AuthConfig{}), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"method":"anonymous"`)
}

func TestRequireAuth_APIKey(t *testing.T) {
	e := newTestEcho(config.AuthConfig{APIKey: "k-123"})

	t.Run("valid key", func(t *testing.T) {
		rec := do(e, func(r *http.Request) { r.Header.Set(APIKeyHeader, "k-123") })
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"method":"api_key"`)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := do(e, func(r *http.Request) { r.Header.Set(APIKeyHeader, "nope") })
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_token")
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := do(e, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")
	})
}

func TestRequireAuth_JWT(t *testing.T) {
	e := newTestEcho(config.AuthConfig{JWTSecret: testSecret, JWTIssuer: "fullstori"})
	valid := jwt.MapClaims{
		"sub": "investigator-7",
		"iss": "fullstori",
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{
			name:   "bearer header",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signed(t, valid)) },
			status: http.StatusOK,
		},
		{
			name: "query token",
			setup: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("token", signed(t, valid))
				r.URL.RawQuery = q.Encode()
			},
			status: http.StatusOK,
		},
		{
			name: "expired",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{
					"sub": "x", "iss": "fullstori", "exp": time.Now().Add(-time.Minute).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong issuer",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{
					"sub": "x", "iss": "other", "exp": time.Now().Add(time.Hour).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") },
			status: http.StatusUnauthorized,
		},
		{
			name:   "basic auth ignored",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.setup)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "x", "exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(s, testSecret, "")
	assert.Error(t, err)
}
