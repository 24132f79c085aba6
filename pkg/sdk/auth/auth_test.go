package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serverauth "github.com/Tatenda/fullstori/pkg/auth"
)

func TestAPIKeyProvider_Authenticate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/graphs", nil)
	require.NoError(t, NewAPIKeyProvider("secret-key").Authenticate(req))

	assert.Equal(t, "secret-key", req.Header.Get("X-API-Key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestBearerProvider_Authenticate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/graphs", nil)
	require.NoError(t, NewBearerProvider("tok").Authenticate(req))

	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.NoError(t, NewBearerProvider("tok").Refresh(context.Background()))
}

func TestNoneProvider(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/graphs", nil)
	require.NoError(t, NoneProvider{}.Authenticate(req))
	assert.Empty(t, req.Header)
}

func TestNewJWTProvider_Validation(t *testing.T) {
	_, err := NewJWTProvider("", "fullstori", "svc", 0)
	assert.Error(t, err)

	_, err = NewJWTProvider("secret", "fullstori", "", 0)
	assert.Error(t, err)

	p, err := NewJWTProvider("secret", "", "svc", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, p.ttl)
}

func TestJWTProvider_TokenVerifiesOnServer(t *testing.T) {
	p, err := NewJWTProvider("shared-secret", "fullstori", "importer", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/graphs", nil)
	require.NoError(t, p.Authenticate(req))

	header := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))

	claims, err := serverauth.ParseToken(strings.TrimPrefix(header, "Bearer "), "shared-secret", "fullstori")
	require.NoError(t, err)
	sub, _ := claims.GetSubject()
	assert.Equal(t, "importer", sub)

	_, err = serverauth.ParseToken(strings.TrimPrefix(header, "Bearer "), "other-secret", "fullstori")
	assert.Error(t, err)
}

func TestJWTProvider_ReusesUntilNearExpiry(t *testing.T) {
	p, err := NewJWTProvider("secret", "", "svc", 10*time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	first, err := p.current()
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	second, err := p.current()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(4*time.Minute + 30*time.Second)
	third, err := p.current()
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "token inside the refresh margin is replaced")

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, now.Add(10*time.Minute), p.expires)
}
