package auth

import (
	"context"
	"net/http"
)

// APIKeyHeader carries the server's static API key.
const APIKeyHeader = "X-API-Key"

// APIKeyProvider implements Provider for the static API key.
type APIKeyProvider struct {
	apiKey string
}

// NewAPIKeyProvider creates a new API key authentication provider.
func NewAPIKeyProvider(apiKey string) *APIKeyProvider {
	return &APIKeyProvider{apiKey: apiKey}
}

// Authenticate adds the X-API-Key header to the request.
func (p *APIKeyProvider) Authenticate(req *http.Request) error {
	req.Header.Set(APIKeyHeader, p.apiKey)
	return nil
}

// Refresh is a no-op for API key authentication.
func (p *APIKeyProvider) Refresh(ctx context.Context) error {
	return nil
}
