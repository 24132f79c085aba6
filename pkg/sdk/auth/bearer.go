package auth

import (
	"context"
	"net/http"
)

// BearerProvider sends a pre-issued token as Authorization: Bearer.
type BearerProvider struct {
	token string
}

// NewBearerProvider creates a provider for a token issued elsewhere.
func NewBearerProvider(token string) *BearerProvider {
	return &BearerProvider{token: token}
}

// Authenticate adds the Authorization: Bearer header.
func (p *BearerProvider) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}

// Refresh is a no-op for static tokens.
func (p *BearerProvider) Refresh(ctx context.Context) error {
	return nil
}
