// Package auth provides authentication mechanisms for the fullstori API SDK.
package auth

import (
	"context"
	"net/http"
)

// Provider defines the interface for authentication providers.
type Provider interface {
	// Authenticate adds authentication headers to the HTTP request.
	Authenticate(req *http.Request) error

	// Refresh refreshes authentication credentials if applicable.
	// For static credentials this is a no-op.
	Refresh(ctx context.Context) error
}

// NoneProvider sends no credentials, for servers running with auth disabled.
type NoneProvider struct{}

// Authenticate leaves the request untouched.
func (NoneProvider) Authenticate(*http.Request) error { return nil }

// Refresh is a no-op.
func (NoneProvider) Refresh(context.Context) error { return nil }
