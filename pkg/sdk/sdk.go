// Package sdk provides a Go client library for the fullstori API.
//
// Example usage with the static API key:
//
//	client, err := sdk.New(sdk.Config{
//		ServerURL: "http://localhost:8080",
//		Auth: sdk.AuthConfig{
//			Mode:   "apikey",
//			APIKey: "dev-key",
//		},
//	})
//
// Callers holding the server's JWT secret can mint their own tokens:
//
//	client, err := sdk.New(sdk.Config{
//		ServerURL: "http://localhost:8080",
//		Auth: sdk.AuthConfig{
//			Mode:      "jwt",
//			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
//			Subject:   "importer",
//		},
//	})
package sdk

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Tatenda/fullstori/pkg/sdk/auth"
	"github.com/Tatenda/fullstori/pkg/sdk/entities"
	"github.com/Tatenda/fullstori/pkg/sdk/graph"
	"github.com/Tatenda/fullstori/pkg/sdk/health"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
	"github.com/Tatenda/fullstori/pkg/sdk/registry"
	"github.com/Tatenda/fullstori/pkg/sdk/timeline"
)

// Client is the main SDK client for the fullstori API.
type Client struct {
	auth auth.Provider
	base string

	Graphs   *graph.Client
	Events   *timeline.Client
	Entities *entities.Client
	Registry *registry.Client
	Health   *health.Client
}

// Config holds configuration for the SDK client.
type Config struct {
	ServerURL  string
	Auth       AuthConfig
	HTTPClient *http.Client // Optional: custom HTTP client (defaults to 30s timeout)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode string // "none", "apikey", "bearer" or "jwt"

	APIKey string // apikey mode
	Token  string // bearer mode, a token issued elsewhere

	// jwt mode mints HS256 tokens locally.
	JWTSecret string
	Issuer    string
	Subject   string
	TokenTTL  time.Duration
}

// New creates a new fullstori API client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}

	provider, err := newProvider(cfg.Auth)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	t := transport.New(httpClient, cfg.ServerURL, provider)
	return &Client{
		auth:     provider,
		base:     t.Base,
		Graphs:   graph.NewClient(t),
		Events:   timeline.NewClient(t),
		Entities: entities.NewClient(t),
		Registry: registry.NewClient(t),
		Health:   health.NewClient(t),
	}, nil
}

func newProvider(cfg AuthConfig) (auth.Provider, error) {
	switch cfg.Mode {
	case "", "none":
		return auth.NoneProvider{}, nil
	case "apikey":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("APIKey is required for apikey mode")
		}
		return auth.NewAPIKeyProvider(cfg.APIKey), nil
	case "bearer":
		if cfg.Token == "" {
			return nil, fmt.Errorf("Token is required for bearer mode")
		}
		return auth.NewBearerProvider(cfg.Token), nil
	case "jwt":
		return auth.NewJWTProvider(cfg.JWTSecret, cfg.Issuer, cfg.Subject, cfg.TokenTTL)
	default:
		return nil, fmt.Errorf("invalid auth mode: %s (must be 'none', 'apikey', 'bearer' or 'jwt')", cfg.Mode)
	}
}

// AutoSave returns an AutoSaver that keeps graphID saved through this client.
func (c *Client) AutoSave(ctx context.Context, graphID string, opts graph.AutoSaveOptions) *graph.AutoSaver {
	return graph.NewAutoSaver(ctx, c.Graphs, graphID, opts)
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.base
}

// RefreshAuth refreshes the credentials of the configured provider.
func (c *Client) RefreshAuth(ctx context.Context) error {
	return c.auth.Refresh(ctx)
}
