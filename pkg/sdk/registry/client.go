// Package registry provides the vocabulary client for the fullstori API SDK.
package registry

import (
	"context"

	domain "github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
)

// Wire types shared with the server.
type (
	Role             = domain.Role
	RelationshipType = domain.RelationshipType
	EventType        = domain.EventType
)

// Client provides access to roles, relationship types and event types.
type Client struct {
	t *transport.Transport
}

// NewClient creates a new registry client.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

// Roles lists every role.
// GET /api/roles
func (c *Client) Roles(ctx context.Context) ([]*Role, error) {
	var result []*Role
	if err := c.t.Get(ctx, c.t.URL("api", "roles"), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureRole returns the role with name, case-insensitively, creating it if needed.
// POST /api/roles
func (c *Client) EnsureRole(ctx context.Context, name, category string) (*Role, error) {
	var result Role
	body := domain.GetOrCreateRoleRequest{Name: name, Category: category}
	if err := c.t.Post(ctx, c.t.URL("api", "roles"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RelationshipTypes lists every relationship type.
// GET /api/relationships
func (c *Client) RelationshipTypes(ctx context.Context) ([]*RelationshipType, error) {
	var result []*RelationshipType
	if err := c.t.Get(ctx, c.t.URL("api", "relationships"), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureRelationshipType returns the relationship type with name, creating it if needed.
// POST /api/relationships
func (c *Client) EnsureRelationshipType(ctx context.Context, name, category string) (*RelationshipType, error) {
	var result RelationshipType
	body := domain.GetOrCreateRelationshipRequest{Name: name, Category: category}
	if err := c.t.Post(ctx, c.t.URL("api", "relationships"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EventTypes lists every event type.
// GET /api/event-types
func (c *Client) EventTypes(ctx context.Context) ([]*EventType, error) {
	var result []*EventType
	if err := c.t.Get(ctx, c.t.URL("api", "event-types"), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureEventType returns the event type with name, creating it if needed.
// POST /api/event-types
func (c *Client) EnsureEventType(ctx context.Context, name string) (*EventType, error) {
	var result EventType
	body := domain.GetOrCreateEventTypeRequest{Name: name}
	if err := c.t.Post(ctx, c.t.URL("api", "event-types"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
