// Package timeline provides the investigation event client for the fullstori API SDK.
package timeline

import (
	"context"

	domain "github.com/Tatenda/fullstori/domain/timeline"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
)

// Wire types shared with the server.
type (
	Event              = domain.Event
	EdgeStatus         = domain.EdgeStatus
	CreateEventRequest = domain.CreateEventRequest
	UpdateEventRequest = domain.UpdateEventRequest
	ReorderRequest     = domain.ReorderRequest
	CreateEventResult  = domain.CreateEventResult
)

// Client provides access to a graph's timeline.
type Client struct {
	t *transport.Transport
}

// NewClient creates a new timeline client.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

func (c *Client) eventsURL(graphID string, rest ...string) string {
	return c.t.URL(append([]string{"api", "graphs", graphID, "events"}, rest...)...)
}

// List returns the graph's events in timeline order.
// GET /api/graphs/:graphId/events
func (c *Client) List(ctx context.Context, graphID string) ([]*Event, error) {
	var result []*Event
	if err := c.t.Get(ctx, c.eventsURL(graphID), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one event.
// GET /api/graphs/:graphId/events/:eventId
func (c *Client) Get(ctx context.Context, graphID, eventID string) (*Event, error) {
	var result Event
	if err := c.t.Get(ctx, c.eventsURL(graphID, eventID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create records an event, optionally deriving an edge between its source
// and target nodes. Edge derivation failures are reported in the result,
// not as an error.
// POST /api/graphs/:graphId/events
func (c *Client) Create(ctx context.Context, graphID string, req *CreateEventRequest) (*CreateEventResult, error) {
	var result CreateEventResult
	if err := c.t.Post(ctx, c.eventsURL(graphID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update applies a partial update to an event.
// PATCH /api/graphs/:graphId/events/:eventId
func (c *Client) Update(ctx context.Context, graphID, eventID string, req *UpdateEventRequest) (*CreateEventResult, error) {
	var result CreateEventResult
	if err := c.t.Patch(ctx, c.eventsURL(graphID, eventID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes an event. Edges it created are kept.
// DELETE /api/graphs/:graphId/events/:eventId
func (c *Client) Delete(ctx context.Context, graphID, eventID string) error {
	return c.t.Delete(ctx, c.eventsURL(graphID, eventID))
}

// Reorder sets the order of the events sharing one date or series day.
// POST /api/graphs/:graphId/events/reorder
func (c *Client) Reorder(ctx context.Context, graphID string, req *ReorderRequest) error {
	return c.t.Post(ctx, c.eventsURL(graphID, "reorder"), req, nil)
}
