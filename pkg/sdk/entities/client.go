// Package entities provides the entity client for the fullstori API SDK.
package entities

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	domain "github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
)

// Wire types shared with the server.
type (
	Entity              = domain.Entity
	SearchResult        = domain.SearchResult
	CreateEntityRequest = domain.CreateEntityRequest
	UpdateEntityRequest = domain.UpdateEntityRequest
)

// SearchOptions filter Search. GraphID marks results already on that graph.
type SearchOptions struct {
	Query   string
	GraphID string
	Limit   int
}

// Client provides access to the entities API.
type Client struct {
	t *transport.Transport
}

// NewClient creates a new entities client.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

// Search finds entities by name.
// GET /api/entities?q=&graphId=&limit=
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.GraphID != "" {
		q.Set("graphId", opts.GraphID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	reqURL := c.t.URL("api", "entities")
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	var result []SearchResult
	if err := c.t.Get(ctx, reqURL, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one entity.
// GET /api/entities/:id
func (c *Client) Get(ctx context.Context, id string) (*Entity, error) {
	var result Entity
	if err := c.t.Get(ctx, c.t.URL("api", "entities", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create creates an entity.
// POST /api/entities
func (c *Client) Create(ctx context.Context, req *CreateEntityRequest) (*Entity, error) {
	var result Entity
	if err := c.t.Post(ctx, c.t.URL("api", "entities"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update applies a partial update to an entity.
// PATCH /api/entities/:id
func (c *Client) Update(ctx context.Context, id string, req *UpdateEntityRequest) (*Entity, error) {
	var result Entity
	if err := c.t.Patch(ctx, c.t.URL("api", "entities", id), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadAvatar replaces the entity's avatar with an image.
// PUT /api/entities/:id/avatar
func (c *Client) UploadAvatar(ctx context.Context, id, filename, contentType string, image io.Reader) (*Entity, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.t.NewRequest(ctx, http.MethodPut, c.t.URL("api", "entities", id, "avatar"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result Entity
	if err := c.t.Do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
