// Package health provides the health service client for the fullstori API SDK.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Tatenda/fullstori/domain/health"
	"github.com/Tatenda/fullstori/domain/scheduler"
	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
)

// Wire types shared with the server.
type (
	HealthResponse = health.HealthResponse
	Check          = health.Check
	TableCount     = health.TableCount
	TaskInfo       = scheduler.TaskInfo
)

// ReadyResponse represents the readiness probe response.
type ReadyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Diagnostics represents GET /api/diagnostics.
type Diagnostics struct {
	Timestamp string       `json:"timestamp"`
	Uptime    string       `json:"uptime,omitempty"`
	Tables    []TableCount `json:"tables"`
	Error     string       `json:"error,omitempty"`
}

// SchedulerStatus represents GET /api/metrics/scheduler.
type SchedulerStatus struct {
	Running bool       `json:"running"`
	Tasks   []TaskInfo `json:"tasks"`
}

// Client provides access to the health API.
type Client struct {
	t *transport.Transport
}

// NewClient creates a new health client.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

// Health returns the overall service health. An unhealthy service is
// reported in the response, not as an error.
// GET /health
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.getTolerant(ctx, c.t.URL("health"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ready returns readiness status.
// GET /ready
func (c *Client) Ready(ctx context.Context) (*ReadyResponse, error) {
	var result ReadyResponse
	if err := c.getTolerant(ctx, c.t.URL("ready"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IsReady is a convenience method that returns true if the service is ready.
func (c *Client) IsReady(ctx context.Context) (bool, error) {
	r, err := c.Ready(ctx)
	if err != nil {
		return false, err
	}
	return r.Status == "ready", nil
}

// Healthz returns nil if the process is alive.
// GET /healthz
func (c *Client) Healthz(ctx context.Context) error {
	req, err := c.t.NewRequest(ctx, http.MethodGet, c.t.URL("healthz"), nil)
	if err != nil {
		return err
	}
	resp, err := c.t.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz check failed with status %d", resp.StatusCode)
	}
	return nil
}

// Diagnostics returns per-table row counts.
// GET /api/diagnostics
func (c *Client) Diagnostics(ctx context.Context) (*Diagnostics, error) {
	var result Diagnostics
	if err := c.t.Get(ctx, c.t.URL("api", "diagnostics"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Scheduler returns the maintenance scheduler's tasks.
// GET /api/metrics/scheduler
func (c *Client) Scheduler(ctx context.Context) (*SchedulerStatus, error) {
	var result SchedulerStatus
	if err := c.t.Get(ctx, c.t.URL("api", "metrics", "scheduler"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getTolerant decodes 503 bodies like successes; probes use 503 to report
// an unhealthy state.
func (c *Client) getTolerant(ctx context.Context, reqURL string, result any) error {
	req, err := c.t.NewRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.t.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusServiceUnavailable {
		return sdkerrors.ParseErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
