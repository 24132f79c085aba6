// Package graph provides the graph service client for the fullstori API SDK.
package graph

import (
	"context"

	domain "github.com/Tatenda/fullstori/domain/graph"
	"github.com/Tatenda/fullstori/pkg/sdk/internal/transport"
)

// Wire types shared with the server.
type (
	Graph                 = domain.Graph
	GraphState            = domain.GraphState
	NodeView              = domain.NodeView
	EdgeView              = domain.EdgeView
	Position              = domain.Position
	SaveNode              = domain.SaveNode
	SaveEdge              = domain.SaveEdge
	SaveGraphRequest      = domain.SaveGraphRequest
	SaveGraphResult       = domain.SaveGraphResult
	UpdateSettingsRequest = domain.UpdateSettingsRequest
	CreateNodeRequest     = domain.CreateNodeRequest
	CreateNodeResult      = domain.CreateNodeResult
)

// Client provides access to the graph API.
type Client struct {
	t *transport.Transport
}

// NewClient creates a new graph client.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

// List returns every graph.
// GET /api/graphs
func (c *Client) List(ctx context.Context) ([]*Graph, error) {
	var result []*Graph
	if err := c.t.Get(ctx, c.t.URL("api", "graphs"), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Load returns the full state of a graph, creating it on first access.
// GET /api/graphs/:graphId
func (c *Client) Load(ctx context.Context, graphID string) (*GraphState, error) {
	var result GraphState
	if err := c.t.Get(ctx, c.t.URL("api", "graphs", graphID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Save replaces the graph's nodes and edges with the given full state.
// PUT /api/graphs/:graphId
func (c *Client) Save(ctx context.Context, graphID string, req *SaveGraphRequest) (*SaveGraphResult, error) {
	var result SaveGraphResult
	if err := c.t.Put(ctx, c.t.URL("api", "graphs", graphID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSettings changes the graph's name, description or root labels.
// PATCH /api/graphs/:graphId/settings
func (c *Client) UpdateSettings(ctx context.Context, graphID string, req *UpdateSettingsRequest) (*Graph, error) {
	var result Graph
	if err := c.t.Patch(ctx, c.t.URL("api", "graphs", graphID, "settings"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateNode places an entity on the graph, reusing its node when one exists.
// POST /api/graphs/:graphId/nodes
func (c *Client) CreateNode(ctx context.Context, graphID string, req *CreateNodeRequest) (*CreateNodeResult, error) {
	var result CreateNodeResult
	if err := c.t.Post(ctx, c.t.URL("api", "graphs", graphID, "nodes"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SnapshotOf converts a loaded state into a save request that reproduces it.
func SnapshotOf(state *GraphState) *SaveGraphRequest {
	req := &SaveGraphRequest{
		Nodes: make([]SaveNode, 0, len(state.Nodes)),
		Edges: make([]SaveEdge, 0, len(state.Edges)),
	}
	for _, n := range state.Nodes {
		pos := n.Position
		req.Nodes = append(req.Nodes, SaveNode{
			ID:               n.ID,
			EntityID:         n.EntityID,
			Position:         &pos,
			Kind:             n.Kind,
			CategoryOverride: n.CategoryOverride,
		})
	}
	for _, e := range state.Edges {
		req.Edges = append(req.Edges, SaveEdge{
			ID:                 e.ID,
			Source:             e.Source,
			Target:             e.Target,
			Label:              e.Label,
			RelationshipTypeID: e.RelationshipTypeID,
			SourceHandle:       e.SourceHandle,
			TargetHandle:       e.TargetHandle,
		})
	}
	return req
}

