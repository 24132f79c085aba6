package graph

import (
	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/domain/layout"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) point() layout.Point {
	return layout.Point{X: p.X, Y: p.Y}
}

func positionOf(pt layout.Point) Position {
	return Position{X: pt.X, Y: pt.Y}
}

// NodeView is a node hydrated with its entity's display fields.
type NodeView struct {
	ID               string   `json:"id"`
	EntityID         string   `json:"entityId"`
	Position         Position `json:"position"`
	Kind             NodeKind `json:"kind"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	RoleID           string   `json:"roleId"`
	RoleCategory     string   `json:"roleCategory"`
	Category         string   `json:"category"`
	CategoryOverride *string  `json:"categoryOverride,omitempty"`
	EntityType       string   `json:"entityType"`
	Description      *string  `json:"description,omitempty"`
	Avatar           *string  `json:"avatar,omitempty"`
}

// EdgeView is an edge as the client draws it. For relationship-backed edges
// Label is the relationship name.
type EdgeView struct {
	ID                 string  `json:"id"`
	Source             string  `json:"source"`
	Target             string  `json:"target"`
	Label              *string `json:"label,omitempty"`
	RelationshipTypeID *string `json:"relationshipTypeId,omitempty"`
	SourceHandle       *string `json:"sourceHandle,omitempty"`
	TargetHandle       *string `json:"targetHandle,omitempty"`
	CreatedFromEventID *string `json:"createdFromEventId,omitempty"`
}

// GraphState is the full persisted state returned by Load.
type GraphState struct {
	Graph *Graph     `json:"graph"`
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// RootNode returns the root node view, or nil.
func (s *GraphState) RootNode() *NodeView {
	for i := range s.Nodes {
		if s.Nodes[i].Kind == KindRoot {
			return &s.Nodes[i]
		}
	}
	return nil
}

// SaveNode is one node of a full-state save. Kind is only a hint used to pick
// the root of a graph that has none.
type SaveNode struct {
	ID               string    `json:"id"`
	EntityID         string    `json:"entityId"`
	Position         *Position `json:"position"`
	Kind             NodeKind  `json:"kind,omitempty"`
	CategoryOverride *string   `json:"categoryOverride,omitempty"`
}

// SaveEdge is one edge of a full-state save.
type SaveEdge struct {
	ID                 string  `json:"id"`
	Source             string  `json:"source"`
	Target             string  `json:"target"`
	Label              *string `json:"label,omitempty"`
	RelationshipTypeID *string `json:"relationshipTypeId,omitempty"`
	SourceHandle       *string `json:"sourceHandle,omitempty"`
	TargetHandle       *string `json:"targetHandle,omitempty"`
}

// SaveGraphRequest is the body of PUT /api/graphs/:graphId
type SaveGraphRequest struct {
	Nodes []SaveNode `json:"nodes"`
	Edges []SaveEdge `json:"edges"`
}

// SaveGraphResult summarises a reconciliation.
type SaveGraphResult struct {
	GraphID         string `json:"graphId"`
	RootNodeID      string `json:"rootNodeId"`
	RootSynthesized bool   `json:"rootSynthesized"`
	Nodes           int    `json:"nodes"`
	Edges           int    `json:"edges"`
	DeletedNodes    int    `json:"deletedNodes"`
	DeletedEdges    int    `json:"deletedEdges"`
	DeletedEvents   int    `json:"deletedEvents"`
}

// UpdateSettingsRequest is the body of PATCH /api/graphs/:graphId/settings.
// Nil fields are left unchanged; empty strings clear optional fields.
type UpdateSettingsRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description     *string `json:"description,omitempty"`
	RootLabelTop    *string `json:"rootLabelTop,omitempty" validate:"omitempty,max=100"`
	RootLabelRight  *string `json:"rootLabelRight,omitempty" validate:"omitempty,max=100"`
	RootLabelBottom *string `json:"rootLabelBottom,omitempty" validate:"omitempty,max=100"`
	RootLabelLeft   *string `json:"rootLabelLeft,omitempty" validate:"omitempty,max=100"`
}

// CreateNodeRequest is the body of POST /api/graphs/:graphId/nodes. Exactly
// one of EntityID and Entity is required; Entity is matched by exact name
// before a new entity is created.
type CreateNodeRequest struct {
	EntityID       *string                       `json:"entityId,omitempty"`
	Entity         *entities.CreateEntityRequest `json:"entity,omitempty"`
	RelatedNodeIDs []string                      `json:"relatedNodeIds,omitempty"`
	Viewport       *Position                     `json:"viewport,omitempty"`
}

// CreateNodeResult reports the node for the entity and whether it is new.
type CreateNodeResult struct {
	Node          NodeView `json:"node"`
	Created       bool     `json:"created"`
	EntityCreated bool     `json:"entityCreated"`
}
