package timeline

import (
	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/domain/graph"
)

// EdgeStatus reports what happened to the edge an event may imply.
type EdgeStatus string

const (
	EdgeNotRequested    EdgeStatus = "not_requested"
	EdgeMissingEndpoint EdgeStatus = "missing_endpoint"
	EdgeSelfLoop        EdgeStatus = "self_loop"
	EdgeCreated         EdgeStatus = "created"
	EdgeExists          EdgeStatus = "exists"
	EdgeFailed          EdgeStatus = "failed"
)

// CreateEventRequest is the body of POST /api/graphs/:graphId/events.
//
// The event type comes from EventTypeID or, when absent, CustomTypeName,
// which is registered on first use. NewTarget creates (or reuses by exact
// name) an entity and places it on the graph as the target node.
type CreateEventRequest struct {
	Title              string                        `json:"title" validate:"max=300"`
	Description        *string                       `json:"description,omitempty"`
	Date               *string                       `json:"date,omitempty"`
	SeriesDay          *int                          `json:"seriesDay,omitempty"`
	SourceGraphID      *string                       `json:"sourceGraphId,omitempty"`
	EventTypeID        *string                       `json:"eventTypeId,omitempty"`
	CustomTypeName     *string                       `json:"customTypeName,omitempty" validate:"omitempty,max=100"`
	SourceNodeID       *string                       `json:"sourceNodeId,omitempty"`
	TargetNodeID       *string                       `json:"targetNodeId,omitempty"`
	NewTarget          *entities.CreateEntityRequest `json:"newTarget,omitempty"`
	ParticipantNodeIDs []string                      `json:"participantNodeIds,omitempty"`
	CreateEdge         bool                          `json:"createEdge"`

	// Viewport centers a new target that has no source to sit next to.
	Viewport *graph.Position `json:"viewport,omitempty"`
}

// UpdateEventRequest is the body of PATCH /api/graphs/:graphId/events/:eventId.
// Nil fields are left unchanged. Empty strings clear optional text and node
// references; ClearSeriesDay clears the series day.
type UpdateEventRequest struct {
	Title              *string   `json:"title,omitempty" validate:"omitempty,max=300"`
	Description        *string   `json:"description,omitempty"`
	Date               *string   `json:"date,omitempty"`
	SeriesDay          *int      `json:"seriesDay,omitempty"`
	ClearSeriesDay     bool      `json:"clearSeriesDay,omitempty"`
	SourceGraphID      *string   `json:"sourceGraphId,omitempty"`
	EventTypeID        *string   `json:"eventTypeId,omitempty"`
	CustomTypeName     *string   `json:"customTypeName,omitempty" validate:"omitempty,max=100"`
	SourceNodeID       *string   `json:"sourceNodeId,omitempty"`
	TargetNodeID       *string   `json:"targetNodeId,omitempty"`
	ParticipantNodeIDs *[]string `json:"participantNodeIds,omitempty"`
	CreateEdge         bool      `json:"createEdge"`
}

// ReorderRequest is the body of POST /api/graphs/:graphId/events/reorder.
// OrderedIDs must list exactly the events of the group.
type ReorderRequest struct {
	Date       *string  `json:"date,omitempty"`
	SeriesDay  *int     `json:"seriesDay,omitempty"`
	OrderedIDs []string `json:"orderedIds"`
}

// CreateEventResult is an event write together with the outcome of edge derivation.
// The event is committed even when EdgeStatus is failed.
type CreateEventResult struct {
	Event        *Event          `json:"event"`
	CreatedEdge  *graph.EdgeView `json:"createdEdge,omitempty"`
	// ExistingEdge is the edge that already joined source and target when
	// EdgeStatus is "exists".
	ExistingEdge *graph.EdgeView `json:"existingEdge,omitempty"`
	CreatedNode  *graph.NodeView `json:"createdNode,omitempty"`
	EdgeStatus   EdgeStatus      `json:"edgeStatus"`
	EdgeError    *string         `json:"edgeError,omitempty"`
}
