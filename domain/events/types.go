package events

import "time"

// ChangeType names a change notification. It is used as the SSE event name.
type ChangeType string

const (
	ChangeGraphSaved      ChangeType = "graph.saved"
	ChangeGraphUpdated    ChangeType = "graph.updated"
	ChangeNodeCreated     ChangeType = "node.created"
	ChangeEventCreated    ChangeType = "event.created"
	ChangeEventUpdated    ChangeType = "event.updated"
	ChangeEventDeleted    ChangeType = "event.deleted"
	ChangeEventsReordered ChangeType = "events.reordered"
)

// ChangeEvent tells stream subscribers that a graph changed. Clients refetch
// what they need; payloads carry ids and small summaries only.
type ChangeEvent struct {
	Type      ChangeType     `json:"type"`
	GraphID   string         `json:"graphId"`
	ID        *string        `json:"id,omitempty"`
	IDs       []string       `json:"ids,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewChange builds a change stamped with the current time. id may be empty.
func NewChange(t ChangeType, graphID, id string, data map[string]any) ChangeEvent {
	e := ChangeEvent{
		Type:      t,
		GraphID:   graphID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if id != "" {
		e.ID = &id
	}
	return e
}
