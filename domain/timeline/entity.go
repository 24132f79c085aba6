package timeline

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/registry"
)

// Event is a dated occurrence on an investigation timeline. It references
// at least one node of its graph.
type Event struct {
	bun.BaseModel `bun:"table:investigation_events,alias:ev"`

	ID            string              `bun:"id,pk" json:"id"`
	GraphID       string              `bun:"graph_id,notnull" json:"graphId"`
	Title         string              `bun:"title,notnull" json:"title"`
	Description   *string             `bun:"description" json:"description,omitempty"`
	Date          *string             `bun:"event_date" json:"date,omitempty"`
	SeriesDay     *int                `bun:"series_day" json:"seriesDay,omitempty"`
	SourceGraphID *string             `bun:"source_graph_id" json:"sourceGraphId,omitempty"`
	EventTypeID   string              `bun:"event_type_id,notnull" json:"eventTypeId"`
	EventType     *registry.EventType `bun:"rel:belongs-to,join:event_type_id=id" json:"eventType,omitempty"`
	SourceNodeID  *string             `bun:"source_node_id" json:"sourceNodeId,omitempty"`
	TargetNodeID  *string             `bun:"target_node_id" json:"targetNodeId,omitempty"`
	SortOrder     int                 `bun:"sort_order,notnull" json:"sortOrder"`
	CreatedEdgeID *string             `bun:"created_edge_id" json:"createdEdgeId,omitempty"`

	ParticipantNodeIDs []string `bun:"-" json:"participantNodeIds"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// NodeIDs returns every node the event references, without duplicates.
func (e *Event) NodeIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if e.SourceNodeID != nil {
		add(*e.SourceNodeID)
	}
	if e.TargetNodeID != nil {
		add(*e.TargetNodeID)
	}
	for _, id := range e.ParticipantNodeIDs {
		add(id)
	}
	return out
}

// Group returns the ordering group of the event.
func (e *Event) Group() Group {
	return Group{Date: e.Date, SeriesDay: e.SeriesDay}.normalize()
}

// Participant links an event to an involved node.
type Participant struct {
	bun.BaseModel `bun:"table:event_participants,alias:ep"`

	EventID string `bun:"event_id,pk"`
	NodeID  string `bun:"node_id,pk"`
}

// Group identifies events ordered together: the same date, or when undated
// the same series day. Events with neither form one group.
type Group struct {
	Date      *string `json:"date,omitempty"`
	SeriesDay *int    `json:"seriesDay,omitempty"`
}

// normalize drops the series day of dated groups; the date wins.
func (g Group) normalize() Group {
	if g.Date != nil {
		return Group{Date: g.Date}
	}
	return g
}

// Equal reports whether both values name the same group.
func (g Group) Equal(o Group) bool {
	g, o = g.normalize(), o.normalize()
	switch {
	case g.Date != nil || o.Date != nil:
		return g.Date != nil && o.Date != nil && *g.Date == *o.Date
	case g.SeriesDay != nil || o.SeriesDay != nil:
		return g.SeriesDay != nil && o.SeriesDay != nil && *g.SeriesDay == *o.SeriesDay
	}
	return true
}

func (g Group) where(q *bun.SelectQuery) *bun.SelectQuery {
	g = g.normalize()
	switch {
	case g.Date != nil:
		return q.Where("ev.event_date = ?", *g.Date)
	case g.SeriesDay != nil:
		return q.Where("ev.event_date IS NULL").Where("ev.series_day = ?", *g.SeriesDay)
	default:
		return q.Where("ev.event_date IS NULL").Where("ev.series_day IS NULL")
	}
}
