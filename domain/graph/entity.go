package graph

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// NodeKind is the display kind of a node. It is derived from the node's root
// status and its entity's role; the stored value is only a cache.
type NodeKind string

const (
	KindRoot           NodeKind = "root"
	KindEvidenceLeader NodeKind = "evidenceLeader"
	KindCustom         NodeKind = "custom"
)

// RootRoleName is the role given to synthesized root entities.
const RootRoleName = "Root"

// DerivedKind computes a node kind. The root stays root; otherwise a role
// named like "Evidence Leader" yields evidenceLeader.
func DerivedKind(isRoot bool, roleName string) NodeKind {
	if isRoot {
		return KindRoot
	}
	r := strings.ToLower(roleName)
	if strings.Contains(r, "evidence leader") || strings.Contains(r, "evidenceleader") {
		return KindEvidenceLeader
	}
	return KindCustom
}

// Graph is one investigation canvas.
type Graph struct {
	bun.BaseModel `bun:"table:graphs,alias:g"`

	ID              string  `bun:"id,pk" json:"id"`
	Name            string  `bun:"name,notnull" json:"name"`
	Description     *string `bun:"description" json:"description,omitempty"`
	RootLabelTop    *string `bun:"root_label_top" json:"rootLabelTop,omitempty"`
	RootLabelRight  *string `bun:"root_label_right" json:"rootLabelRight,omitempty"`
	RootLabelBottom *string `bun:"root_label_bottom" json:"rootLabelBottom,omitempty"`
	RootLabelLeft   *string `bun:"root_label_left" json:"rootLabelLeft,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Node places an entity on a graph. Name, role and description live on the
// entity and are never stored here.
type Node struct {
	bun.BaseModel `bun:"table:nodes,alias:n"`

	ID               string   `bun:"id,pk"`
	GraphID          string   `bun:"graph_id,notnull"`
	EntityID         string   `bun:"entity_id,notnull"`
	PositionX        float64  `bun:"position_x,notnull"`
	PositionY        float64  `bun:"position_y,notnull"`
	Kind             NodeKind `bun:"kind,notnull"`
	CategoryOverride *string  `bun:"category_override"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// IsRoot reports whether the stored kind marks the graph root.
func (n *Node) IsRoot() bool {
	return n.Kind == KindRoot
}

// Edge connects two nodes of the same graph. It carries either a free-text
// label or a relationship type, never both.
type Edge struct {
	bun.BaseModel `bun:"table:edges,alias:e"`

	ID                 string  `bun:"id,pk"`
	GraphID            string  `bun:"graph_id,notnull"`
	SourceNodeID       string  `bun:"source_node_id,notnull"`
	TargetNodeID       string  `bun:"target_node_id,notnull"`
	Label              *string `bun:"label"`
	RelationshipTypeID *string `bun:"relationship_type_id"`
	SourceHandle       *string `bun:"source_handle"`
	TargetHandle       *string `bun:"target_handle"`

	// CreatedFromEventID is set when a timeline event produced the edge.
	CreatedFromEventID *string `bun:"created_from_event_id"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type pair struct {
	source, target string
}

func (e *Edge) pair() pair {
	return pair{e.SourceNodeID, e.TargetNodeID}
}
