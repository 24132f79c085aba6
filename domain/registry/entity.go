package registry

import (
	"time"

	"github.com/uptrace/bun"
)

// RoleCategory groups roles for display and node colouring.
type RoleCategory string

const (
	CategoryOfficial       RoleCategory = "official"
	CategoryLawEnforcement RoleCategory = "law_enforcement"
	CategoryPolitical      RoleCategory = "political"
	CategoryWitness        RoleCategory = "witness"
	CategorySuspect        RoleCategory = "suspect"
	CategoryVictim         RoleCategory = "victim"
	CategoryBusiness       RoleCategory = "business"
	CategoryCivilian       RoleCategory = "civilian"
)

// RoleCategories lists the valid categories in display order.
var RoleCategories = []RoleCategory{
	CategoryOfficial,
	CategoryLawEnforcement,
	CategoryPolitical,
	CategoryWitness,
	CategorySuspect,
	CategoryVictim,
	CategoryBusiness,
	CategoryCivilian,
}

// Valid reports whether c is a known category.
func (c RoleCategory) Valid() bool {
	for _, known := range RoleCategories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultRelationshipCategory is used when a relationship is created without one.
const DefaultRelationshipCategory = "other"

// Role is a named part an entity plays in an investigation.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:ro"`

	ID        string       `bun:"id,pk" json:"id"`
	Name      string       `bun:"name,notnull" json:"name"`
	Category  RoleCategory `bun:"category,notnull" json:"category"`
	IsSystem  bool         `bun:"is_system,notnull" json:"isSystem"`
	CreatedAt time.Time    `bun:"created_at,notnull" json:"createdAt"`
}

// RelationshipType names the kind of link an edge represents.
type RelationshipType struct {
	bun.BaseModel `bun:"table:relationship_types,alias:rt"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Category  string    `bun:"category,notnull" json:"category"`
	IsSystem  bool      `bun:"is_system,notnull" json:"isSystem"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// EventType classifies timeline events.
type EventType struct {
	bun.BaseModel `bun:"table:event_types,alias:et"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	IsSystem  bool      `bun:"is_system,notnull" json:"isSystem"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
