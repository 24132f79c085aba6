package entities

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/registry"
)

// EntityType distinguishes people from organisations.
type EntityType string

const (
	TypeHuman        EntityType = "human"
	TypeCompany      EntityType = "company"
	TypeOrganization EntityType = "organization"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case TypeHuman, TypeCompany, TypeOrganization:
		return true
	}
	return false
}

// Entity is a person or organisation. It is the source of truth for what a
// graph node displays; nodes only reference it.
type Entity struct {
	bun.BaseModel `bun:"table:entities,alias:en"`

	ID          string         `bun:"id,pk" json:"id"`
	Name        string         `bun:"name,notnull" json:"name"`
	RoleID      string         `bun:"role_id,notnull" json:"roleId"`
	Role        *registry.Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	EntityType  EntityType     `bun:"entity_type,notnull" json:"entityType"`
	Description *string        `bun:"description" json:"description,omitempty"`
	Avatar      *string        `bun:"avatar" json:"avatar,omitempty"`

	// AvatarKey is set only for uploaded avatars.
	AvatarKey *string `bun:"avatar_key" json:"-"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// HasCustomAvatar reports whether the avatar was uploaded rather than generated.
func (e *Entity) HasCustomAvatar() bool {
	return e.AvatarKey != nil && *e.AvatarKey != ""
}

// RoleName returns the joined role name, or "" when the role was not loaded.
func (e *Entity) RoleName() string {
	if e.Role == nil {
		return ""
	}
	return e.Role.Name
}

// RoleCategory returns the joined role category, or "" when the role was not loaded.
func (e *Entity) RoleCategory() registry.RoleCategory {
	if e.Role == nil {
		return ""
	}
	return e.Role.Category
}
