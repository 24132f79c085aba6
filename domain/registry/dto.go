package registry

// GetOrCreateRoleRequest is the body of POST /api/roles
type GetOrCreateRoleRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category,omitempty" validate:"max=40"`
}

// GetOrCreateRelationshipRequest is the body of POST /api/relationships
type GetOrCreateRelationshipRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category,omitempty" validate:"max=40"`
}

// GetOrCreateEventTypeRequest is the body of POST /api/event-types
type GetOrCreateEventTypeRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
