package entities

// CreateEntityRequest is the body of POST /api/entities
type CreateEntityRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	RoleID      string  `json:"roleId" validate:"required"`
	EntityType  string  `json:"entityType,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateEntityRequest is the body of PATCH /api/entities/:id. Nil fields are left unchanged.
type UpdateEntityRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	RoleID      *string `json:"roleId,omitempty"`
	EntityType  *string `json:"entityType,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SearchParams filter GET /api/entities
type SearchParams struct {
	Query   string
	GraphID string
	Limit   int
}

// SearchResult is an entity plus, when searching within a graph, the node placing it there.
type SearchResult struct {
	*Entity

	NodeID  *string `json:"nodeId,omitempty"`
	InGraph bool    `json:"inGraph"`
}
