package registry

import (
	"context"
	"log/slog"

	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
)

// Service exposes the vocabularies to HTTP handlers.
type Service struct {
	store *Store
	log   *slog.Logger
}

// NewService creates a new registry service
func NewService(store *Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log.With(logger.Scope("registry.svc"))}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return roles, nil
}

// ListRolesGrouped returns roles keyed by category. Every known category is
// present, possibly empty.
func (s *Service) ListRolesGrouped(ctx context.Context) (map[RoleCategory][]*Role, error) {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[RoleCategory][]*Role, len(RoleCategories))
	for _, c := range RoleCategories {
		grouped[c] = []*Role{}
	}
	for _, r := range roles {
		grouped[r.Category] = append(grouped[r.Category], r)
	}
	return grouped, nil
}

// GetOrCreateRole resolves a role by name.
func (s *Service) GetOrCreateRole(ctx context.Context, req GetOrCreateRoleRequest) (*Role, bool, error) {
	role, created, err := s.store.GetOrCreateRole(ctx, req.Name, RoleCategory(req.Category))
	if err != nil {
		return nil, false, apperror.Classify(err)
	}
	if created {
		s.log.Info("role created", slog.String("id", role.ID), slog.String("name", role.Name))
	}
	return role, created, nil
}

// ListRelationshipTypes returns all relationship types.
func (s *Service) ListRelationshipTypes(ctx context.Context) ([]*RelationshipType, error) {
	types, err := s.store.ListRelationshipTypes(ctx)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return types, nil
}

// ListRelationshipTypesGrouped returns relationship types keyed by their free-text category.
func (s *Service) ListRelationshipTypesGrouped(ctx context.Context) (map[string][]*RelationshipType, error) {
	types, err := s.ListRelationshipTypes(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*RelationshipType)
	for _, t := range types {
		grouped[t.Category] = append(grouped[t.Category], t)
	}
	return grouped, nil
}

// GetOrCreateRelationshipType resolves a relationship type by name.
func (s *Service) GetOrCreateRelationshipType(ctx context.Context, req GetOrCreateRelationshipRequest) (*RelationshipType, bool, error) {
	rt, created, err := s.store.GetOrCreateRelationshipType(ctx, req.Name, req.Category)
	if err != nil {
		return nil, false, apperror.Classify(err)
	}
	if created {
		s.log.Info("relationship type created", slog.String("id", rt.ID), slog.String("name", rt.Name))
	}
	return rt, created, nil
}

// ListEventTypes returns all event types.
func (s *Service) ListEventTypes(ctx context.Context) ([]*EventType, error) {
	types, err := s.store.ListEventTypes(ctx)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return types, nil
}

// GetOrCreateEventType resolves an event type by name.
func (s *Service) GetOrCreateEventType(ctx context.Context, req GetOrCreateEventTypeRequest) (*EventType, bool, error) {
	et, created, err := s.store.GetOrCreateEventType(ctx, req.Name)
	if err != nil {
		return nil, false, apperror.Classify(err)
	}
	if created {
		s.log.Info("event type created", slog.String("id", et.ID), slog.String("name", et.Name))
	}
	return et, created, nil
}
