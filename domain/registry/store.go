package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/pgutils"
)

// Store handles database operations for the role, relationship and event type vocabularies.
type Store struct {
	db bun.IDB
}

// NewStore creates a new registry store
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// Tx returns a store bound to a transaction (or any other IDB).
func (s *Store) Tx(db bun.IDB) *Store {
	return &Store{db: db}
}

// ListRoles returns all roles ordered by name
func (s *Store) ListRoles(ctx context.Context) ([]*Role, error) {
	roles := make([]*Role, 0)
	if err := s.db.NewSelect().Model(&roles).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole returns a role by ID, or nil if it does not exist
func (s *Store) GetRole(ctx context.Context, id string) (*Role, error) {
	return getByID[Role](ctx, s.db, id)
}

// GetOrCreateRole returns the role with the trimmed name, creating it when absent.
// An existing role is returned unchanged even if category differs. An empty
// category defaults to civilian.
func (s *Store) GetOrCreateRole(ctx context.Context, name string, category RoleCategory) (*Role, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.NewValidation("name", "role name is required")
	}
	if category == "" {
		category = CategoryCivilian
	}
	if !category.Valid() {
		return nil, false, apperror.NewValidation("category", "unknown role category '"+string(category)+"'")
	}

	return getOrCreate(ctx, s.db, name, func() *Role {
		return &Role{ID: uuid.NewString(), Name: name, Category: category, CreatedAt: now()}
	})
}

// ListRelationshipTypes returns all relationship types ordered by name
func (s *Store) ListRelationshipTypes(ctx context.Context) ([]*RelationshipType, error) {
	types := make([]*RelationshipType, 0)
	if err := s.db.NewSelect().Model(&types).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return types, nil
}

// GetRelationshipType returns a relationship type by ID, or nil if it does not exist
func (s *Store) GetRelationshipType(ctx context.Context, id string) (*RelationshipType, error) {
	return getByID[RelationshipType](ctx, s.db, id)
}

// GetRelationshipTypes loads the given ids into a map. Unknown ids are absent.
func (s *Store) GetRelationshipTypes(ctx context.Context, ids []string) (map[string]*RelationshipType, error) {
	out := make(map[string]*RelationshipType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*RelationshipType
	if err := s.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// GetOrCreateRelationshipType returns the relationship type with the trimmed name,
// creating it (category "other" when empty) when absent.
func (s *Store) GetOrCreateRelationshipType(ctx context.Context, name, category string) (*RelationshipType, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.NewValidation("name", "relationship name is required")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultRelationshipCategory
	}

	return getOrCreate(ctx, s.db, name, func() *RelationshipType {
		return &RelationshipType{ID: uuid.NewString(), Name: name, Category: category, CreatedAt: now()}
	})
}

// ListEventTypes returns all event types ordered by name
func (s *Store) ListEventTypes(ctx context.Context) ([]*EventType, error) {
	types := make([]*EventType, 0)
	if err := s.db.NewSelect().Model(&types).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return types, nil
}

// GetEventType returns an event type by ID, or nil if it does not exist
func (s *Store) GetEventType(ctx context.Context, id string) (*EventType, error) {
	return getByID[EventType](ctx, s.db, id)
}

// GetOrCreateEventType returns the event type with the trimmed name, creating it when absent.
func (s *Store) GetOrCreateEventType(ctx context.Context, name string) (*EventType, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.NewValidation("name", "event type name is required")
	}

	return getOrCreate(ctx, s.db, name, func() *EventType {
		return &EventType{ID: uuid.NewString(), Name: name, CreatedAt: now()}
	})
}

func getByID[T any](ctx context.Context, db bun.IDB, id string) (*T, error) {
	row := new(T)
	err := db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func getByName[T any](ctx context.Context, db bun.IDB, name string) (*T, error) {
	row := new(T)
	err := db.NewSelect().Model(row).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// getOrCreate resolves a vocabulary row by unique name. A concurrent insert of
// the same name makes ours a no-op, after which the winner is re-read.
func getOrCreate[T any](ctx context.Context, db bun.IDB, name string, build func() *T) (*T, bool, error) {
	existing, err := getByName[T](ctx, db, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	row := build()
	res, err := db.NewInsert().Model(row).On("CONFLICT (name) DO NOTHING").Exec(ctx)
	switch {
	case err == nil:
		if n, _ := res.RowsAffected(); n == 1 {
			return row, true, nil
		}
	case !pgutils.IsUniqueViolation(err):
		return nil, false, err
	}

	winner, err := getByName[T](ctx, db, name)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, false, errors.New("registry row vanished after conflicting insert")
	}
	return winner, false, nil
}

func now() time.Time {
	return time.Now().UTC()
}
