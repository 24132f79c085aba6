package entities

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

// Store handles database operations for entities
type Store struct {
	db bun.IDB
}

// NewStore creates a new entities store
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// Tx returns a store bound to a transaction.
func (s *Store) Tx(db bun.IDB) *Store {
	return &Store{db: db}
}

// Insert stores a new entity
func (s *Store) Insert(ctx context.Context, e *Entity) error {
	_, err := s.db.NewInsert().Model(e).Exec(ctx)
	return err
}

// Update writes the given columns of e
func (s *Store) Update(ctx context.Context, e *Entity, columns ...string) error {
	_, err := s.db.NewUpdate().Model(e).Column(columns...).WherePK().Exec(ctx)
	return err
}

// Get returns an entity with its role, or nil if it does not exist
func (s *Store) Get(ctx context.Context, id string) (*Entity, error) {
	e := new(Entity)
	err := s.db.NewSelect().
		Model(e).
		Relation("Role").
		Where("en.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// GetMany loads entities with their roles keyed by id. Unknown ids are absent.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]*Entity, error) {
	out := make(map[string]*Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []*Entity
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Role").
		Where("en.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range rows {
		out[e.ID] = e
	}
	return out, nil
}

// FindByExactName matches the trimmed name case-insensitively. The oldest
// match wins when legacy duplicates exist.
func (s *Store) FindByExactName(ctx context.Context, name string) (*Entity, error) {
	e := new(Entity)
	err := s.db.NewSelect().
		Model(e).
		Relation("Role").
		Where("lower(trim(en.name)) = ?", strings.ToLower(strings.TrimSpace(name))).
		OrderExpr("en.created_at ASC, en.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Search returns entities whose name contains query (case-insensitive), ordered by name.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*Entity, error) {
	rows := make([]*Entity, 0)
	q := s.db.NewSelect().
		Model(&rows).
		Relation("Role").
		OrderExpr("lower(en.name) ASC, en.id ASC").
		Limit(limit)

	if query = strings.TrimSpace(query); query != "" {
		q = q.Where(`lower(en.name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(query))+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// NodeIDsInGraph maps entity ids to the id of the node placing them in graphID.
func (s *Store) NodeIDsInGraph(ctx context.Context, graphID string, entityIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(entityIDs))
	if len(entityIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ID       string `bun:"id"`
		EntityID string `bun:"entity_id"`
	}
	err := s.db.NewSelect().
		TableExpr("nodes").
		Column("id", "entity_id").
		Where("graph_id = ?", graphID).
		Where("entity_id IN (?)", bun.In(entityIDs)).
		OrderExpr("created_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if _, seen := out[r.EntityID]; !seen {
			out[r.EntityID] = r.ID
		}
	}
	return out, nil
}

// ListOrphans returns entities no node in any graph references.
func (s *Store) ListOrphans(ctx context.Context, limit int) ([]*Entity, error) {
	rows := make([]*Entity, 0)
	err := s.db.NewSelect().
		Model(&rows).
		Where("NOT EXISTS (SELECT 1 FROM nodes n WHERE n.entity_id = en.id)").
		OrderExpr("en.created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
