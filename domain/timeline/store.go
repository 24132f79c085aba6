package timeline

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// Store handles persistence of timeline events.
type Store struct {
	db bun.IDB
}

// NewStore creates a new timeline store.
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// Tx returns a store bound to db, usually a transaction.
func (s *Store) Tx(db bun.IDB) *Store {
	return &Store{db: db}
}

// Insert stores the event and its participants.
func (s *Store) Insert(ctx context.Context, e *Event) error {
	if _, err := s.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return err
	}
	return s.ReplaceParticipants(ctx, e.ID, e.ParticipantNodeIDs)
}

// Update writes the given columns of e.
func (s *Store) Update(ctx context.Context, e *Event, columns ...string) error {
	_, err := s.db.NewUpdate().Model(e).Column(columns...).WherePK().Exec(ctx)
	return err
}

// Get returns an event of the graph with its type and participants, or nil.
func (s *Store) Get(ctx context.Context, graphID, id string) (*Event, error) {
	e := new(Event)
	err := s.db.NewSelect().
		Model(e).
		Relation("EventType").
		Where("ev.id = ?", id).
		Where("ev.graph_id = ?", graphID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadParticipants(ctx, []*Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns the events of a graph ordered by date, then series day, then
// sort order. Undated groups come last.
func (s *Store) List(ctx context.Context, graphID string) ([]*Event, error) {
	events := make([]*Event, 0)
	err := s.db.NewSelect().
		Model(&events).
		Relation("EventType").
		Where("ev.graph_id = ?", graphID).
		OrderExpr("(ev.event_date IS NULL) ASC, ev.event_date ASC").
		OrderExpr("(ev.series_day IS NULL) ASC, ev.series_day ASC").
		OrderExpr("ev.sort_order ASC, ev.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadParticipants(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Delete removes an event. Participant rows go with it.
func (s *Store) Delete(ctx context.Context, graphID, id string) error {
	if _, err := s.db.NewDelete().Model((*Participant)(nil)).Where("event_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*Event)(nil)).
		Where("id = ?", id).
		Where("graph_id = ?", graphID).
		Exec(ctx)
	return err
}

// NextSortOrder returns one past the highest sort order in the group, or 0
// for an empty group. excludeID, when set, is left out.
func (s *Store) NextSortOrder(ctx context.Context, graphID string, g Group, excludeID string) (int, error) {
	var top sql.NullInt64
	q := s.db.NewSelect().
		Model((*Event)(nil)).
		ColumnExpr("MAX(ev.sort_order)").
		Where("ev.graph_id = ?", graphID)
	q = g.where(q)
	if excludeID != "" {
		q = q.Where("ev.id <> ?", excludeID)
	}
	if err := q.Scan(ctx, &top); err != nil {
		return 0, err
	}
	if !top.Valid {
		return 0, nil
	}
	return int(top.Int64) + 1, nil
}

// GroupIDs returns the ids of the events in the group.
func (s *Store) GroupIDs(ctx context.Context, graphID string, g Group) ([]string, error) {
	var ids []string
	q := s.db.NewSelect().
		Model((*Event)(nil)).
		ColumnExpr("ev.id").
		Where("ev.graph_id = ?", graphID)
	if err := g.where(q).Scan(ctx, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetSortOrder rewrites the sort order of one event.
func (s *Store) SetSortOrder(ctx context.Context, id string, order int) error {
	_, err := s.db.NewUpdate().
		Model((*Event)(nil)).
		Set("sort_order = ?", order).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ReplaceParticipants makes nodeIDs the participant set of the event.
func (s *Store) ReplaceParticipants(ctx context.Context, eventID string, nodeIDs []string) error {
	if _, err := s.db.NewDelete().Model((*Participant)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
		return err
	}
	if len(nodeIDs) == 0 {
		return nil
	}
	rows := make([]*Participant, len(nodeIDs))
	for i, id := range nodeIDs {
		rows[i] = &Participant{EventID: eventID, NodeID: id}
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (s *Store) loadParticipants(ctx context.Context, events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	byID := make(map[string]*Event, len(events))
	ids := make([]string, len(events))
	for i, e := range events {
		e.ParticipantNodeIDs = []string{}
		byID[e.ID] = e
		ids[i] = e.ID
	}

	var rows []*Participant
	err := s.db.NewSelect().
		Model(&rows).
		Where("ep.event_id IN (?)", bun.In(ids)).
		OrderExpr("ep.node_id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if e, ok := byID[r.EventID]; ok {
			e.ParticipantNodeIDs = append(e.ParticipantNodeIDs, r.NodeID)
		}
	}
	return nil
}
