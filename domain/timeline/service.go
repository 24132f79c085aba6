package timeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/domain/graph"
	"github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/metrics"
	"github.com/Tatenda/fullstori/pkg/tracing"
)

// Service manages timeline events and the edges they imply.
type Service struct {
	db     bun.IDB
	store  *Store
	graphs *graph.Service
	vocab  *registry.Store
	events *events.Service
	log    *slog.Logger
}

// NewService creates a new timeline service.
func NewService(db bun.IDB, store *Store, graphs *graph.Service, vocab *registry.Store, evts *events.Service, log *slog.Logger) *Service {
	return &Service{
		db:     db,
		store:  store,
		graphs: graphs,
		vocab:  vocab,
		events: evts,
		log:    log.With(logger.Scope("timeline.svc")),
	}
}

// List returns the events of a graph in timeline order.
func (s *Service) List(ctx context.Context, graphID string) ([]*Event, error) {
	list, err := s.store.List(ctx, graphID)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return list, nil
}

// Get returns one event of the graph.
func (s *Service) Get(ctx context.Context, graphID, eventID string) (*Event, error) {
	e, err := s.store.Get(ctx, graphID, eventID)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	if e == nil {
		return nil, apperror.NewNotFound("event", eventID)
	}
	return e, nil
}

// Create records an event. A NewTarget entity is placed on the graph before
// the event is written. The derived edge is attempted after the event has
// committed, so a failed edge leaves the event in place and is reported
// through EdgeStatus.
func (s *Service) Create(ctx context.Context, graphID string, req CreateEventRequest) (*CreateEventResult, error) {
	ctx, span := tracing.Start(ctx, "timeline.create", tracing.AttrGraphID.String(graphID))
	defer span.End()

	f := &eventFields{
		title:         strings.TrimSpace(req.Title),
		description:   optional(req.Description),
		date:          optional(req.Date),
		seriesDay:     req.SeriesDay,
		sourceGraphID: optional(req.SourceGraphID),
		sourceNodeID:  optional(req.SourceNodeID),
		targetNodeID:  optional(req.TargetNodeID),
		participants:  dedupe(req.ParticipantNodeIDs),
	}
	if err := f.validate(req.NewTarget != nil); err != nil {
		return nil, err
	}
	if req.NewTarget != nil && f.targetNodeID != nil {
		return nil, apperror.NewValidation("newTarget", "targetNodeId and newTarget are mutually exclusive")
	}
	if req.NewTarget != nil && strings.TrimSpace(req.NewTarget.Name) == "" {
		return nil, apperror.NewValidation("newTarget.name", "new target name is required")
	}

	// Everything that can be checked without writing is checked before the
	// new target is placed, so a rejected request creates nothing.
	typeID, customType, err := s.checkEventType(ctx, s.db, req.EventTypeID, req.CustomTypeName)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	if err := s.checkNodes(ctx, s.db, graphID, f.nodeIDs()); err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	res := &CreateEventResult{EdgeStatus: EdgeNotRequested}
	if req.NewTarget != nil {
		var related []string
		if f.sourceNodeID != nil {
			related = []string{*f.sourceNodeID}
		}
		placed, err := s.graphs.CreateNodeFromEntity(ctx, graphID, graph.CreateNodeRequest{
			Entity:         req.NewTarget,
			RelatedNodeIDs: related,
			Viewport:       req.Viewport,
		})
		if err != nil {
			tracing.Fail(span, err)
			return nil, err
		}
		f.targetNodeID = &placed.Node.ID
		if placed.Created {
			res.CreatedNode = &placed.Node
		}
	}

	ev := &Event{ID: uuid.NewString(), GraphID: graphID}
	err = s.graphs.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		if err := s.checkNodes(ctx, tx, graphID, f.nodeIDs()); err != nil {
			return err
		}
		if customType != "" {
			t, _, err := s.vocab.Tx(tx).GetOrCreateEventType(ctx, customType)
			if err != nil {
				return err
			}
			typeID = t.ID
		}
		order, err := s.store.Tx(tx).NextSortOrder(ctx, graphID, f.group(), "")
		if err != nil {
			return err
		}

		ts := time.Now().UTC()
		apply(ev, f)
		ev.EventTypeID = typeID
		ev.SortOrder = order
		ev.CreatedAt = ts
		ev.UpdatedAt = ts
		return s.store.Tx(tx).Insert(ctx, ev)
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, apperror.Classify(err)
	}

	if req.CreateEdge {
		s.deriveEdge(ctx, ev, res)
	}
	metrics.EventEdges.WithLabelValues(string(res.EdgeStatus)).Inc()

	if res.Event, err = s.Get(ctx, graphID, ev.ID); err != nil {
		return nil, err
	}

	s.log.Info("event created",
		slog.String("graph_id", graphID),
		slog.String("event_id", ev.ID),
		slog.String("edge_status", string(res.EdgeStatus)),
	)
	s.events.EmitChange(events.ChangeEventCreated, graphID, ev.ID, map[string]any{
		"edgeStatus": res.EdgeStatus,
	})
	return res, nil
}

// Update applies a partial edit. A title change is carried over to the
// event's derived edge; an event without one gets it created when the edit
// asks for it and both endpoints are present.
func (s *Service) Update(ctx context.Context, graphID, eventID string, req UpdateEventRequest) (*CreateEventResult, error) {
	ctx, span := tracing.Start(ctx, "timeline.update",
		tracing.AttrGraphID.String(graphID),
		tracing.AttrEventID.String(eventID),
	)
	defer span.End()

	var (
		ev           *Event
		titleChanged bool
	)
	err := s.graphs.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		store := s.store.Tx(tx)

		var err error
		ev, err = store.Get(ctx, graphID, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return apperror.NewNotFound("event", eventID)
		}

		f := fieldsOf(ev)
		cols := []string{"updated_at"}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			titleChanged = title != ev.Title
			f.title = title
			cols = append(cols, "title")
		}
		if req.Description != nil {
			f.description = optional(req.Description)
			cols = append(cols, "description")
		}
		if req.Date != nil {
			f.date = optional(req.Date)
			cols = append(cols, "event_date")
		}
		if req.ClearSeriesDay {
			f.seriesDay = nil
			cols = append(cols, "series_day")
		} else if req.SeriesDay != nil {
			f.seriesDay = req.SeriesDay
			cols = append(cols, "series_day")
		}
		if req.SourceGraphID != nil {
			f.sourceGraphID = optional(req.SourceGraphID)
			cols = append(cols, "source_graph_id")
		}
		if req.SourceNodeID != nil {
			f.sourceNodeID = optional(req.SourceNodeID)
			cols = append(cols, "source_node_id")
		}
		if req.TargetNodeID != nil {
			f.targetNodeID = optional(req.TargetNodeID)
			cols = append(cols, "target_node_id")
		}
		if req.ParticipantNodeIDs != nil {
			f.participants = dedupe(*req.ParticipantNodeIDs)
		}
		if err := f.validate(false); err != nil {
			return err
		}
		if err := s.checkNodes(ctx, tx, graphID, f.nodeIDs()); err != nil {
			return err
		}

		if req.EventTypeID != nil || req.CustomTypeName != nil {
			typeID, customType, err := s.checkEventType(ctx, tx, req.EventTypeID, req.CustomTypeName)
			if err != nil {
				return err
			}
			if customType != "" {
				t, _, err := s.vocab.Tx(tx).GetOrCreateEventType(ctx, customType)
				if err != nil {
					return err
				}
				typeID = t.ID
			}
			ev.EventTypeID = typeID
			cols = append(cols, "event_type_id")
		}

		if !f.group().Equal(ev.Group()) {
			order, err := store.NextSortOrder(ctx, graphID, f.group(), ev.ID)
			if err != nil {
				return err
			}
			ev.SortOrder = order
			cols = append(cols, "sort_order")
		}

		apply(ev, f)
		ev.UpdatedAt = time.Now().UTC()
		if err := store.Update(ctx, ev, cols...); err != nil {
			return err
		}
		if req.ParticipantNodeIDs != nil {
			return store.ReplaceParticipants(ctx, ev.ID, f.participants)
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, apperror.Classify(err)
	}

	res := &CreateEventResult{EdgeStatus: EdgeNotRequested}
	switch {
	case ev.CreatedEdgeID != nil:
		if titleChanged {
			if _, err := s.graphs.SyncEventEdgeLabel(ctx, graphID, *ev.CreatedEdgeID, ev.Title); err != nil {
				s.log.Warn("failed to sync derived edge label",
					slog.String("event_id", ev.ID),
					slog.String("edge_id", *ev.CreatedEdgeID),
					logger.Error(err),
				)
			}
		}
	case req.CreateEdge:
		s.deriveEdge(ctx, ev, res)
		metrics.EventEdges.WithLabelValues(string(res.EdgeStatus)).Inc()
	}

	if res.Event, err = s.Get(ctx, graphID, ev.ID); err != nil {
		return nil, err
	}
	s.events.EmitChange(events.ChangeEventUpdated, graphID, ev.ID, nil)
	return res, nil
}

// Delete removes an event. Its derived edge stays on the graph with the
// provenance cleared.
func (s *Service) Delete(ctx context.Context, graphID, eventID string) error {
	err := s.graphs.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		store := s.store.Tx(tx)
		ev, err := store.Get(ctx, graphID, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return apperror.NewNotFound("event", eventID)
		}
		if err := s.graphs.ClearEdgeProvenance(ctx, tx, eventID); err != nil {
			return err
		}
		return store.Delete(ctx, graphID, eventID)
	})
	if err != nil {
		return apperror.Classify(err)
	}

	s.log.Info("event deleted", slog.String("graph_id", graphID), slog.String("event_id", eventID))
	s.events.EmitChange(events.ChangeEventDeleted, graphID, eventID, nil)
	return nil
}

// Reorder rewrites the sort order of one group to the position of each id in
// OrderedIDs. The ids must be exactly the events of the group.
func (s *Service) Reorder(ctx context.Context, graphID string, req ReorderRequest) error {
	g := Group{Date: optional(req.Date), SeriesDay: req.SeriesDay}.normalize()
	if g.Date != nil {
		if _, err := time.Parse(time.DateOnly, *g.Date); err != nil {
			return apperror.NewValidation("date", "date must be formatted as YYYY-MM-DD")
		}
	}

	err := s.graphs.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		store := s.store.Tx(tx)
		current, err := store.GroupIDs(ctx, graphID, g)
		if err != nil {
			return err
		}
		if !sameSet(current, req.OrderedIDs) {
			return apperror.NewValidation("orderedIds", "orderedIds must list exactly the events of the group").
				WithDetails(map[string]any{"field": "orderedIds", "expected": len(current), "got": len(req.OrderedIDs)})
		}
		for i, id := range req.OrderedIDs {
			if err := store.SetSortOrder(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperror.Classify(err)
	}

	change := events.NewChange(events.ChangeEventsReordered, graphID, "", nil)
	change.IDs = req.OrderedIDs
	s.events.Emit(change)
	return nil
}

// deriveEdge applies the event-to-edge rule for ev and records the outcome
// on res. An edge that already joined the pair is reported as ExistingEdge
// and never as CreatedEdge.
func (s *Service) deriveEdge(ctx context.Context, ev *Event, res *CreateEventResult) {
	if ev.SourceNodeID == nil || ev.TargetNodeID == nil {
		res.EdgeStatus = EdgeMissingEndpoint
		return
	}
	if *ev.SourceNodeID == *ev.TargetNodeID {
		res.EdgeStatus = EdgeSelfLoop
		return
	}

	edge, created, err := s.graphs.EnsureEventEdge(ctx, ev.GraphID, graph.EventEdgeRequest{
		EventID:      ev.ID,
		SourceNodeID: *ev.SourceNodeID,
		TargetNodeID: *ev.TargetNodeID,
		Label:        ev.Title,
	})
	switch {
	case err != nil:
		s.log.Warn("edge derivation failed",
			slog.String("graph_id", ev.GraphID),
			slog.String("event_id", ev.ID),
			logger.Error(err),
		)
		msg := err.Error()
		res.EdgeStatus, res.EdgeError = EdgeFailed, &msg
	case !created:
		res.EdgeStatus, res.ExistingEdge = EdgeExists, edge
	default:
		ev.CreatedEdgeID = &edge.ID
		res.EdgeStatus, res.CreatedEdge = EdgeCreated, edge
	}
}

// checkEventType returns the id of an existing type, or the trimmed custom
// name to register inside the write transaction.
func (s *Service) checkEventType(ctx context.Context, db bun.IDB, typeID, customName *string) (string, string, error) {
	if id := optional(typeID); id != nil {
		t, err := s.vocab.Tx(db).GetEventType(ctx, *id)
		if err != nil {
			return "", "", apperror.Classify(err)
		}
		if t == nil {
			return "", "", apperror.NewNotFound("event type", *id)
		}
		return t.ID, "", nil
	}
	if name := optional(customName); name != nil {
		return "", *name, nil
	}
	return "", "", apperror.NewValidation("eventTypeId", "eventTypeId or customTypeName is required")
}

func (s *Service) checkNodes(ctx context.Context, db bun.IDB, graphID string, ids []string) error {
	found, err := s.graphs.FindNodes(ctx, db, graphID, ids)
	if err != nil {
		return apperror.Classify(err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return apperror.NewNotFound("node", id)
		}
	}
	return nil
}

func fieldsOf(e *Event) *eventFields {
	return &eventFields{
		title:         e.Title,
		description:   e.Description,
		date:          e.Date,
		seriesDay:     e.SeriesDay,
		sourceGraphID: e.SourceGraphID,
		sourceNodeID:  e.SourceNodeID,
		targetNodeID:  e.TargetNodeID,
		participants:  e.ParticipantNodeIDs,
	}
}

func apply(e *Event, f *eventFields) {
	e.Title = f.title
	e.Description = f.description
	e.Date = f.date
	e.SeriesDay = f.seriesDay
	e.SourceGraphID = f.sourceGraphID
	e.SourceNodeID = f.sourceNodeID
	e.TargetNodeID = f.targetNodeID
	e.ParticipantNodeIDs = f.participants
}

func sameSet(current, ordered []string) bool {
	if len(current) != len(ordered) {
		return false
	}
	want := make(map[string]struct{}, len(current))
	for _, id := range current {
		want[id] = struct{}{}
	}
	for _, id := range ordered {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return true
}
