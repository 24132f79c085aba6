package graph

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/pkg/apperror"
)

// EventEdgeRequest asks for the edge an event implies between two nodes.
type EventEdgeRequest struct {
	EventID      string
	SourceNodeID string
	TargetNodeID string
	Label        string
}

// EnsureEventEdge creates the edge for an event's ordered node pair unless
// one already exists. A new edge is labeled with the event title, remembers
// the event that produced it, and is linked back from the event in the same
// transaction. created is false when an edge for the pair already existed.
func (s *Service) EnsureEventEdge(ctx context.Context, graphID string, req EventEdgeRequest) (edge *EdgeView, created bool, err error) {
	if req.SourceNodeID == req.TargetNodeID {
		return nil, false, apperror.NewValidation("targetNodeId", "an event edge cannot connect a node to itself")
	}

	err = s.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		repo := s.repo.Tx(tx)

		nodes, err := repo.NodesInGraph(ctx, graphID, []string{req.SourceNodeID, req.TargetNodeID})
		if err != nil {
			return err
		}
		for _, id := range []string{req.SourceNodeID, req.TargetNodeID} {
			if _, ok := nodes[id]; !ok {
				return apperror.NewNotFound("node", id)
			}
		}

		existing, err := repo.FindEdgeByPair(ctx, graphID, req.SourceNodeID, req.TargetNodeID)
		if err != nil {
			return err
		}
		if existing != nil {
			v := edgeView(existing)
			edge = &v
			return nil
		}

		ts := time.Now().UTC()
		e := &Edge{
			ID:                 uuid.NewString(),
			GraphID:            graphID,
			SourceNodeID:       req.SourceNodeID,
			TargetNodeID:       req.TargetNodeID,
			CreatedFromEventID: &req.EventID,
			CreatedAt:          ts,
			UpdatedAt:          ts,
		}
		if label := strings.TrimSpace(req.Label); label != "" {
			e.Label = &label
		}
		if err := repo.InsertEdge(ctx, e); err != nil {
			return err
		}
		if err := repo.LinkEventEdge(ctx, req.EventID, e.ID); err != nil {
			return err
		}
		if err := repo.TouchGraph(ctx, graphID, ts); err != nil {
			return err
		}

		v := edgeView(e)
		edge = &v
		created = true
		return nil
	})
	if err != nil {
		return nil, false, apperror.Classify(err)
	}

	if created {
		s.events.EmitChange(events.ChangeGraphUpdated, graphID, edge.ID, map[string]any{
			"edgeId":  edge.ID,
			"eventId": req.EventID,
		})
		s.log.Info("edge derived from event",
			slog.String("graph_id", graphID),
			slog.String("edge_id", edge.ID),
			slog.String("event_id", req.EventID),
		)
	}
	return edge, created, nil
}

// SyncEventEdgeLabel makes a derived edge's label follow its event title.
// Relationship-backed edges keep their relationship. It reports whether the
// edge changed.
func (s *Service) SyncEventEdgeLabel(ctx context.Context, graphID, edgeID, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}

	var changed bool
	err := s.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		var err error
		changed, err = s.repo.Tx(tx).SetEdgeLabel(ctx, graphID, edgeID, title, time.Now().UTC())
		return err
	})
	if err != nil {
		return false, apperror.Classify(err)
	}
	if changed {
		s.events.EmitChange(events.ChangeGraphUpdated, graphID, edgeID, map[string]any{"edgeId": edgeID})
	}
	return changed, nil
}

// ClearEdgeProvenance detaches derived edges from a deleted event. The edges
// themselves are kept. db is usually the caller's transaction.
func (s *Service) ClearEdgeProvenance(ctx context.Context, db bun.IDB, eventID string) error {
	return s.repo.Tx(db).ClearEdgeProvenance(ctx, eventID)
}

// FindNodes returns the subset of ids that are nodes of the graph.
func (s *Service) FindNodes(ctx context.Context, db bun.IDB, graphID string, ids []string) (map[string]*Node, error) {
	return s.repo.Tx(db).NodesInGraph(ctx, graphID, ids)
}

func edgeView(e *Edge) EdgeView {
	return EdgeView{
		ID:                 e.ID,
		Source:             e.SourceNodeID,
		Target:             e.TargetNodeID,
		Label:              e.Label,
		RelationshipTypeID: e.RelationshipTypeID,
		SourceHandle:       e.SourceHandle,
		TargetHandle:       e.TargetHandle,
		CreatedFromEventID: e.CreatedFromEventID,
	}
}
