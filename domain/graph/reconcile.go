package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/metrics"
	"github.com/Tatenda/fullstori/pkg/tracing"
)

// Save makes the persisted graph equal to the client's node and edge list in
// one transaction. Persisted nodes and edges missing from the request are
// deleted, except the root, which is kept at the origin. Nothing is applied
// when any step fails.
func (s *Service) Save(ctx context.Context, graphID string, req SaveGraphRequest) (res *SaveGraphResult, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "graph.save", tracing.AttrGraphID.String(graphID))
	defer func() {
		metrics.ObserveSave(saveResult(err), time.Since(start).Seconds(), len(req.Nodes), len(req.Edges))
		tracing.Fail(span, err)
		span.End()
	}()

	if strings.TrimSpace(graphID) == "" {
		return nil, apperror.NewValidation("graphId", "graph id is required")
	}
	if err := validateShape(req); err != nil {
		return nil, err
	}

	if s.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.saveTimeout)
		defer cancel()
	}

	err = s.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		var err error
		res, err = s.reconcile(ctx, tx, graphID, req)
		return err
	})
	if err != nil {
		appErr := apperror.Classify(err)
		if errors.Is(appErr, apperror.ErrPersistence) || errors.Is(appErr, apperror.ErrTransactionInterrupted) {
			s.log.Error("graph save failed", slog.String("graph_id", graphID), logger.Error(err))
		}
		return nil, appErr
	}

	s.log.Info("graph saved",
		slog.String("graph_id", graphID),
		slog.Int("nodes", res.Nodes),
		slog.Int("edges", res.Edges),
		slog.Int("deleted_nodes", res.DeletedNodes),
		slog.Int("deleted_edges", res.DeletedEdges),
		slog.Int("deleted_events", res.DeletedEvents),
		slog.Duration("duration", time.Since(start)),
	)
	s.events.EmitChange(events.ChangeGraphSaved, graphID, "", map[string]any{
		"nodes":         res.Nodes,
		"edges":         res.Edges,
		"deletedNodes":  res.DeletedNodes,
		"deletedEdges":  res.DeletedEdges,
		"deletedEvents": res.DeletedEvents,
	})
	return res, nil
}

func (s *Service) reconcile(ctx context.Context, tx bun.IDB, graphID string, req SaveGraphRequest) (*SaveGraphResult, error) {
	repo := s.repo.Tx(tx)

	g, err := s.graphRow(ctx, tx, graphID)
	if err != nil {
		return nil, err
	}

	persisted, err := repo.ListNodes(ctx, graphID)
	if err != nil {
		return nil, err
	}
	var root *Node
	for _, n := range persisted {
		if n.IsRoot() {
			root = n
			break
		}
	}
	var rootID string
	if root != nil {
		rootID = root.ID
	}

	if err := checkEndpoints(req, rootID); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, repo, graphID, req); err != nil {
		return nil, err
	}

	entityIDs := make([]string, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		entityIDs = append(entityIDs, n.EntityID)
	}
	ents, err := s.entities.GetMany(ctx, tx, entityIDs)
	if err != nil {
		return nil, err
	}
	for _, n := range req.Nodes {
		if _, ok := ents[n.EntityID]; !ok {
			return nil, apperror.NewNotFound("entity", n.EntityID).
				WithDetails(map[string]any{"nodeId": n.ID, "entityId": n.EntityID})
		}
	}

	relIDs := make([]string, 0)
	for _, e := range req.Edges {
		if e.RelationshipTypeID != nil && *e.RelationshipTypeID != "" {
			relIDs = append(relIDs, *e.RelationshipTypeID)
		}
	}
	rels, err := s.vocab.Tx(tx).GetRelationshipTypes(ctx, relIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range relIDs {
		if _, ok := rels[id]; !ok {
			return nil, apperror.NewNotFound("relationship type", id)
		}
	}

	res := &SaveGraphResult{GraphID: graphID}

	// Nodes absent from the request go first, taking their edges with them.
	keep := make(map[string]struct{}, len(req.Nodes))
	for _, n := range req.Nodes {
		keep[n.ID] = struct{}{}
	}
	var doomed []string
	for _, n := range persisted {
		if _, ok := keep[n.ID]; !ok && !n.IsRoot() {
			doomed = append(doomed, n.ID)
		}
	}
	cascaded, strandedEvents, err := repo.DeleteNodes(ctx, graphID, doomed)
	if err != nil {
		return nil, fmt.Errorf("delete nodes: %w", err)
	}
	res.DeletedNodes = len(doomed)
	res.DeletedEdges = cascaded
	res.DeletedEvents = strandedEvents

	if rootID == "" {
		for _, n := range req.Nodes {
			if n.Kind == KindRoot {
				rootID = n.ID
				break
			}
		}
	}

	ts := time.Now().UTC()
	rows := make([]*Node, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		isRoot := n.ID == rootID
		row := &Node{
			ID:               n.ID,
			GraphID:          graphID,
			EntityID:         n.EntityID,
			PositionX:        n.Position.X,
			PositionY:        n.Position.Y,
			Kind:             DerivedKind(isRoot, ents[n.EntityID].RoleName()),
			CategoryOverride: normalizeOptional(n.CategoryOverride),
			CreatedAt:        ts,
			UpdatedAt:        ts,
		}
		if isRoot {
			row.PositionX, row.PositionY = 0, 0
		}
		rows = append(rows, row)
	}
	if err := repo.UpsertNodes(ctx, rows); err != nil {
		return nil, fmt.Errorf("upsert nodes: %w", err)
	}
	res.Nodes = len(rows)

	if rootID == "" {
		synth, err := s.synthesizeRoot(ctx, tx, g)
		if err != nil {
			return nil, fmt.Errorf("synthesize root: %w", err)
		}
		rootID = synth.ID
		res.RootSynthesized = true
	}
	res.RootNodeID = rootID

	persistedEdges, err := repo.ListEdges(ctx, graphID)
	if err != nil {
		return nil, err
	}
	keepEdges := make(map[string]struct{}, len(req.Edges))
	for _, e := range req.Edges {
		keepEdges[e.ID] = struct{}{}
	}
	var staleEdges []string
	for _, e := range persistedEdges {
		if _, ok := keepEdges[e.ID]; !ok {
			staleEdges = append(staleEdges, e.ID)
		}
	}
	removed, err := repo.DeleteEdges(ctx, graphID, staleEdges)
	if err != nil {
		return nil, fmt.Errorf("delete edges: %w", err)
	}
	res.DeletedEdges += removed

	edgeRows := make([]*Edge, 0, len(req.Edges))
	for _, e := range req.Edges {
		row := &Edge{
			ID:           e.ID,
			GraphID:      graphID,
			SourceNodeID: e.Source,
			TargetNodeID: e.Target,
			SourceHandle: normalizeOptional(e.SourceHandle),
			TargetHandle: normalizeOptional(e.TargetHandle),
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}
		if rel := normalizeOptional(e.RelationshipTypeID); rel != nil {
			row.RelationshipTypeID = rel
		} else {
			row.Label = normalizeOptional(e.Label)
		}
		edgeRows = append(edgeRows, row)
	}
	if err := repo.UpsertEdges(ctx, edgeRows); err != nil {
		return nil, fmt.Errorf("upsert edges: %w", err)
	}
	res.Edges = len(edgeRows)

	if err := repo.TouchGraph(ctx, graphID, ts); err != nil {
		return nil, err
	}
	return res, nil
}

// checkOwnership rejects node or edge ids that already belong to another graph.
func (s *Service) checkOwnership(ctx context.Context, repo *Repository, graphID string, req SaveGraphRequest) error {
	nodeIDs := make([]string, len(req.Nodes))
	for i, n := range req.Nodes {
		nodeIDs[i] = n.ID
	}
	foreign, err := repo.ForeignNodeIDs(ctx, graphID, nodeIDs)
	if err != nil {
		return err
	}
	if len(foreign) > 0 {
		return apperror.NewReferentialIntegrity(
			fmt.Sprintf("node '%s' belongs to another graph", foreign[0]),
		).WithDetails(map[string]any{"nodeId": foreign[0]})
	}

	edgeIDs := make([]string, len(req.Edges))
	for i, e := range req.Edges {
		edgeIDs[i] = e.ID
	}
	foreign, err = repo.ForeignEdgeIDs(ctx, graphID, edgeIDs)
	if err != nil {
		return err
	}
	if len(foreign) > 0 {
		return apperror.NewReferentialIntegrity(
			fmt.Sprintf("edge '%s' belongs to another graph", foreign[0]),
		).WithDetails(map[string]any{"edgeId": foreign[0]})
	}
	return nil
}

// saveResult maps a save error to its metrics label.
func saveResult(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	appErr, ok := apperror.As(err)
	if !ok {
		return metrics.ResultPersistence
	}
	switch appErr.Code {
	case apperror.ErrValidation.Code:
		return metrics.ResultValidation
	case apperror.ErrNotFound.Code:
		return metrics.ResultNotFound
	case apperror.ErrReferentialIntegrity.Code:
		return metrics.ResultIntegrity
	case apperror.ErrTransactionInterrupted.Code:
		return metrics.ResultInterrupted
	default:
		return metrics.ResultPersistence
	}
}
