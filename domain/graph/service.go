package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/singleflight"

	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/domain/layout"
	"github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/database"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/keylock"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/mathutil"
	"github.com/Tatenda/fullstori/pkg/metrics"
	"github.com/Tatenda/fullstori/pkg/tracing"
)

// Service owns graph state: loading, reconciliation and every write that
// must be serialized per graph.
type Service struct {
	db       bun.IDB
	repo     *Repository
	entities *entities.Service
	vocab    *registry.Store
	events   *events.Service
	log      *slog.Logger

	locks *keylock.Locker
	loads singleflight.Group

	defaultName       string
	saveTimeout       time.Duration
	layoutMaxAttempts int
}

// NewService creates a new graph service.
func NewService(
	db bun.IDB,
	repo *Repository,
	ents *entities.Service,
	vocab *registry.Store,
	evts *events.Service,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return &Service{
		db:                db,
		repo:              repo,
		entities:          ents,
		vocab:             vocab,
		events:            evts,
		log:               log.With(logger.Scope("graph.svc")),
		locks:             keylock.New(),
		defaultName:       cfg.Graph.DefaultName,
		saveTimeout:       cfg.Graph.SaveTimeout,
		layoutMaxAttempts: cfg.Graph.LayoutMaxAttempts,
	}
}

// WithGraphLock runs fn in a transaction while holding the graph's write
// lock: an in-process keyed mutex plus, on Postgres, a transaction-scoped
// advisory lock shared with other server instances.
func (s *Service) WithGraphLock(ctx context.Context, graphID string, fn func(ctx context.Context, tx bun.IDB) error) error {
	unlock, err := s.locks.Lock(ctx, graphID)
	if err != nil {
		return err
	}
	defer unlock()

	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.IDB) error {
		if err := database.AdvisoryXactLock(ctx, tx, "graph:"+graphID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

// Load returns the full state of a graph. Unknown graphs are created and a
// graph without a root gets one before anything is returned.
func (s *Service) Load(ctx context.Context, graphID string) (*GraphState, error) {
	if strings.TrimSpace(graphID) == "" {
		return nil, apperror.NewValidation("graphId", "graph id is required")
	}

	ctx, span := tracing.Start(ctx, "graph.load", tracing.AttrGraphID.String(graphID))
	defer span.End()

	// The flight is shared by every concurrent caller, so it ignores the
	// first caller's cancellation and is bounded by the save timeout instead.
	ch := s.loads.DoChan(graphID, func() (any, error) {
		fctx, cancel := s.detached(ctx)
		defer cancel()
		return s.ensureGraph(fctx, graphID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		tracing.Fail(span, ctx.Err())
		return nil, apperror.Classify(ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		tracing.Fail(span, res.Err)
		return nil, apperror.Classify(res.Err)
	}

	state, err := s.hydrate(ctx, s.db, res.Val.(*Graph))
	if err != nil {
		tracing.Fail(span, err)
		return nil, apperror.Classify(err)
	}
	return state, nil
}

func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.saveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.saveTimeout)
}

// ensureGraph returns the graph, creating it and its root as needed.
func (s *Service) ensureGraph(ctx context.Context, graphID string) (*Graph, error) {
	g, err := s.repo.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if g != nil {
		root, err := s.repo.GetRoot(ctx, graphID)
		if err != nil {
			return nil, err
		}
		if root != nil {
			return g, nil
		}
	}

	var rootCreated bool
	err = s.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		g, err = s.graphRow(ctx, tx, graphID)
		if err != nil {
			return err
		}
		_, rootCreated, err = s.ensureRoot(ctx, tx, g)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rootCreated {
		s.events.EmitChange(events.ChangeGraphUpdated, graphID, "", map[string]any{"rootSynthesized": true})
	}
	return g, nil
}

// graphRow returns the graph row, inserting it with the default name when
// missing. Concurrent inserts of the same id converge on one row.
func (s *Service) graphRow(ctx context.Context, db bun.IDB, graphID string) (*Graph, error) {
	repo := s.repo.Tx(db)
	g, err := repo.GetGraph(ctx, graphID)
	if err != nil || g != nil {
		return g, err
	}

	ts := time.Now().UTC()
	g = &Graph{ID: graphID, Name: s.defaultName, CreatedAt: ts, UpdatedAt: ts}
	if err := repo.InsertGraphIfMissing(ctx, g); err != nil {
		return nil, err
	}
	g, err = repo.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("graph %s vanished after insert", graphID)
	}
	s.log.Info("graph created", slog.String("graph_id", graphID), slog.String("name", g.Name))
	return g, nil
}

// ensureRoot returns the root of g, synthesizing one when absent.
func (s *Service) ensureRoot(ctx context.Context, tx bun.IDB, g *Graph) (*Node, bool, error) {
	root, err := s.repo.Tx(tx).GetRoot(ctx, g.ID)
	if err != nil {
		return nil, false, err
	}
	if root != nil {
		return root, false, nil
	}
	root, err = s.synthesizeRoot(ctx, tx, g)
	if err != nil {
		return nil, false, err
	}
	return root, true, nil
}

// synthesizeRoot creates a root node at the origin for an entity named after
// the graph with the Root role.
func (s *Service) synthesizeRoot(ctx context.Context, tx bun.IDB, g *Graph) (*Node, error) {
	role, _, err := s.vocab.Tx(tx).GetOrCreateRole(ctx, RootRoleName, registry.CategoryOfficial)
	if err != nil {
		return nil, err
	}

	ent, _, err := s.entities.FindOrCreateByExactName(ctx, tx, entities.CreateEntityRequest{
		Name:       g.Name,
		RoleID:     role.ID,
		EntityType: string(entities.TypeOrganization),
	})
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	root := &Node{
		ID:        uuid.NewString(),
		GraphID:   g.ID,
		EntityID:  ent.ID,
		Kind:      KindRoot,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.repo.Tx(tx).InsertNode(ctx, root); err != nil {
		return nil, err
	}

	metrics.RootsSynthesized.Inc()
	s.log.Warn("graph had no root, synthesized one",
		slog.String("graph_id", g.ID),
		slog.String("node_id", root.ID),
		slog.String("entity_id", ent.ID),
	)
	return root, nil
}

// hydrate joins nodes with their entities and edges with their relationship
// names. Stale cached kinds are rewritten best-effort.
func (s *Service) hydrate(ctx context.Context, db bun.IDB, g *Graph) (*GraphState, error) {
	repo := s.repo.Tx(db)

	nodes, err := repo.ListNodes(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	edges, err := repo.ListEdges(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	entityIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		entityIDs = append(entityIDs, n.EntityID)
	}
	ents, err := s.entities.GetMany(ctx, db, entityIDs)
	if err != nil {
		return nil, err
	}

	var relIDs []string
	for _, e := range edges {
		if e.RelationshipTypeID != nil {
			relIDs = append(relIDs, *e.RelationshipTypeID)
		}
	}
	rels, err := s.vocab.Tx(db).GetRelationshipTypes(ctx, relIDs)
	if err != nil {
		return nil, err
	}

	state := &GraphState{
		Graph: g,
		Nodes: make([]NodeView, 0, len(nodes)),
		Edges: make([]EdgeView, 0, len(edges)),
	}

	for _, n := range nodes {
		view := nodeView(n, ents[n.EntityID])
		if view.Kind != n.Kind {
			if err := repo.UpdateNodeKind(ctx, n.ID, view.Kind); err != nil {
				s.log.Warn("failed to refresh node kind",
					slog.String("node_id", n.ID),
					logger.Error(err),
				)
			}
		}
		state.Nodes = append(state.Nodes, view)
	}

	for _, e := range edges {
		view := edgeView(e)
		if e.RelationshipTypeID != nil {
			if rel, ok := rels[*e.RelationshipTypeID]; ok {
				name := rel.Name
				view.Label = &name
			}
		}
		state.Edges = append(state.Edges, view)
	}

	return state, nil
}

// nodeView builds the client view of n. ent may be nil only if the entity
// row is gone, in which case display fields stay empty.
func nodeView(n *Node, ent *entities.Entity) NodeView {
	view := NodeView{
		ID:               n.ID,
		EntityID:         n.EntityID,
		Position:         Position{X: n.PositionX, Y: n.PositionY},
		CategoryOverride: n.CategoryOverride,
	}

	var roleName string
	if ent != nil {
		roleName = ent.RoleName()
		view.Name = ent.Name
		view.Role = roleName
		view.RoleID = ent.RoleID
		view.RoleCategory = string(ent.RoleCategory())
		view.EntityType = string(ent.EntityType)
		view.Description = ent.Description
		view.Avatar = ent.Avatar
	}

	view.Kind = DerivedKind(n.IsRoot(), roleName)
	view.Category = view.RoleCategory
	if n.CategoryOverride != nil {
		view.Category = *n.CategoryOverride
	}
	return view
}

// Get returns graph metadata.
func (s *Service) Get(ctx context.Context, graphID string) (*Graph, error) {
	g, err := s.repo.GetGraph(ctx, graphID)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	if g == nil {
		return nil, apperror.NewNotFound("graph", graphID)
	}
	return g, nil
}

// List returns every graph, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*Graph, error) {
	graphs, err := s.repo.ListGraphs(ctx)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return graphs, nil
}

// UpdateSettings changes the name, description or root connector labels.
func (s *Service) UpdateSettings(ctx context.Context, graphID string, req UpdateSettingsRequest) (*Graph, error) {
	g, err := s.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.NewValidation("name", "graph name cannot be empty")
		}
		g.Name = name
		columns = append(columns, "name")
	}

	optional := []struct {
		in     *string
		dst    **string
		column string
	}{
		{req.Description, &g.Description, "description"},
		{req.RootLabelTop, &g.RootLabelTop, "root_label_top"},
		{req.RootLabelRight, &g.RootLabelRight, "root_label_right"},
		{req.RootLabelBottom, &g.RootLabelBottom, "root_label_bottom"},
		{req.RootLabelLeft, &g.RootLabelLeft, "root_label_left"},
	}
	for _, f := range optional {
		if f.in == nil {
			continue
		}
		*f.dst = normalizeOptional(f.in)
		columns = append(columns, f.column)
	}

	g.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateGraph(ctx, g, columns...); err != nil {
		return nil, apperror.Classify(err)
	}

	s.events.EmitChange(events.ChangeGraphUpdated, graphID, "", map[string]any{"settings": columns[1:]})
	return g, nil
}

// CreateNodeFromEntity places an entity on the graph. An entity already on
// the graph keeps its node; otherwise the node is positioned near the related
// nodes without overlapping others.
func (s *Service) CreateNodeFromEntity(ctx context.Context, graphID string, req CreateNodeRequest) (*CreateNodeResult, error) {
	if (req.EntityID == nil) == (req.Entity == nil) {
		return nil, apperror.NewValidation("entityId", "exactly one of entityId and entity is required")
	}
	if req.Viewport != nil && !finitePosition(*req.Viewport) {
		return nil, apperror.NewValidation("viewport", "viewport must be finite")
	}

	if _, err := s.ensureGraph(ctx, graphID); err != nil {
		return nil, apperror.Classify(err)
	}

	var res *CreateNodeResult
	err := s.WithGraphLock(ctx, graphID, func(ctx context.Context, tx bun.IDB) error {
		var err error
		res, err = s.createNode(ctx, tx, graphID, req)
		return err
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}

	if res.Created {
		s.events.EmitChange(events.ChangeNodeCreated, graphID, res.Node.ID, map[string]any{
			"entityId": res.Node.EntityID,
		})
		s.log.Info("node created from entity",
			slog.String("graph_id", graphID),
			slog.String("node_id", res.Node.ID),
			slog.String("entity_id", res.Node.EntityID),
		)
	}
	return res, nil
}

func (s *Service) createNode(ctx context.Context, tx bun.IDB, graphID string, req CreateNodeRequest) (*CreateNodeResult, error) {
	repo := s.repo.Tx(tx)

	var (
		ent           *entities.Entity
		entityCreated bool
	)
	if req.EntityID != nil {
		found, err := s.entities.GetMany(ctx, tx, []string{*req.EntityID})
		if err != nil {
			return nil, err
		}
		ent = found[*req.EntityID]
		if ent == nil {
			return nil, apperror.NewNotFound("entity", *req.EntityID)
		}
	} else {
		var err error
		ent, entityCreated, err = s.entities.FindOrCreateByExactName(ctx, tx, *req.Entity)
		if err != nil {
			return nil, err
		}
	}

	existing, err := repo.FindNodeByEntity(ctx, graphID, ent.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CreateNodeResult{Node: nodeView(existing, ent), EntityCreated: entityCreated}, nil
	}

	related, err := repo.NodesInGraph(ctx, graphID, req.RelatedNodeIDs)
	if err != nil {
		return nil, err
	}
	relatedPoints := make([]layout.Point, 0, len(req.RelatedNodeIDs))
	for _, id := range req.RelatedNodeIDs {
		n, ok := related[id]
		if !ok {
			return nil, apperror.NewNotFound("node", id)
		}
		relatedPoints = append(relatedPoints, layout.Point{X: n.PositionX, Y: n.PositionY})
	}

	positions, err := repo.Positions(ctx, graphID)
	if err != nil {
		return nil, err
	}
	occupied := make([]layout.Point, len(positions))
	for i, p := range positions {
		occupied[i] = p.point()
	}

	var viewport *layout.Point
	if req.Viewport != nil {
		vp := req.Viewport.point()
		viewport = &vp
	}
	pos := positionOf(layout.Resolve(layout.Place(relatedPoints, viewport), occupied, s.layoutMaxAttempts))

	ts := time.Now().UTC()
	node := &Node{
		ID:        uuid.NewString(),
		GraphID:   graphID,
		EntityID:  ent.ID,
		PositionX: pos.X,
		PositionY: pos.Y,
		Kind:      DerivedKind(false, ent.RoleName()),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := repo.InsertNode(ctx, node); err != nil {
		return nil, err
	}
	if err := repo.TouchGraph(ctx, graphID, ts); err != nil {
		return nil, err
	}

	return &CreateNodeResult{Node: nodeView(node, ent), Created: true, EntityCreated: entityCreated}, nil
}

// HealMissingRoots synthesizes roots for up to limit graphs that lack one.
func (s *Service) HealMissingRoots(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.GraphIDsWithoutRoot(ctx, limit)
	if err != nil {
		return 0, apperror.Classify(err)
	}

	healed := 0
	for _, id := range ids {
		if _, err := s.ensureGraph(ctx, id); err != nil {
			s.log.Error("failed to heal graph root", slog.String("graph_id", id), logger.Error(err))
			continue
		}
		healed++
	}
	return healed, nil
}

func finitePosition(p Position) bool {
	return mathutil.Finite(p.X, p.Y)
}
