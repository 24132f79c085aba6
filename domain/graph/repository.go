package graph

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Repository handles database operations for graphs, nodes and edges.
type Repository struct {
	db bun.IDB
}

// NewRepository creates a new graph repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Tx returns a repository bound to db, usually a transaction.
func (r *Repository) Tx(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// --- graphs ---

// GetGraph returns a graph, or nil when it does not exist.
func (r *Repository) GetGraph(ctx context.Context, id string) (*Graph, error) {
	g := new(Graph)
	err := r.db.NewSelect().Model(g).Where("g.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// InsertGraphIfMissing inserts g unless a graph with its id exists.
func (r *Repository) InsertGraphIfMissing(ctx context.Context, g *Graph) error {
	_, err := r.db.NewInsert().Model(g).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

// UpdateGraph writes the given columns of g.
func (r *Repository) UpdateGraph(ctx context.Context, g *Graph, columns ...string) error {
	_, err := r.db.NewUpdate().Model(g).Column(columns...).WherePK().Exec(ctx)
	return err
}

// TouchGraph bumps updated_at.
func (r *Repository) TouchGraph(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*Graph)(nil)).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ListGraphs returns all graphs, most recently updated first.
func (r *Repository) ListGraphs(ctx context.Context) ([]*Graph, error) {
	graphs := make([]*Graph, 0)
	err := r.db.NewSelect().Model(&graphs).OrderExpr("g.updated_at DESC, g.id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return graphs, nil
}

// GraphIDsWithoutRoot returns up to limit graphs that have no root node.
func (r *Repository) GraphIDsWithoutRoot(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*Graph)(nil)).
		ColumnExpr("g.id").
		Where("NOT EXISTS (SELECT 1 FROM nodes n WHERE n.graph_id = g.id AND n.kind = ?)", KindRoot).
		OrderExpr("g.created_at ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- nodes ---

// ListNodes returns the nodes of a graph in creation order.
func (r *Repository) ListNodes(ctx context.Context, graphID string) ([]*Node, error) {
	nodes := make([]*Node, 0)
	err := r.db.NewSelect().
		Model(&nodes).
		Where("n.graph_id = ?", graphID).
		OrderExpr("n.created_at ASC, n.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode returns a node of the graph, or nil.
func (r *Repository) GetNode(ctx context.Context, graphID, id string) (*Node, error) {
	n := new(Node)
	err := r.db.NewSelect().
		Model(n).
		Where("n.id = ?", id).
		Where("n.graph_id = ?", graphID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetRoot returns the root node of a graph, or nil.
func (r *Repository) GetRoot(ctx context.Context, graphID string) (*Node, error) {
	n := new(Node)
	err := r.db.NewSelect().
		Model(n).
		Where("n.graph_id = ?", graphID).
		Where("n.kind = ?", KindRoot).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FindNodeByEntity returns the oldest node placing entityID in the graph, or nil.
func (r *Repository) FindNodeByEntity(ctx context.Context, graphID, entityID string) (*Node, error) {
	n := new(Node)
	err := r.db.NewSelect().
		Model(n).
		Where("n.graph_id = ?", graphID).
		Where("n.entity_id = ?", entityID).
		OrderExpr("n.created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NodesInGraph returns the subset of ids that are nodes of graphID.
func (r *Repository) NodesInGraph(ctx context.Context, graphID string, ids []string) (map[string]*Node, error) {
	out := make(map[string]*Node, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var nodes []*Node
	err := r.db.NewSelect().
		Model(&nodes).
		Where("n.graph_id = ?", graphID).
		Where("n.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out, nil
}

// ForeignNodeIDs returns the ids that already belong to a graph other than graphID.
func (r *Repository) ForeignNodeIDs(ctx context.Context, graphID string, ids []string) ([]string, error) {
	return foreignIDs(ctx, r.db, "nodes", graphID, ids)
}

// InsertNode inserts a single node.
func (r *Repository) InsertNode(ctx context.Context, n *Node) error {
	_, err := r.db.NewInsert().Model(n).Exec(ctx)
	return err
}

// UpsertNodes inserts nodes or updates position, entity, kind and category
// override of existing ones. The owning graph never changes.
func (r *Repository) UpsertNodes(ctx context.Context, nodes []*Node) error {
	if len(nodes) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&nodes).
		On("CONFLICT (id) DO UPDATE").
		Set("entity_id = EXCLUDED.entity_id").
		Set("position_x = EXCLUDED.position_x").
		Set("position_y = EXCLUDED.position_y").
		Set("kind = EXCLUDED.kind").
		Set("category_override = EXCLUDED.category_override").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// UpdateNodeKind rewrites the cached kind of one node.
func (r *Repository) UpdateNodeKind(ctx context.Context, id string, kind NodeKind) error {
	_, err := r.db.NewUpdate().
		Model((*Node)(nil)).
		Set("kind = ?", kind).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteNodes removes nodes of the graph together with their incident edges.
// Events referencing the nodes lose those references and participant rows;
// an event left without any node reference is deleted, since every event must
// be anchored to the graph. It returns the number of edges and events removed.
func (r *Repository) DeleteNodes(ctx context.Context, graphID string, ids []string) (edges, events int, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}

	var edgeIDs []string
	err = r.db.NewSelect().
		Model((*Edge)(nil)).
		ColumnExpr("e.id").
		Where("e.graph_id = ?", graphID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("e.source_node_id IN (?)", bun.In(ids)).
				WhereOr("e.target_node_id IN (?)", bun.In(ids))
		}).
		Scan(ctx, &edgeIDs)
	if err != nil {
		return 0, 0, err
	}
	edges, err = r.DeleteEdges(ctx, graphID, edgeIDs)
	if err != nil {
		return 0, 0, err
	}

	affected, err := r.eventsReferencing(ctx, graphID, ids)
	if err != nil {
		return 0, 0, err
	}

	for _, col := range []string{"source_node_id", "target_node_id"} {
		_, err := r.db.NewUpdate().
			TableExpr("investigation_events").
			Set(col+" = NULL").
			Where(col+" IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return 0, 0, err
		}
	}

	_, err = r.db.NewDelete().
		TableExpr("event_participants").
		Where("node_id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, 0, err
	}

	events, err = r.deleteStrandedEvents(ctx, graphID, affected)
	if err != nil {
		return 0, 0, err
	}

	_, err = r.db.NewDelete().
		Model((*Node)(nil)).
		Where("graph_id = ?", graphID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, 0, err
	}
	return edges, events, nil
}

// eventsReferencing lists events of the graph that point at any of nodeIDs
// as source, target or participant.
func (r *Repository) eventsReferencing(ctx context.Context, graphID string, nodeIDs []string) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		TableExpr("investigation_events AS ev").
		ColumnExpr("ev.id").
		Where("ev.graph_id = ?", graphID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("ev.source_node_id IN (?)", bun.In(nodeIDs)).
				WhereOr("ev.target_node_id IN (?)", bun.In(nodeIDs)).
				WhereOr("EXISTS (SELECT 1 FROM event_participants AS ep WHERE ep.event_id = ev.id AND ep.node_id IN (?))", bun.In(nodeIDs))
		}).
		Scan(ctx, &ids)
	return ids, err
}

// deleteStrandedEvents removes those of eventIDs that no longer reference any
// node. Edges the events produced stay, without their origin link.
func (r *Repository) deleteStrandedEvents(ctx context.Context, graphID string, eventIDs []string) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}

	var stranded []string
	err := r.db.NewSelect().
		TableExpr("investigation_events AS ev").
		ColumnExpr("ev.id").
		Where("ev.graph_id = ?", graphID).
		Where("ev.id IN (?)", bun.In(eventIDs)).
		Where("ev.source_node_id IS NULL").
		Where("ev.target_node_id IS NULL").
		Where("NOT EXISTS (SELECT 1 FROM event_participants AS ep WHERE ep.event_id = ev.id)").
		Scan(ctx, &stranded)
	if err != nil || len(stranded) == 0 {
		return 0, err
	}

	_, err = r.db.NewUpdate().
		TableExpr("edges").
		Set("created_from_event_id = NULL").
		Where("created_from_event_id IN (?)", bun.In(stranded)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	res, err := r.db.NewDelete().
		TableExpr("investigation_events").
		Where("graph_id = ?", graphID).
		Where("id IN (?)", bun.In(stranded)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Positions returns the positions of every node in the graph.
func (r *Repository) Positions(ctx context.Context, graphID string) ([]Position, error) {
	var rows []struct {
		X float64 `bun:"position_x"`
		Y float64 `bun:"position_y"`
	}
	err := r.db.NewSelect().
		Model((*Node)(nil)).
		ColumnExpr("n.position_x, n.position_y").
		Where("n.graph_id = ?", graphID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]Position, len(rows))
	for i, row := range rows {
		out[i] = Position{X: row.X, Y: row.Y}
	}
	return out, nil
}

// --- edges ---

// ListEdges returns the edges of a graph in creation order.
func (r *Repository) ListEdges(ctx context.Context, graphID string) ([]*Edge, error) {
	edges := make([]*Edge, 0)
	err := r.db.NewSelect().
		Model(&edges).
		Where("e.graph_id = ?", graphID).
		OrderExpr("e.created_at ASC, e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// GetEdge returns an edge of the graph, or nil.
func (r *Repository) GetEdge(ctx context.Context, graphID, id string) (*Edge, error) {
	e := new(Edge)
	err := r.db.NewSelect().
		Model(e).
		Where("e.id = ?", id).
		Where("e.graph_id = ?", graphID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindEdgeByPair returns the edge for the ordered (source, target) pair, or nil.
func (r *Repository) FindEdgeByPair(ctx context.Context, graphID, source, target string) (*Edge, error) {
	e := new(Edge)
	err := r.db.NewSelect().
		Model(e).
		Where("e.graph_id = ?", graphID).
		Where("e.source_node_id = ?", source).
		Where("e.target_node_id = ?", target).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ForeignEdgeIDs returns the ids that already belong to a graph other than graphID.
func (r *Repository) ForeignEdgeIDs(ctx context.Context, graphID string, ids []string) ([]string, error) {
	return foreignIDs(ctx, r.db, "edges", graphID, ids)
}

// InsertEdge inserts a single edge.
func (r *Repository) InsertEdge(ctx context.Context, e *Edge) error {
	_, err := r.db.NewInsert().Model(e).Exec(ctx)
	return err
}

// UpsertEdges inserts edges or updates endpoints, handles and label of
// existing ones. Event provenance is left untouched.
func (r *Repository) UpsertEdges(ctx context.Context, edges []*Edge) error {
	if len(edges) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&edges).
		On("CONFLICT (id) DO UPDATE").
		Set("source_node_id = EXCLUDED.source_node_id").
		Set("target_node_id = EXCLUDED.target_node_id").
		Set("label = EXCLUDED.label").
		Set("relationship_type_id = EXCLUDED.relationship_type_id").
		Set("source_handle = EXCLUDED.source_handle").
		Set("target_handle = EXCLUDED.target_handle").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// DeleteEdges removes edges of the graph, clearing the created-edge link of
// any event that produced them. It returns the number of edges removed.
func (r *Repository) DeleteEdges(ctx context.Context, graphID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	_, err := r.db.NewUpdate().
		TableExpr("investigation_events").
		Set("created_edge_id = NULL").
		Where("created_edge_id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	res, err := r.db.NewDelete().
		Model((*Edge)(nil)).
		Where("graph_id = ?", graphID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SetEdgeLabel sets the label of a label-backed edge. Relationship-backed
// edges are left alone.
func (r *Repository) SetEdgeLabel(ctx context.Context, graphID, id, label string, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("label = ?", label).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("graph_id = ?", graphID).
		Where("relationship_type_id IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearEdgeProvenance detaches edges from the event that created them.
func (r *Repository) ClearEdgeProvenance(ctx context.Context, eventID string) error {
	_, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("created_from_event_id = NULL").
		Where("created_from_event_id = ?", eventID).
		Exec(ctx)
	return err
}

// LinkEventEdge records edgeID as the edge created by eventID.
func (r *Repository) LinkEventEdge(ctx context.Context, eventID, edgeID string) error {
	_, err := r.db.NewUpdate().
		TableExpr("investigation_events").
		Set("created_edge_id = ?", edgeID).
		Where("id = ?", eventID).
		Exec(ctx)
	return err
}

func foreignIDs(ctx context.Context, db bun.IDB, table, graphID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []string
	err := db.NewSelect().
		TableExpr(table).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Where("graph_id <> ?", graphID).
		OrderExpr("id ASC").
		Scan(ctx, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
