package graph_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/pkg/sdk"
	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
	"github.com/Tatenda/fullstori/pkg/sdk/graph"
	"github.com/Tatenda/fullstori/pkg/sdk/testutil"
)

func newClient(t *testing.T, mock *testutil.MockServer) *sdk.Client {
	t.Helper()
	client, err := sdk.New(sdk.Config{
		ServerURL: mock.URL,
		Auth:      sdk.AuthConfig{Mode: "apikey", APIKey: "test_key"},
	})
	require.NoError(t, err)
	return client
}

func TestLoad(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/api/graphs/case-1", http.StatusOK, testutil.FixtureGraphState())

	state, err := newClient(t, mock).Graphs.Load(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, "Harbour Street", state.Graph.Name)
	require.Len(t, state.Nodes, 2)
	require.NotNil(t, state.RootNode())
	assert.Equal(t, "root-node", state.RootNode().ID)
	assert.Equal(t, "Witnessed", *state.Edges[0].Label)
}

func TestLoad_EscapesGraphID(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.On(http.MethodGet, "/api/graphs/a b", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graphs/a%20b", r.URL.EscapedPath())
		testutil.WriteJSON(t, w, http.StatusOK, testutil.FixtureGraphState())
	})

	_, err := newClient(t, mock).Graphs.Load(context.Background(), "a b")
	require.NoError(t, err)
}

func TestSave(t *testing.T) {
	mock := testutil.NewMockServer(t)
	state := testutil.FixtureGraphState()
	snapshot := graph.SnapshotOf(state)

	mock.On(http.MethodPut, "/api/graphs/case-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got graph.SaveGraphRequest
		testutil.DecodeBody(t, r, &got)
		assert.Equal(t, *snapshot, got)
		testutil.WriteJSON(t, w, http.StatusOK, testutil.FixtureSaveResult())
	})

	res, err := newClient(t, mock).Graphs.Save(context.Background(), "case-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, "root-node", res.RootNodeID)
	assert.Equal(t, 2, res.Nodes)
}

func TestSave_ValidationError(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnError(http.MethodPut, "/api/graphs/case-1", http.StatusUnprocessableEntity,
		"validation_error", "duplicate node id", map[string]any{"field": "nodes"})

	_, err := newClient(t, mock).Graphs.Save(context.Background(), "case-1", &graph.SaveGraphRequest{})
	require.Error(t, err)
	assert.True(t, sdkerrors.IsValidation(err))

	e, _ := sdkerrors.As(err)
	assert.Equal(t, "nodes", e.Field())
}

func TestUpdateSettings(t *testing.T) {
	mock := testutil.NewMockServer(t)
	name := "Renamed"
	mock.On(http.MethodPatch, "/api/graphs/case-1/settings", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertJSONBody(t, r, map[string]any{"name": "Renamed"})
		g := testutil.FixtureGraphState().Graph
		g.Name = name
		testutil.WriteJSON(t, w, http.StatusOK, g)
	})

	g, err := newClient(t, mock).Graphs.UpdateSettings(context.Background(), "case-1", &graph.UpdateSettingsRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", g.Name)
}

func TestUpdateSettings_NotFound(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnError(http.MethodPatch, "/api/graphs/missing/settings", http.StatusNotFound, "not_found", "Graph not found", nil)

	_, err := newClient(t, mock).Graphs.UpdateSettings(context.Background(), "missing", &graph.UpdateSettingsRequest{})
	assert.True(t, sdkerrors.IsNotFound(err))
}

func TestCreateNode(t *testing.T) {
	mock := testutil.NewMockServer(t)
	entityID := "ent-bob"
	mock.On(http.MethodPost, "/api/graphs/case-1/nodes", func(w http.ResponseWriter, r *http.Request) {
		var req graph.CreateNodeRequest
		testutil.DecodeBody(t, r, &req)
		require.NotNil(t, req.EntityID)
		assert.Equal(t, "ent-bob", *req.EntityID)
		assert.Equal(t, []string{"node-jane"}, req.RelatedNodeIDs)

		testutil.WriteJSON(t, w, http.StatusCreated, graph.CreateNodeResult{
			Node:    graph.NodeView{ID: "node-bob", EntityID: "ent-bob", Position: graph.Position{X: 600, Y: 300}},
			Created: true,
		})
	})

	res, err := newClient(t, mock).Graphs.CreateNode(context.Background(), "case-1", &graph.CreateNodeRequest{
		EntityID:       &entityID,
		RelatedNodeIDs: []string{"node-jane"},
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, graph.Position{X: 600, Y: 300}, res.Node.Position)
}

func TestList(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/api/graphs", http.StatusOK, []*graph.Graph{testutil.FixtureGraphState().Graph})

	graphs, err := newClient(t, mock).Graphs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "case-1", graphs[0].ID)
}

func TestSnapshotOf(t *testing.T) {
	state := testutil.FixtureGraphState()
	snap := graph.SnapshotOf(state)

	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, graph.Position{X: 300, Y: 150}, *snap.Nodes[1].Position)
	assert.Equal(t, state.Nodes[0].Kind, snap.Nodes[0].Kind)

	state.Nodes[1].Position.X = -1
	assert.Equal(t, 300.0, snap.Nodes[1].Position.X, "snapshot does not alias the state")

	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "node-jane", snap.Edges[0].Source)
}

func TestWatch(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.On(http.MethodGet, "/api/graphs/case-1/stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: connected\ndata: {\"connectionId\":\"sse_1\",\"topic\":\"case-1\"}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: graph.saved\ndata: {\"type\":\"graph.saved\",\"graphId\":\"case-1\",\"timestamp\":\"t\"}\n\n")
		fmt.Fprint(w, "event: heartbeat\ndata: {\"timestamp\":\"t\"}\n\n")
		fmt.Fprint(w, "id: 7\nevent: event.created\ndata: {\"type\":\"event.created\",\"graphId\":\"case-1\",\"id\":\"ev-1\",\"timestamp\":\"t\"}\n\n")
	})

	var got []events.ChangeEvent
	err := newClient(t, mock).Graphs.Watch(context.Background(), "case-1", func(e graph.ChangeEvent) {
		got = append(got, e)
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, events.ChangeGraphSaved, got[0].Type)
	assert.Equal(t, events.ChangeEventCreated, got[1].Type)
	require.NotNil(t, got[1].ID)
	assert.Equal(t, "ev-1", *got[1].ID)
}

func TestWatch_StreamError(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.On(http.MethodGet, "/api/graphs/case-1/stream", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"code\":\"shutdown\",\"message\":\"server stopping\"}\n\n")
	})

	err := newClient(t, mock).Graphs.Watch(context.Background(), "case-1", func(graph.ChangeEvent) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server stopping")
}

func TestWatch_Unauthorized(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnError(http.MethodGet, "/api/graphs/case-1/stream", http.StatusUnauthorized, "unauthorized", "missing credentials", nil)

	err := newClient(t, mock).Graphs.Watch(context.Background(), "case-1", func(graph.ChangeEvent) {})
	assert.True(t, sdkerrors.IsUnauthorized(err))
}
