package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
	"github.com/Tatenda/fullstori/pkg/sdk/graph"
	"github.com/Tatenda/fullstori/pkg/sdk/testutil"
	"github.com/Tatenda/fullstori/pkg/sdk/timeline"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Tree(t *testing.T) {
	root := NewRootCommand()
	for _, path := range [][]string{
		{"version"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"migrate", "version"},
		{"seed"},
		{"graphs", "list"},
		{"graphs", "export"},
		{"graphs", "import"},
		{"graphs", "watch"},
		{"events", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestVersion_JSON(t *testing.T) {
	out, err := run(t, "version", "-o", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
}

func TestGraphsList(t *testing.T) {
	ms := testutil.NewMockServer(t)
	state := testutil.FixtureGraphState()
	ms.OnJSON(http.MethodGet, "/api/graphs", http.StatusOK, []*graph.Graph{state.Graph})

	out, err := run(t, "graphs", "list", "--server", ms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "case-1")
	assert.Contains(t, out, "Harbour Street")
}

func TestGraphsList_SendsAPIKey(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.On(http.MethodGet, "/api/graphs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		testutil.WriteJSON(t, w, http.StatusOK, []*graph.Graph{})
	})

	_, err := run(t, "graphs", "list", "--server", ms.URL, "--api-key", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Calls(http.MethodGet, "/api/graphs"))
}

func TestGraphsList_ServerFromEnvironment(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.OnJSON(http.MethodGet, "/api/graphs", http.StatusOK, []*graph.Graph{})
	t.Setenv("FULLSTORI_SERVER", ms.URL)

	_, err := run(t, "graphs", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Calls(http.MethodGet, "/api/graphs"))
}

func TestGraphsExport(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.OnJSON(http.MethodGet, "/api/graphs/case-1", http.StatusOK, testutil.FixtureGraphState())

	file := filepath.Join(t.TempDir(), "case-1.json")
	out, err := run(t, "graphs", "export", "case-1", "--server", ms.URL, "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 nodes and 1 edges")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var snapshot graph.SaveGraphRequest
	require.NoError(t, json.Unmarshal(data, &snapshot))
	require.Len(t, snapshot.Nodes, 2)
	assert.Equal(t, "node-jane", snapshot.Nodes[1].ID)
	assert.Equal(t, 300.0, snapshot.Nodes[1].Position.X)
	require.Len(t, snapshot.Edges, 1)
	assert.Equal(t, "edge-1", snapshot.Edges[0].ID)
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "snapshot.json")
	data, err := json.Marshal(graph.SnapshotOf(testutil.FixtureGraphState()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, data, 0o600))
	return file
}

func TestGraphsImport(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.On(http.MethodPut, "/api/graphs/case-1", func(w http.ResponseWriter, r *http.Request) {
		var req graph.SaveGraphRequest
		testutil.DecodeBody(t, r, &req)
		assert.Len(t, req.Nodes, 2)
		testutil.WriteJSON(t, w, http.StatusOK, testutil.FixtureSaveResult())
	})

	out, err := run(t, "graphs", "import", "case-1", writeSnapshot(t), "--server", ms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "saved graph case-1: 2 nodes, 1 edges")
}

func TestGraphsImport_RetriesInterruptedSave(t *testing.T) {
	ms := testutil.NewMockServer(t)
	var attempts atomic.Int32
	ms.On(http.MethodPut, "/api/graphs/case-1", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			testutil.WriteJSON(t, w, http.StatusServiceUnavailable, testutil.ErrorBody(
				sdkerrors.CodeTransactionInterrupted, "transaction interrupted", map[string]any{"retryable": true}))
			return
		}
		testutil.WriteJSON(t, w, http.StatusOK, testutil.FixtureSaveResult())
	})

	_, err := run(t, "graphs", "import", "case-1", writeSnapshot(t), "--server", ms.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, ms.Calls(http.MethodPut, "/api/graphs/case-1"))
}

func TestGraphsImport_ValidationError(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.OnError(http.MethodPut, "/api/graphs/case-1", http.StatusBadRequest,
		sdkerrors.CodeValidation, "edge references unknown node", map[string]any{"field": "edges[0].target"})

	_, err := run(t, "graphs", "import", "case-1", writeSnapshot(t), "--server", ms.URL)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsValidation(err))
	assert.Equal(t, 1, ms.Calls(http.MethodPut, "/api/graphs/case-1"))
}

func TestEventsList(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.OnJSON(http.MethodGet, "/api/graphs/case-1/events", http.StatusOK, []*timeline.Event{testutil.FixtureEvent()})

	out, err := run(t, "events", "list", "case-1", "--server", ms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane sees the victim")
	assert.Contains(t, out, "2026-03-01")
}

func TestEventsList_JSON(t *testing.T) {
	ms := testutil.NewMockServer(t)
	ms.OnJSON(http.MethodGet, "/api/graphs/case-1/events", http.StatusOK, []*timeline.Event{testutil.FixtureEvent()})

	out, err := run(t, "events", "list", "case-1", "--server", ms.URL, "-o", "json")
	require.NoError(t, err)

	var events []timeline.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
}
