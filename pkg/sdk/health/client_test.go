package health_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/pkg/sdk"
	"github.com/Tatenda/fullstori/pkg/sdk/health"
	"github.com/Tatenda/fullstori/pkg/sdk/testutil"
)

func newClient(t *testing.T, mock *testutil.MockServer) *health.Client {
	t.Helper()
	client, err := sdk.New(sdk.Config{ServerURL: mock.URL})
	require.NoError(t, err)
	return client.Health
}

func TestHealth_UnhealthyIsNotAnError(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/health", http.StatusServiceUnavailable, health.HealthResponse{
		Status: "unhealthy",
		Checks: map[string]health.Check{"database": {Status: "unhealthy", Message: "connection refused"}},
	})

	res, err := newClient(t, mock).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", res.Status)
	assert.Equal(t, "connection refused", res.Checks["database"].Message)
}

func TestReady(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/ready", http.StatusOK, map[string]string{"status": "ready"})

	ready, err := newClient(t, mock).IsReady(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReady_NotReady(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/ready", http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})

	ready, err := newClient(t, mock).IsReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestHealthz(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.On(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	assert.NoError(t, newClient(t, mock).Healthz(context.Background()))

	down := testutil.NewMockServer(t)
	assert.Error(t, newClient(t, down).Healthz(context.Background()))
}

func TestDiagnosticsAndScheduler(t *testing.T) {
	mock := testutil.NewMockServer(t)
	mock.OnJSON(http.MethodGet, "/api/diagnostics", http.StatusOK, map[string]any{
		"timestamp": "2026-03-14T09:30:00Z",
		"tables":    []health.TableCount{{Table: "graphs", Rows: 2}},
	})
	mock.OnJSON(http.MethodGet, "/api/metrics/scheduler", http.StatusOK, map[string]any{
		"running": true,
		"tasks":   []map[string]any{{"name": "root_integrity_sweep", "nextRun": "2026-03-14T09:40:00Z"}},
	})

	c := newClient(t, mock)
	diag, err := c.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, diag.Tables[0].Rows)

	sched, err := c.Scheduler(context.Background())
	require.NoError(t, err)
	assert.True(t, sched.Running)
	require.Len(t, sched.Tasks, 1)
	assert.Equal(t, "root_integrity_sweep", sched.Tasks[0].Name)
}
