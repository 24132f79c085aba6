package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/domain/scheduler"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/testutil"
)

func newHandler(t *testing.T, env string) *Handler {
	t.Helper()
	tdb := testutil.SetupTestDB(t)
	log := testutil.Logger()
	sched := scheduler.NewScheduler(&scheduler.Config{TaskTimeout: time.Second}, log)
	streams := events.NewHandler(events.NewService(log), log)
	return NewHandler(tdb.DB, &config.Config{Environment: env}, sched, streams)
}

func serve(t *testing.T, fn echo.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec)
	if err := fn(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestHealth(t *testing.T) {
	h := newHandler(t, "local")
	rec := serve(t, h.Health, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, statusHealthy, resp.Status)
	assert.Equal(t, statusHealthy, resp.Checks["database"].Status)
	assert.Equal(t, "stopped", resp.Checks["scheduler"].Status)
	assert.NotEmpty(t, resp.Version.Version)
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := newHandler(t, "local")
	require.NoError(t, h.db.Close())

	rec := serve(t, h.Health, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, h.Ready, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestProbes(t *testing.T) {
	h := newHandler(t, "local")

	rec := serve(t, h.Healthz, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(t, h.Ready, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDebug_HiddenInProduction(t *testing.T) {
	rec := serve(t, newHandler(t, "production").Debug, "/debug")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, newHandler(t, "local").Debug, "/debug")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dialect":"sqlite"`)
}

func TestDiagnose(t *testing.T) {
	h := newHandler(t, "local")
	rec := serve(t, h.Diagnose, "/api/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tables []TableCount `json:"tables"`
		Error  string       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Error)
	assert.Len(t, body.Tables, len(countedTables))
}
