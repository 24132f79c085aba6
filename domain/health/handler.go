package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/domain/scheduler"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/version"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Handler handles health check requests
type Handler struct {
	db        *bun.DB
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	streams   *events.Handler
	startAt   time.Time
}

// NewHandler creates a new health handler
func NewHandler(db *bun.DB, cfg *config.Config, sched *scheduler.Scheduler, streams *events.Handler) *Handler {
	return &Handler{
		db:        db,
		cfg:       cfg,
		scheduler: sched,
		streams:   streams,
		startAt:   time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   version.Info     `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.db.PingContext(ctx)
}

// Health handles GET /health: database connectivity, scheduler state and
// build metadata. Unhealthy answers 503.
func (h *Handler) Health(c echo.Context) error {
	db := Check{Status: statusHealthy}
	if err := h.ping(c.Request().Context()); err != nil {
		db = Check{Status: statusUnhealthy, Message: err.Error()}
	}

	sched := Check{Status: "stopped"}
	if h.scheduler.IsRunning() {
		sched.Status = "running"
	}

	resp := HealthResponse{
		Status:    db.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).Round(time.Second).String(),
		Version:   version.Get(),
		Checks: map[string]Check{
			"database":  db,
			"scheduler": sched,
		},
	}

	status := http.StatusOK
	if resp.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Healthz handles GET /healthz, the liveness probe.
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready handles GET /ready, the readiness probe.
func (h *Handler) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "Database connection failed",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Debug handles GET /debug outside production: runtime, pool, stream and
// scheduler details.
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	pool := h.db.Stats()

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
		"database": map[string]any{
			"dialect":     h.db.Dialect().Name().String(),
			"open":        pool.OpenConnections,
			"in_use":      pool.InUse,
			"idle":        pool.Idle,
			"wait_count":  pool.WaitCount,
			"wait_time_s": pool.WaitDuration.Seconds(),
		},
		"streams":   h.streams.ConnectionCount(),
		"scheduler": h.scheduler.GetTaskInfo(),
	})
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

var countedTables = []string{
	"graphs", "nodes", "edges", "investigation_events", "event_participants",
	"entities", "roles", "relationship_types", "event_types",
}

// Diagnose handles GET /api/diagnostics with row counts per table.
func (h *Handler) Diagnose(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	counts := make([]TableCount, 0, len(countedTables))
	for _, table := range countedTables {
		n, err := h.db.NewSelect().TableExpr("?", bun.Ident(table)).Count(ctx)
		if err != nil {
			return c.JSON(http.StatusOK, map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"tables":    counts,
				"error":     err.Error(),
			})
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startAt).Round(time.Second).String(),
		"tables":    counts,
	})
}

// Scheduler handles GET /api/metrics/scheduler.
func (h *Handler) Scheduler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"running": h.scheduler.IsRunning(),
		"tasks":   h.scheduler.GetTaskInfo(),
	})
}
