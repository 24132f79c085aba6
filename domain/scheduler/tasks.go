package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/metrics"
)

// Task names as registered with the scheduler.
const (
	TaskRootSweep    = "root_integrity_sweep"
	TaskOrphanReport = "orphan_entity_report"
)

// RootHealer synthesizes missing graph roots.
type RootHealer interface {
	HealMissingRoots(ctx context.Context, limit int) (int, error)
}

// OrphanLister lists entities not placed on any graph.
type OrphanLister interface {
	ListOrphans(ctx context.Context, limit int) ([]*entities.Entity, error)
}

// RootSweepTask gives every graph without a root node a fresh one. Loads
// heal on demand; the sweep covers graphs nobody has opened since the root
// went missing.
type RootSweepTask struct {
	graphs RootHealer
	batch  int
	log    *slog.Logger
}

// NewRootSweepTask creates a new root integrity sweep.
func NewRootSweepTask(graphs RootHealer, batch int, log *slog.Logger) *RootSweepTask {
	if batch <= 0 {
		batch = 100
	}
	return &RootSweepTask{
		graphs: graphs,
		batch:  batch,
		log:    log.With(logger.Scope("scheduler.root_sweep")),
	}
}

// Run executes one sweep.
func (t *RootSweepTask) Run(ctx context.Context) error {
	start := time.Now()

	healed, err := t.graphs.HealMissingRoots(ctx, t.batch)
	if err != nil {
		return err
	}
	if healed > 0 {
		t.log.Warn("healed graphs without a root",
			slog.Int("count", healed),
			slog.Duration("duration", time.Since(start)))
		return nil
	}

	t.log.Debug("all graphs have a root", slog.Duration("duration", time.Since(start)))
	return nil
}

// OrphanReportTask logs entities that sit on no graph. Entities are shared
// across investigations and are never deleted automatically.
type OrphanReportTask struct {
	entities OrphanLister
	limit    int
	log      *slog.Logger
}

// NewOrphanReportTask creates a new orphan entity report.
func NewOrphanReportTask(ents OrphanLister, limit int, log *slog.Logger) *OrphanReportTask {
	if limit <= 0 {
		limit = 500
	}
	return &OrphanReportTask{
		entities: ents,
		limit:    limit,
		log:      log.With(logger.Scope("scheduler.orphan_report")),
	}
}

// Run executes one report.
func (t *OrphanReportTask) Run(ctx context.Context) error {
	orphans, err := t.entities.ListOrphans(ctx, t.limit)
	if err != nil {
		return err
	}
	metrics.OrphanEntities.Set(float64(len(orphans)))

	if len(orphans) == 0 {
		t.log.Debug("no orphan entities")
		return nil
	}

	sample := make([]string, 0, 10)
	for _, e := range orphans {
		if len(sample) == cap(sample) {
			break
		}
		sample = append(sample, e.Name)
	}
	t.log.Info("orphan entities found",
		slog.Int("count", len(orphans)),
		slog.Bool("truncated", len(orphans) == t.limit),
		slog.Any("sample", sample))
	return nil
}
