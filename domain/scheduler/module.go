package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/domain/graph"
	"github.com/Tatenda/fullstori/pkg/logger"
)

// Module provides scheduled maintenance tasks
var Module = fx.Module("scheduler",
	fx.Provide(
		NewConfig,
		NewScheduler,
	),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

// TaskParams contains dependencies for creating scheduled tasks
type TaskParams struct {
	fx.In
	Scheduler *Scheduler
	Graphs    *graph.Service
	Entities  *entities.Service
	Log       *slog.Logger
	Cfg       *Config
}

// RegisterTasks registers all scheduled tasks
func RegisterTasks(p TaskParams) error {
	if !p.Cfg.Enabled {
		p.Log.Info("scheduler disabled, skipping task registration")
		return nil
	}

	sweep := NewRootSweepTask(p.Graphs, p.Cfg.RootSweepBatch, p.Log)
	if err := p.Scheduler.Schedule(TaskRootSweep,
		p.Cfg.RootSweepSchedule, p.Cfg.RootSweepInterval, sweep.Run); err != nil {
		p.Log.Error("failed to register root sweep task", logger.Error(err))
	}

	report := NewOrphanReportTask(p.Entities, p.Cfg.OrphanReportLimit, p.Log)
	if err := p.Scheduler.Schedule(TaskOrphanReport,
		p.Cfg.OrphanReportSchedule, p.Cfg.OrphanReportInterval, report.Run); err != nil {
		p.Log.Error("failed to register orphan report task", logger.Error(err))
	}

	p.Log.Info("registered scheduled tasks", slog.Any("tasks", p.Scheduler.ListTasks()))
	return nil
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *Config) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
