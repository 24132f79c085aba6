package registry

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/pkg/logger"
)

// Module provides registry dependencies
var Module = fx.Module("registry",
	fx.Provide(NewStore),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(seedOnStart),
)

// seedOnStart seeds the system vocabulary once the database is reachable.
func seedOnStart(lc fx.Lifecycle, db bun.IDB, cfg *config.Config, log *slog.Logger) {
	if !cfg.Graph.SeedVocabulary {
		return
	}
	log = log.With(logger.Scope("registry.seed"))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			v, err := DefaultVocabulary()
			if err != nil {
				return err
			}
			res, err := Seed(ctx, db, v)
			if err != nil {
				return err
			}
			log.Info("vocabulary seeded",
				slog.Int("roles", res.Roles),
				slog.Int("relationships", res.Relationships),
				slog.Int("event_types", res.EventTypes),
			)
			return nil
		},
	})
}
