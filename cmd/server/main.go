// Package main provides the entry point for the fullstori API server.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Tatenda/fullstori/domain/entities"
	"github.com/Tatenda/fullstori/domain/events"
	"github.com/Tatenda/fullstori/domain/graph"
	"github.com/Tatenda/fullstori/domain/health"
	"github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/domain/scheduler"
	"github.com/Tatenda/fullstori/domain/timeline"
	"github.com/Tatenda/fullstori/domain/tracing"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/database"
	"github.com/Tatenda/fullstori/internal/migrate"
	"github.com/Tatenda/fullstori/internal/server"
	"github.com/Tatenda/fullstori/internal/storage"
	"github.com/Tatenda/fullstori/pkg/auth"
	"github.com/Tatenda/fullstori/pkg/logger"
)

func main() {
	// .env.local overrides .env; neither overrides the real environment
	// except through Overload.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		storage.Module,
		auth.Module,
		tracing.Module,

		// Domain
		registry.Module,
		entities.Module,
		events.Module,
		graph.Module,
		timeline.Module,

		// Maintenance
		scheduler.Module,
		health.Module,
	).Run()
}
