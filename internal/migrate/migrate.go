// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/migrations"
	"github.com/Tatenda/fullstori/pkg/logger"
)

// Module runs pending migrations on start when DB_AUTO_MIGRATE is set.
var Module = fx.Module("migrate",
	fx.Invoke(AutoMigrate),
)

// Migrator wraps a goose provider bound to the embedded migrations.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// StatusEntry is one migration and whether it has been applied.
type StatusEntry struct {
	Version int64  `json:"version"`
	Path    string `json:"path"`
	Applied bool   `json:"applied"`
}

// NewMigrator creates a Migrator over a raw Postgres connection.
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger.Named("migrator")}, nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.logger.Info("running database migrations")

	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		m.logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}

	m.logger.Info("migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	m.logger.Info("rolling back last migration")

	r, err := m.provider.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.logger.Info("nothing to roll back")
			return nil
		}
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	m.logger.Info("rollback completed successfully", zap.Int64("version", r.Source.Version))
	return nil
}

// Status lists every known migration.
func (m *Migrator) Status(ctx context.Context) ([]StatusEntry, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	out := make([]StatusEntry, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusEntry{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// AutoMigrate applies pending migrations during startup.
func AutoMigrate(lc fx.Lifecycle, db *bun.DB, cfg *config.Config, log *slog.Logger) {
	if !cfg.Database.AutoMigrate {
		return
	}
	log = log.With(logger.Scope("migrate"))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := RunWithDB(ctx, db.DB); err != nil {
				return err
			}
			log.Info("database schema up to date")
			return nil
		},
	})
}

// RunWithDB runs migrations using a raw *sql.DB connection.
func RunWithDB(ctx context.Context, db *sql.DB) error {
	m, err := NewMigrator(db, zap.NewNop())
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
