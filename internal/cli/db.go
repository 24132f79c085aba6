package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/migrate"
)

// openDB connects with the server's database settings.
func openDB() (*sql.DB, error) {
	cfg, err := config.NewConfig(slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN())))
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func newMigrator() (*migrate.Migrator, *sql.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	m, err := migrate.NewMigrator(db, log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, db, nil
}

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(fn func(ctx context.Context, m *migrate.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, db, err := newMigrator()
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(cmd.Context(), m)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(ctx context.Context, m *migrate.Migrator) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: run(func(ctx context.Context, m *migrate.Migrator) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: run(func(ctx context.Context, m *migrate.Migrator) error {
				entries, err := m.Status(ctx)
				if err != nil {
					return err
				}
				if a.jsonOutput() {
					return writeJSON(a.out, entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{strconv.FormatInt(e.Version, 10), e.Path, strconv.FormatBool(e.Applied)})
				}
				return renderTable(a.out, []string{"Version", "Migration", "Applied"}, rows)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: run(func(ctx context.Context, m *migrate.Migrator) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, v)
				return nil
			}),
		},
	)
	return cmd
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default roles, relationship types and event types",
		Long:  "Insert the built-in vocabulary. Names that already exist are left untouched, so seeding is safe to repeat.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqldb, err := openDB()
			if err != nil {
				return err
			}
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			v, err := registry.DefaultVocabulary()
			if err != nil {
				return err
			}
			res, err := registry.Seed(cmd.Context(), db, v)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(a.out, res)
			}
			fmt.Fprintf(a.out, "seeded %d roles, %d relationship types, %d event types\n",
				res.Roles, res.Relationships, res.EventTypes)
			return nil
		},
	}
}
