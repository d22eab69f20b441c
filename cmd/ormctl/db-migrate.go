package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

const migrationsTable = "ormbundle_schema_migrations"

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

This command runs all pending migrations of the ACL tables on a postgres
connection.

Example:
  ormctl db migrate
  ormctl db migrate --connection archive`,
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := migrationDatasource(cmd)
		if err != nil {
			fail("Migration failed", err)
		}
		if err := runMigrations(ds); err != nil {
			fail("Migration failed", err)
		}
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  ormctl db down      # Rollback 1 migration
  ormctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				fail("Rollback failed", fmt.Errorf("invalid number of steps %q", args[0]))
			}
			steps = n
		}

		ds, err := migrationDatasource(cmd)
		if err != nil {
			fail("Rollback failed", err)
		}
		if err := runMigrationsDown(ds, steps); err != nil {
			fail("Rollback failed", err)
		}
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version.`,
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := migrationDatasource(cmd)
		if err != nil {
			fail("Failed to get status", err)
		}
		if err := showMigrationStatus(ds); err != nil {
			fail("Failed to get status", err)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}

// migrationDatasource returns the datasource selected by --connection.
// Migrations are written for postgres.
func migrationDatasource(cmd *cobra.Command) (config.Datasource, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Datasource{}, err
	}
	name, _ := cmd.Flags().GetString("connection")
	if name == "" {
		name = cfg.DefaultConnection
	}
	ds, ok := cfg.Datasource(name)
	if !ok {
		return config.Datasource{}, fmt.Errorf("unknown connection %q", name)
	}
	if ds.Adapter != "postgres" {
		return config.Datasource{}, fmt.Errorf("connection %q uses %s; migrations require postgres", name, ds.Adapter)
	}
	return ds, nil
}

// migrationURL returns the datasource URL with the migrations table of the
// bundle, so that it does not collide with the application's own.
func migrationURL(ds config.Datasource) string {
	dbURL := db.WithCredentials(ds)
	if strings.Contains(dbURL, "?") {
		return dbURL + "&x-migrations-table=" + migrationsTable
	}
	return dbURL + "?x-migrations-table=" + migrationsTable
}

func runMigrations(ds config.Datasource) error {
	m, err := createMigrateInstance(migrationURL(ds))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, _ := m.Version()
	fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to run - database is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	fmt.Printf("Migrated to version: %d\n", newVersion)
	fmt.Println("Migrations complete")
	return nil
}

func runMigrationsDown(ds config.Datasource, steps int) error {
	m, err := createMigrateInstance(migrationURL(ds))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	fmt.Printf("Rolling back %d migration(s)...\n", steps)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Rolled back all migrations")
		return nil
	}
	fmt.Printf("Rolled back to version: %d\n", version)
	return nil
}

func showMigrationStatus(ds config.Datasource) error {
	m, err := createMigrateInstance(migrationURL(ds))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations have been applied yet")
			return nil
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "Current version: %d\n", version)
	if dirty {
		fmt.Println("Warning: Database is in a dirty state")
	}
	return nil
}
