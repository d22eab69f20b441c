//go:build file_migrations

package main

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const defaultMigrationsPath = "db/migrations"

// createMigrateInstance reads the migrations from ORM_MIGRATIONS_PATH, for
// development against an edited migrations directory.
func createMigrateInstance(dbURL string) (*migrate.Migrate, error) {
	path := os.Getenv("ORM_MIGRATIONS_PATH")
	if path == "" {
		path = defaultMigrationsPath
	}
	fmt.Printf("Running migrations from file://%s\n", path)
	return migrate.New("file://"+path, dbURL)
}
