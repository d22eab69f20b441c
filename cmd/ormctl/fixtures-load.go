package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/fixtures"
)

// fixturesLoadCmd represents the fixtures load command
var fixturesLoadCmd = &cobra.Command{
	Use:   "load <file|dir>...",
	Short: "Load fixture files in one transaction",
	Long: `Load fixture files into the database.

All files are loaded as one batch: the existing rows of every class in the
files are deleted first, then the rows are inserted. Any error rolls back
the whole batch.

Example:
  ormctl fixtures load fixtures/
  ormctl fixtures load -c archive acl.yml users.yml`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := loadFixtures(cmd, args)
		if err != nil {
			fail("Failed to load fixtures", err)
		}
		fmt.Printf("Loaded %d fixture file(s)\n", n)
	},
}

func init() {
	fixturesCmd.AddCommand(fixturesLoadCmd)
}

func loadFixtures(cmd *cobra.Command, paths []string) (int, error) {
	files, err := fixtureFiles(paths)
	if err != nil {
		return 0, err
	}

	s, err := newSession()
	if err != nil {
		return 0, err
	}
	defer s.close()

	conn, err := s.conns.Get(s.connectionName(cmd))
	if err != nil {
		return 0, err
	}

	loader := fixtures.NewLoader(conn, fixtures.ACLRegistry(), s.log)
	return loader.LoadFiles(context.Background(), files...)
}
