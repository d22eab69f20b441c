package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/fixtures"
)

// fixturesDumpCmd represents the fixtures dump command
var fixturesDumpCmd = &cobra.Command{
	Use:   "dump [class...]",
	Short: "Dump the database as a fixture file",
	Long: `Dump rows of the registered classes as a YAML fixture file.

Without arguments every registered class is dumped. The output can be loaded
back with "ormctl fixtures load".

Example:
  ormctl fixtures dump
  ormctl fixtures dump AclClass AclObjectIdentity -o acl.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		if err := dumpFixtures(cmd, output, args); err != nil {
			fail("Failed to dump fixtures", err)
		}
	},
}

func init() {
	fixturesCmd.AddCommand(fixturesDumpCmd)
	fixturesDumpCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

func dumpFixtures(cmd *cobra.Command, output string, classes []string) (err error) {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	conn, err := s.conns.Get(s.connectionName(cmd))
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	dumper := fixtures.NewDumper(conn, fixtures.ACLRegistry(), s.log)
	return dumper.Dump(context.Background(), w, classes...)
}
