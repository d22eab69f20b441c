package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/fixtures"
)

var fixturesSQLCmd = &cobra.Command{
	Use:   "sql <file|dir>...",
	Short: "Print the SQL statements loading fixture files",
	Long: `Convert fixture files to SQL.

The files are loaded as by "ormctl fixtures load" inside a transaction that is
rolled back, and the executed statements are written out. The database is
left unchanged.

Example:
  ormctl fixtures sql fixtures/ -o fixtures.sql`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		if err := fixturesSQL(cmd, output, args); err != nil {
			fail("Failed to convert fixtures", err)
		}
	},
}

func init() {
	fixturesCmd.AddCommand(fixturesSQLCmd)
	fixturesSQLCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

func fixturesSQL(cmd *cobra.Command, output string, paths []string) (err error) {
	files, err := fixtureFiles(paths)
	if err != nil {
		return err
	}
	docs := make([]*fixtures.Document, 0, len(files))
	for _, file := range files {
		doc, err := fixtures.ParseFile(file)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	conn, err := s.conns.Get(s.connectionName(cmd))
	if err != nil {
		return err
	}
	statements, err := fixtures.NewLoader(conn, fixtures.ACLRegistry(), s.log).SQL(context.Background(), docs...)
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
	return writeStatements(w, statements)
}

func writeStatements(w io.Writer, statements []string) error {
	for _, stmt := range statements {
		if _, err := fmt.Fprintf(w, "%s;\n", stmt); err != nil {
			return err
		}
	}
	return nil
}
