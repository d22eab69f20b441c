package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// fixturesCmd represents the fixtures command
var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Load and dump fixture files",
	Long: `Load and dump YAML fixture files.

Fixture files map class names to keyed rows. Rows reference each other by
key through foreign key and many-to-many attributes.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'fixtures' requires a subcommand (load, dump, sql, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(fixturesCmd)
}

// fixtureFiles expands directories into their fixture files, sorted by name.
// Files given explicitly are kept in order.
func fixtureFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && isFixtureFile(e.Name()) {
				found = append(found, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}

func isFixtureFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}
