package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// sqlCmd represents the sql command
var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Generate SQL from the schema files",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'sql' requires a subcommand (build)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd)
}
