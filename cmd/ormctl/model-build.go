package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var modelBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the model classes for the schemas",
	Long: `Build the model classes for the *schema.xml files found below --schema-dir.

Example:
  ormctl model build --schema-dir src --output-dir generated`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := modelBuild(cmd)
		if err != nil {
			fail("Model build failed", err)
		}
		if code != 0 {
			os.Exit(code)
		}
	},
}

func modelBuild(cmd *cobra.Command) (int, error) {
	s, runner, opts, err := prepareGenerator(cmd)
	if err != nil {
		return 0, err
	}
	defer s.close()

	outputDir, _ := cmd.Flags().GetString("output-dir")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := runner.ModelBuild(ctx, opts, outputDir)
	if err != nil {
		return 0, err
	}
	if code == 0 {
		fmt.Printf("Model classes written to %s\n", outputDir)
	}
	return code, nil
}

func init() {
	modelCmd.AddCommand(modelBuildCmd)
	addGeneratorFlags(modelBuildCmd)
	modelBuildCmd.Flags().StringP("output-dir", "o", ".", "Directory the model classes are written to")
}
