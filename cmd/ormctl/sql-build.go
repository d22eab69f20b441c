package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/generator"
)

var sqlBuildCmd = &cobra.Command{
	Use:   "build [connection...]",
	Short: "Build the SQL files for the schemas",
	Long: `Build the SQL files for the *schema.xml files found below --schema-dir.

Schemas are rewritten with their package prefix into the cache directory
together with build.properties and buildtime-conf.xml, then the generator
runs sql:build once for the given connections (default: --connection).
The command exits with the generator's exit code.

Example:
  ormctl sql build
  ormctl sql build default archive --platform PgsqlPlatform`,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := sqlBuild(cmd, args)
		if err != nil {
			fail("SQL build failed", err)
		}
		if code != 0 {
			os.Exit(code)
		}
	},
}

// sqlBuild returns the generator's exit code.
func sqlBuild(cmd *cobra.Command, connections []string) (int, error) {
	s, runner, opts, err := prepareGenerator(cmd)
	if err != nil {
		return 0, err
	}
	defer s.close()

	if len(connections) == 0 {
		connections = []string{s.connectionName(cmd)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := runner.SQLBuild(ctx, opts, connections)
	if err != nil {
		return 0, err
	}
	if code == 0 {
		fmt.Printf("SQL files written to %s\n", runner.CacheDir)
	}
	return code, nil
}

func init() {
	sqlCmd.AddCommand(sqlBuildCmd)
	addGeneratorFlags(sqlBuildCmd)
}

func addGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema-dir", ".", "Directory searched for *schema.xml files")
	cmd.Flags().String("platform", "", "Generator platform (default: derived from the connection adapter)")
	cmd.Flags().String("properties", "build.properties", "build.properties copied to the cache directory when present")
	cmd.Flags().BoolP("verbose", "v", false, "Verbose generator output")
}

// prepareGenerator locates the schemas and prepares the cache directory.
func prepareGenerator(cmd *cobra.Command) (*session, *generator.Runner, generator.RunOptions, error) {
	var opts generator.RunOptions

	s, err := newSession()
	if err != nil {
		return nil, nil, opts, err
	}
	if s.cfg.GeneratorBinary == "" {
		s.close()
		return nil, nil, opts, fmt.Errorf("generator_binary is not configured (ORM_GENERATOR_BINARY)")
	}

	schemaDir, _ := cmd.Flags().GetString("schema-dir")
	runner := generator.NewRunner(s.cfg, s.log)
	runner.BaseDir = schemaDir
	runner.PropertiesFile, _ = cmd.Flags().GetString("properties")

	schemas, err := generator.LocateSchemas(schemaDir)
	if err != nil {
		s.close()
		return nil, nil, opts, err
	}
	if len(schemas) == 0 {
		s.log.Warn("No schema files found", zap.String("dir", schemaDir))
	}
	if err := runner.Prepare(schemas); err != nil {
		s.close()
		return nil, nil, opts, err
	}

	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts.Platform, _ = cmd.Flags().GetString("platform")
	if opts.Platform == "" {
		opts.Platform = platformOf(s.cfg, s.connectionName(cmd))
	}
	return s, runner, opts, nil
}

func platformOf(cfg *config.Config, connection string) string {
	ds, ok := cfg.Datasource(connection)
	if !ok {
		return generator.DefaultPlatform
	}
	return generator.PlatformFor(ds.Adapter)
}
