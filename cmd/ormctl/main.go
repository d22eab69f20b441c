package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ormctl",
	Short: "Manage the ORM bundle: database, fixtures, ACLs and the profiler server",
	Long: `ormctl manages the databases configured in ormbundle.yml.

Configuration is read from $ORM_CONFIG_PATH/ormbundle.yml and environment
variables; a .env file in the working directory is loaded first.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringP("connection", "c", "", "connection to use (default: the default connection)")
}

func loadEnvFile(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}

// session bundles what most commands need: configuration, logger and the
// connections.
type session struct {
	cfg   *config.Config
	log   *zap.Logger
	conns *db.Manager
}

func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	return &session{
		cfg:   cfg,
		log:   log,
		conns: db.NewManager(cfg, db.Options{Logger: log.Named("sql"), Logging: cfg.Logging}),
	}, nil
}

// connectionName returns the --connection flag, or the default connection.
func (s *session) connectionName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("connection")
	if name == "" {
		name = s.cfg.DefaultConnection
	}
	return name
}

func (s *session) close() {
	if err := s.conns.Close(); err != nil {
		s.log.Warn("Failed to close connections", zap.Error(err))
	}
	_ = s.log.Sync()
}

// fail prints err and exits with status 1. Deferred calls do not run, so
// commands holding a session return from the function owning it first.
func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
