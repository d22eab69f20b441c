package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
	"github.com/doodlesbykumbi/ormbundle/pkg/server"
	"github.com/doodlesbykumbi/ormbundle/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the ORM status, ACL and profiler server",
	Long: `Run the ORM server.

The server exposes the connection status on /, ACLs on /acl/{type}/{identifier}
and, when profiler_store is memory or redis, the profiler panels under
/_profiler/{token}.

By default, database migrations are run on startup when the default
connection is postgres. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(cmd); err != nil {
			fail("Server failed", err)
		}
	},
}

func runServer(cmd *cobra.Command) error {
	s, err := newSession()
	if err != nil {
		return fmt.Errorf("unable to start server: %w", err)
	}
	defer s.close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := migrateDefault(s); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	profiles, closeProfiles, err := newProfileStore(s.cfg)
	if err != nil {
		return fmt.Errorf("unable to create profile store: %w", err)
	}
	defer closeProfiles()

	host, _ := cmd.Flags().GetString("bind-address")
	port, _ := cmd.Flags().GetString("port")
	srv, err := server.NewServer(s.cfg, s.conns, profiles, s.log, host, port)
	if err != nil {
		return fmt.Errorf("unable to start server: %w", err)
	}
	srv.Version = version

	endpoints.RegisterAll(srv)

	return serve(srv, s.log, host, port)
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func migrateDefault(s *session) error {
	ds, err := s.cfg.Default()
	if err != nil {
		return err
	}
	if ds.Adapter != "postgres" {
		s.log.Info("Skipping migrations", zap.String("connection", ds.Name), zap.String("adapter", ds.Adapter))
		return nil
	}
	s.log.Info("Running database migrations...", zap.String("connection", ds.Name))
	return runMigrations(ds)
}

// newProfileStore returns the configured profile store, nil when the
// profiler is disabled, and a function releasing it.
func newProfileStore(cfg *config.Config) (profiler.ProfileStore, func(), error) {
	switch cfg.ProfilerStore {
	case "memory":
		return profiler.NewMemoryStore(profiler.DefaultCapacity), func() {}, nil
	case "redis":
		store, err := profiler.NewRedisStoreFromURL(cfg.ProfilerRedisURL, profiler.DefaultTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return nil, func() {}, nil
}

func serve(srv *server.Server, log *zap.Logger, host, port string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Running server", zap.String("address", "http://"+host+":"+port))
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigChan:
		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
