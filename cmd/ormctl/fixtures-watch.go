package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/fixtures"
)

// fixturesWatchCmd represents the fixtures watch command
var fixturesWatchCmd = &cobra.Command{
	Use:   "watch <file|dir>...",
	Short: "Reload fixture files whenever they change",
	Long: `Load fixture files, then watch them and reload the whole batch when one
is written. A failed reload is reported and rolled back; the watch goes on.

Example:
  ormctl fixtures watch fixtures/`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := watchFixtures(cmd, args); err != nil {
			fail("Failed to watch fixtures", err)
		}
	},
}

func init() {
	fixturesWatchCmd.Flags().Duration("debounce", 200*time.Millisecond, "Delay before reloading after a change")
	fixturesCmd.AddCommand(fixturesWatchCmd)
}

func watchFixtures(cmd *cobra.Command, paths []string) error {
	debounce, _ := cmd.Flags().GetDuration("debounce")

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	conn, err := s.conns.Get(s.connectionName(cmd))
	if err != nil {
		return err
	}
	loader := fixtures.NewLoader(conn, fixtures.ACLRegistry(), s.log)

	reload := func() {
		// Directories are expanded again so new files join the batch.
		files, err := fixtureFiles(paths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing fixtures: %v\n", err)
			return
		}
		n, err := loader.LoadFiles(context.Background(), files...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
			return
		}
		fmt.Printf("[%s] Loaded %d fixture file(s)\n", time.Now().Format(time.RFC3339), n)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	reload()
	fmt.Printf("Watching %d path(s) for fixture changes\n", len(paths))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Editors often write a file in several events; they are coalesced.
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isFixtureFile(filepath.Base(event.Name)) {
				continue
			}
			s.log.Debug("Fixture changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case <-timer.C:
			fmt.Printf("[%s] Fixtures modified, reloading...\n", time.Now().Format(time.RFC3339))
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
