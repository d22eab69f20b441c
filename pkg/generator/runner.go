package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
)

const (
	BuildPropertiesFile = "build.properties"
	BuildTimeConfigFile = "buildtime-conf.xml"
)

// RunOptions are the arguments passed to every generator sub-command.
type RunOptions struct {
	Platform string
	Verbose  bool
}

// Runner prepares the generator cache directory and runs the generator.
type Runner struct {
	Binary   string
	CacheDir string
	// BaseDir is stripped from module directories to form package prefixes
	BaseDir string
	// PropertiesFile is copied to build.properties when it exists
	PropertiesFile string

	Stdout io.Writer
	Stderr io.Writer

	cfg *config.Config
	log *zap.Logger
}

func NewRunner(cfg *config.Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		Binary:   cfg.GeneratorBinary,
		CacheDir: filepath.Join(cfg.CacheDir, "generator"),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		cfg:      cfg,
		log:      log,
	}
}

// Prepare writes the cache directory: the rewritten schemas, build.properties
// and buildtime-conf.xml.
func (r *Runner) Prepare(schemas []Schema) error {
	if len(r.cfg.Datasources) == 0 {
		return fmt.Errorf("the ORM should be configured: %w", config.ErrNoDatasources)
	}
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	for _, s := range schemas {
		prefix := PackagePrefix(s.Dir, s.Namespace, r.BaseDir)
		name := s.Module + "-" + filepath.Base(s.Path)
		if err := rewriteSchemaFile(s.Path, filepath.Join(r.CacheDir, name), prefix); err != nil {
			return fmt.Errorf("%s: schema %s: %w", s.Module, filepath.Base(s.Path), err)
		}
		r.log.Debug("Prepared schema", zap.String("module", s.Module), zap.String("file", name), zap.String("prefix", prefix))
	}

	if err := r.writeBuildProperties(); err != nil {
		return err
	}

	conf, err := BuildTimeConfig(r.cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.CacheDir, BuildTimeConfigFile), conf, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", BuildTimeConfigFile, err)
	}
	return nil
}

func (r *Runner) writeBuildProperties() error {
	dst := filepath.Join(r.CacheDir, BuildPropertiesFile)
	var data []byte
	if r.PropertiesFile != "" {
		b, err := os.ReadFile(r.PropertiesFile)
		switch {
		case err == nil:
			data = b
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("failed to read %s: %w", r.PropertiesFile, err)
		}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", BuildPropertiesFile, err)
	}
	return nil
}

// Run executes a generator sub-command on the prepared cache directory and
// returns its exit code. The error is only set when the process could not
// be run at all.
func (r *Runner) Run(ctx context.Context, command string, opts RunOptions, args ...string) (int, error) {
	params := []string{command, "--input-dir=" + r.CacheDir}
	if opts.Verbose {
		params = append(params, "--verbose")
	}
	if opts.Platform != "" {
		params = append(params, "--platform="+opts.Platform)
	}
	params = append(params, args...)

	r.log.Info("Running generator", zap.String("binary", r.Binary), zap.Strings("args", params))

	cmd := exec.CommandContext(ctx, r.Binary, params...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("failed to run %s: %w", r.Binary, err)
	}
	return 0, nil
}

// SQLBuild runs the SQL generation for the given connections, writing the
// SQL files to the cache directory.
func (r *Runner) SQLBuild(ctx context.Context, opts RunOptions, connections []string) (int, error) {
	dsns, err := ConnectionDSNs(r.cfg, connections)
	if err != nil {
		return 1, err
	}
	args := []string{"--output-dir=" + r.CacheDir}
	for _, dsn := range dsns {
		args = append(args, "--connection="+dsn)
	}
	return r.Run(ctx, "sql:build", opts, args...)
}

// ModelBuild runs the model generation into outputDir.
func (r *Runner) ModelBuild(ctx context.Context, opts RunOptions, outputDir string) (int, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return 1, err
	}
	return r.Run(ctx, "model:build", opts, "--output-dir="+abs)
}
