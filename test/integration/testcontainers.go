package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	migrations "github.com/doodlesbykumbi/ormbundle/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	ACL         *acl.Provider
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string // Connection string for the test database
	HTTPClient  *http.Client
	InlineMode  bool
	BinaryPath  string

	server *ServerInstance
}

// NewTestContext creates a new test context with a PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set ORM_BINARY to the path of the ormctl binary
//   - Inline mode: Set ORM_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	inlineMode := os.Getenv("ORM_INLINE") == "1"
	binaryPath := os.Getenv("ORM_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either ORM_BINARY or ORM_INLINE=1 is required.\n\nBinary mode:\n  go build -o ormctl ./cmd/ormctl\n  INTEGRATION_TEST=1 ORM_BINARY=$(pwd)/ormctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 ORM_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("ORM_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orm_test"),
		tcpostgres.WithUsername("orm"),
		tcpostgres.WithPassword("orm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	// Get connection string for the host (not container network)
	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://orm:orm@%s:%s/orm_test?sslmode=disable", host, port.Port())

	if err := runMigrations(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := db.Connect(config.Datasource{Name: "default", Adapter: "postgres", DSN: connStr}, db.Options{})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	rawDB, err := conn.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	tc := &TestContext{
		DB:          conn,
		RawDB:       rawDB,
		ACL:         acl.NewProvider(acl.NewGormStore(conn), nil),
		Container:   pgContainer,
		DatabaseURL: connStr,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		InlineMode:  inlineMode,
		BinaryPath:  binaryPath,
	}

	server, err := StartServer(tc, DefaultServerConfig())
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}
	tc.server = server
	tc.ServerURL = server.ServerURL
	return tc, nil
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.server != nil {
		tc.server.Stop()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// Reset empties the ACL tables between scenarios.
func (tc *TestContext) Reset() error {
	return tc.DB.Exec(`TRUNCATE acl_entries, acl_object_identities, acl_security_identities, acl_classes RESTART IDENTITY CASCADE`).Error
}

// runMigrations applies the embedded migrations the way "ormctl db migrate"
// does.
func runMigrations(dbURL string) error {
	sub, err := fs.Sub(migrations.Migrations, "migrations")
	if err != nil {
		return err
	}
	d, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// binaryEnv is the environment of an ormctl process talking to dbURL. The
// config path points to an empty directory so only the environment applies.
func binaryEnv(dbURL string, cfg ServerConfig) []string {
	return append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"ORM_CONFIG_PATH="+filepath.Join(os.TempDir(), "ormbundle-integration"),
		"ORM_PROFILER_STORE="+cfg.ProfilerStore,
		"ORM_LOG_FORMAT=console",
	)
}

// runBinary runs an ormctl command to completion and returns its output.
func (tc *TestContext) runBinary(args ...string) (string, error) {
	cmd := exec.Command(tc.BinaryPath, args...)
	cmd.Env = binaryEnv(tc.DatabaseURL, DefaultServerConfig())
	out, err := cmd.CombinedOutput()
	return string(out), err
}
