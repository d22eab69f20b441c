package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/model"
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
	"github.com/doodlesbykumbi/ormbundle/pkg/server"
)

// newTestServer creates a server on an in-memory sqlite database holding
// the ACL tables, with every endpoint registered.
func newTestServer(t *testing.T, profiles profiler.ProfileStore) *server.Server {
	t.Helper()
	cfg := &config.Config{
		Datasources:       []config.Datasource{{Name: "main", Adapter: "sqlite", DSN: ":memory:"}},
		DefaultConnection: "main",
	}

	conn, err := db.Connect(cfg.Datasources[0], db.Options{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(model.ACLModels()...))

	conns := db.NewManager(cfg, db.Options{})
	conns.Set("main", conn)
	t.Cleanup(func() { _ = conns.Close() })

	s, err := server.NewServer(cfg, conns, profiles, zaptest.NewLogger(t), "127.0.0.1", "0")
	require.NoError(t, err)
	s.Version = "test"
	RegisterAll(s)
	return s
}

func serve(s *server.Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func assertJSON(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	require.NotEqual(t, http.StatusInternalServerError, w.Code)
}
