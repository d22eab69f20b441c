package profiler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Datasources: []config.Datasource{
			{Name: "main", Adapter: "sqlite", DSN: ":memory:", User: "app", Password: "hunter2"},
		},
		DefaultConnection: "main",
		Logging:           true,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Connect(testConfig().Datasources[0], db.Options{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec("CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT)").Error)
	return conn
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, &Profile{Token: fmt.Sprintf("t%d", i)}))
	}
	assert.Equal(t, 2, store.Len())

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p, err := store.Load(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, "t3", p.Token)

	// saving an existing token replaces it without evicting
	require.NoError(t, store.Save(ctx, &Profile{Token: "t2", QueryCount: 5}))
	assert.Equal(t, 2, store.Len())
	p, err = store.Load(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 5, p.QueryCount)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)
	defer store.Close()

	ctx := context.Background()
	profile := &Profile{
		Token:      "abc",
		Method:     "GET",
		URL:        "/acl/post/1",
		Status:     200,
		Connection: "main",
		Queries:    []db.Query{{Connection: "main", SQL: "SELECT 1", Duration: time.Millisecond, Rows: 1}},
		QueryCount: 1,
	}
	require.NoError(t, store.Save(ctx, profile))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"abc"))

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "/acl/post/1", loaded.URL)
	require.Len(t, loaded.Queries, 1)
	assert.Equal(t, "SELECT 1", loaded.Queries[0].SQL)
	assert.Equal(t, time.Millisecond, loaded.Queries[0].Duration)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStoreFromURL("redis://"+mr.Addr()+"/0", 0)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, DefaultTTL, store.ttl)

	_, err = NewRedisStoreFromURL("http://nope", 0)
	assert.Error(t, err)
}

type fixture struct {
	conn   *gorm.DB
	store  *MemoryStore
	router *mux.Router
	srv    http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)
	cfg := testConfig()
	conns := db.NewManager(cfg, db.Options{})
	conns.Set("main", conn)

	store := NewMemoryStore(10)
	router := mux.NewRouter()
	router.HandleFunc("/books", func(w http.ResponseWriter, r *http.Request) {
		tx := conn.WithContext(r.Context())
		if err := tx.Exec("INSERT INTO books (title) VALUES (?)", "Dune").Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var n int64
		tx.Table("books").Count(&n)
		w.WriteHeader(http.StatusCreated)
	}).Methods("POST")
	NewPanel(store, conns, cfg, "1.2.3", nil).Register(router)

	return &fixture{
		conn:   conn,
		store:  store,
		router: router,
		srv:    NewCollector(store, "main", nil).Middleware(router),
	}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestCollectorRecordsRequestQueries(t *testing.T) {
	f := setup(t)

	w := f.do("POST", "/books")
	require.Equal(t, http.StatusCreated, w.Code)
	token := w.Header().Get(logger.TokenHeader)
	require.NotEmpty(t, token)

	p, err := f.store.Load(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "POST", p.Method)
	assert.Equal(t, "/books", p.URL)
	assert.Equal(t, http.StatusCreated, p.Status)
	assert.Equal(t, "main", p.Connection)
	require.Equal(t, 2, p.QueryCount)
	assert.Contains(t, p.Queries[0].SQL, "INSERT INTO books")
	assert.Contains(t, p.Queries[1].SQL, "count(*)")

	// a second request gets its own token and log
	w = f.do("POST", "/books")
	assert.NotEqual(t, token, w.Header().Get(logger.TokenHeader))
	assert.Equal(t, 2, f.store.Len())
}

func TestCollectorSkipsPanel(t *testing.T) {
	f := setup(t)

	w := f.do("GET", "/_profiler/orm/configuration")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(logger.TokenHeader))
	assert.Zero(t, f.store.Len())
}

func TestPanelConfiguration(t *testing.T) {
	f := setup(t)

	w := f.do("GET", "/_profiler/orm/configuration")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "1.2.3")
	assert.Contains(t, body, "<td>main</td>")
	assert.Contains(t, body, "<td>sqlite</td>")
	assert.Contains(t, body, "enabled")
	assert.NotContains(t, body, "hunter2")
}

func TestPanelQueries(t *testing.T) {
	f := setup(t)
	token := f.do("POST", "/books").Header().Get(logger.TokenHeader)

	w := f.do("GET", "/_profiler/"+token+"/orm")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INSERT INTO books")
	assert.Contains(t, w.Body.String(), "/_profiler/"+token+"/orm/explain/main/1")

	w = f.do("GET", "/_profiler/unknown/orm")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanelExplain(t *testing.T) {
	f := setup(t)
	token := f.do("POST", "/books").Header().Get(logger.TokenHeader)
	base := "/_profiler/" + token + "/orm/explain/main/"

	t.Run("explains a recorded query", func(t *testing.T) {
		w := f.do("GET", base+"1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<table class="explain" data-query="1">`)
		assert.Contains(t, w.Body.String(), "<th>opcode</th>")
	})

	t.Run("query out of range", func(t *testing.T) {
		for _, q := range []string{"2", "-1", "first"} {
			w := f.do("GET", base+q)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "This query does not exist.", w.Body.String())
		}
	})

	t.Run("query cannot be explained", func(t *testing.T) {
		require.NoError(t, f.conn.Exec("DROP TABLE books").Error)
		w := f.do("GET", base+"0")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "This query cannot be explained.")
	})

	t.Run("unknown connection", func(t *testing.T) {
		w := f.do("GET", "/_profiler/"+token+"/orm/explain/archive/0")
		assert.Contains(t, w.Body.String(), "This query cannot be explained.")
	})
}
