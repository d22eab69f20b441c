package profiler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/logger"
)

// PathPrefix is where the panel is mounted; its own requests are not profiled.
const PathPrefix = "/_profiler"

// Collector profiles the requests passing through its middleware.
type Collector struct {
	store      ProfileStore
	connection string
	log        *zap.Logger
}

// NewCollector returns a collector saving to store. connection names the
// connection reported in profiles.
func NewCollector(store ProfileStore, connection string, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{store: store, connection: connection, log: log}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware wraps next so that the statements it runs with the request
// context are recorded.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, PathPrefix+"/") {
			next.ServeHTTP(w, r)
			return
		}

		token := uuid.NewString()
		w.Header().Set(logger.TokenHeader, token)

		rec := db.NewRecorder()
		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r.WithContext(db.WithRecorder(r.Context(), rec)))

		queries := rec.Queries()
		p := &Profile{
			Token:      token,
			Method:     r.Method,
			URL:        r.URL.String(),
			Status:     sw.status,
			Time:       start,
			Connection: c.connection,
			Queries:    queries,
			QueryCount: len(queries),
		}
		// the request context may already be canceled
		if err := c.store.Save(context.WithoutCancel(r.Context()), p); err != nil {
			c.log.Warn("Failed to save profile", zap.String("debug_token", token), zap.Error(err))
			return
		}
		c.log.Debug("Saved profile", zap.String("debug_token", token), zap.Int("queries", p.QueryCount))
	})
}
