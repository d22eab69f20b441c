package profiler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

const (
	msgQueryNotFound   = "This query does not exist."
	msgCannotExplain   = "This query cannot be explained."
	msgProfileNotFound = "Token not found"
)

// Panel renders stored profiles.
type Panel struct {
	store   ProfileStore
	conns   *db.Manager
	cfg     *config.Config
	version string
	log     *zap.Logger
}

func NewPanel(store ProfileStore, conns *db.Manager, cfg *config.Config, version string, log *zap.Logger) *Panel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Panel{store: store, conns: conns, cfg: cfg, version: version, log: log}
}

// Register mounts the panel routes on router.
func (p *Panel) Register(router *mux.Router) {
	router.HandleFunc(PathPrefix+"/orm/configuration", p.handleConfiguration).Methods("GET")
	router.HandleFunc(PathPrefix+"/{token}/orm", p.handleQueries).Methods("GET")
	router.HandleFunc(PathPrefix+"/{token}/orm/explain/{connection}/{query}", p.handleExplain).Methods("GET")
}

func (p *Panel) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		p.log.Error("Failed to render panel", zap.String("template", name), zap.Error(err))
	}
}

func (p *Panel) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	p.render(w, "configuration.html", map[string]interface{}{
		"Version":           p.version,
		"Datasources":       p.cfg.Datasources,
		"DefaultConnection": p.cfg.DefaultConnection,
		"Logging":           p.cfg.Logging,
	})
}

func (p *Panel) loadProfile(w http.ResponseWriter, r *http.Request) (*Profile, bool) {
	profile, err := p.store.Load(r.Context(), mux.Vars(r)["token"])
	switch {
	case errors.Is(err, ErrProfileNotFound):
		http.Error(w, msgProfileNotFound, http.StatusNotFound)
		return nil, false
	case err != nil:
		p.log.Error("Failed to load profile", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return profile, true
}

func (p *Panel) handleQueries(w http.ResponseWriter, r *http.Request) {
	profile, ok := p.loadProfile(w, r)
	if !ok {
		return
	}
	p.render(w, "queries.html", profile)
}

type explanation struct {
	Query   int
	SQL     string
	Columns []string
	Rows    [][]string
}

func (p *Panel) handleExplain(w http.ResponseWriter, r *http.Request) {
	profile, ok := p.loadProfile(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["query"])
	if err != nil || index < 0 || index >= len(profile.Queries) {
		_, _ = w.Write([]byte(msgQueryNotFound))
		return
	}
	query := profile.Queries[index]

	result, err := p.explain(r, vars["connection"], query.SQL)
	if err != nil {
		p.log.Debug("Explain failed", zap.String("sql", query.SQL), zap.Error(err))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<div class="error">` + msgCannotExplain + `</div>`))
		return
	}
	result.Query = index
	p.render(w, "explain.html", result)
}

func (p *Panel) explain(r *http.Request, connection, sql string) (*explanation, error) {
	conn, err := p.conns.Get(connection)
	if err != nil {
		return nil, err
	}

	rows, err := conn.WithContext(r.Context()).Raw("EXPLAIN " + sql).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &explanation{SQL: sql, Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = format(v)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func format(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
