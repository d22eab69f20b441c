package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/audit"
	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/db"
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
	"github.com/doodlesbykumbi/ormbundle/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/ormbundle/pkg/server/store/gorm"
)

type Server struct {
	Config      *config.Config
	Conns       *db.Manager
	ACL         *acl.Provider
	HealthStore store.HealthStore
	// Profiles is nil when the profiler is disabled
	Profiles profiler.ProfileStore
	Version  string
	Log      *zap.Logger
	Router   *mux.Router
	srv      *http.Server
}

// NewServer builds a server on the default connection of conns. profiles
// may be nil.
func NewServer(
	cfg *config.Config,
	conns *db.Manager,
	profiles profiler.ProfileStore,
	log *zap.Logger,
	host string,
	port string,
) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := conns.Get("")
	if err != nil {
		return nil, fmt.Errorf("unable to connect to the default connection: %w", err)
	}

	router := mux.NewRouter().UseEncodedPath()
	accessLog := zap.NewStdLog(log.Named("access")).Writer()
	srv := &http.Server{
		Handler: handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
			handlers.LoggingHandler(accessLog, router),
		),
		Addr:         host + ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	provider := acl.NewProvider(acl.NewGormStore(conn), log.Named("acl"))
	if cfg.Audit {
		ds, err := cfg.Default()
		if err != nil {
			return nil, err
		}
		auditor, err := audit.ForConnection(conn, ds.Adapter, log.Named("audit"))
		if err != nil {
			return nil, err
		}
		provider.SetAuditLogger(auditor)
	}

	return &Server{
		Config:      cfg,
		Conns:       conns,
		ACL:         provider,
		HealthStore: gormstore.NewHealthStore(conns),
		Profiles:    profiles,
		Log:         log,
		Router:      router,
		srv:         srv,
	}, nil
}

// Handler returns the root handler, access log included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an existing listener, ignoring the address.
func (s *Server) StartWithListener(l net.Listener) error {
	return s.srv.Serve(l)
}

// Shutdown stops accepting requests and waits for the active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
