// Package server provides the HTTP server exposing ACLs and the ORM profiler.
//
// It uses gorilla/mux for routing; requests are logged through zap and
// panics recovered with gorilla/handlers.
//
// # Server Setup
//
//	conns := db.NewManager(cfg, db.Options{Logger: log})
//	srv, err := server.NewServer(cfg, conns, profiler.NewMemoryStore(0), log, "0.0.0.0", "8000")
//	if err != nil {
//	    return err
//	}
//	endpoints.RegisterAll(srv)
//	log.Fatal("server stopped", zap.Error(srv.Start()))
//
// # Endpoints
//
// Endpoints are registered via the endpoints subpackage:
//
//   - / - Status of the server and its connections
//   - /acl/{type}/{identifier} - JSON view of an ACL
//   - /_profiler/... - Profiler panel, when a profile store is set
package server
