// Package db provides database connection utilities for the ORM bundle.
//
// Connections are opened with GORM using the driver of the datasource
// adapter: postgres, mysql or sqlite. A Manager opens the configured
// datasources lazily and keeps them by name; datasources with replicas read
// from them round robin.
//
// # Connection
//
//	manager := db.NewManager(cfg, db.Options{Logger: log, Logging: cfg.Logging})
//	defer manager.Close()
//
//	database, err := manager.Get("") // default connection
//	if err != nil {
//	    return err
//	}
//
// # Query Log
//
// Every connection logs through QueryLogger. Statements executed with a
// context carrying a Recorder (see WithRecorder) are collected there; the
// profiler uses this to show the queries of a request.
package db
