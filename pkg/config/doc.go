// Package config provides configuration management for the ORM bundle.
//
// Configuration is read from $ORM_CONFIG_PATH/ormbundle.yml (default
// /etc/ormbundle) and overridden by environment variables. Every attribute
// remembers whether its value came from the defaults, the file or the
// environment.
//
// # Configuration File
//
//	datasources:
//	  - name: main
//	    adapter: postgres
//	    dsn: postgres://app@localhost:5432/app?sslmode=disable
//	    replicas:
//	      - postgres://app@replica:5432/app?sslmode=disable
//	default_connection: main
//	logging: true
//
// # Environment Variables
//
//   - DATABASE_URL: DSN of the default connection (created if missing)
//   - ORM_DEFAULT_CONNECTION: Name of the default connection
//   - ORM_LOGGING: Enable the SQL query log
//   - ORM_LOG_LEVEL, ORM_LOG_FORMAT: Logger settings
//   - ORM_PROFILER_STORE, ORM_PROFILER_REDIS_URL: Profile storage
//   - ORM_GENERATOR_BINARY, ORM_CACHE_DIR: Build tooling
package config
