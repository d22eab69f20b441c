// Command ormctl manages the databases of the ORM bundle.
//
// # Quick Start
//
//	# Create the ACL tables
//	ormctl db migrate
//
//	# Load fixtures, replacing the data of the classes they declare
//	ormctl fixtures load fixtures/
//
//	# Inspect an ACL
//	ormctl acl show 'Blog\Post' 42
//
//	# Serve the ACL view and the profiler panel
//	ormctl server
//
// # Environment Variables
//
//   - ORM_CONFIG_PATH: directory holding ormbundle.yml (default: /etc/ormbundle)
//   - DATABASE_URL: DSN of the default connection
//   - ORM_DEFAULT_CONNECTION: name of the default connection
//   - ORM_LOGGING: log every SQL statement
//   - ORM_LOG_LEVEL, ORM_LOG_FORMAT: debug or info, json or console
//   - ORM_PROFILER_STORE: memory, redis or none
//   - ORM_PROFILER_REDIS_URL: redis URL of the redis profile store
//   - ORM_GENERATOR_BINARY, ORM_CACHE_DIR: external generator and its input directory
//   - PORT, BIND_ADDRESS: server listen address
package main
