package store

import "context"

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity pings every configured connection; the map holds
	// nil for a reachable connection.
	CheckConnectivity(ctx context.Context) map[string]error
}
