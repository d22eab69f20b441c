package gorm

import (
	"context"

	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

// HealthStore provides health check operations using GORM
type HealthStore struct {
	conns *db.Manager
}

// NewHealthStore creates a new HealthStore
func NewHealthStore(conns *db.Manager) *HealthStore {
	return &HealthStore{conns: conns}
}

// CheckConnectivity runs SELECT 1 on every connection
func (s *HealthStore) CheckConnectivity(ctx context.Context) map[string]error {
	result := make(map[string]error)
	for _, name := range s.conns.Names() {
		conn, err := s.conns.Get(name)
		if err == nil {
			err = conn.WithContext(ctx).Exec("SELECT 1").Error
		}
		result[name] = err
	}
	return result
}
