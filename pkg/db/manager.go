package db

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
)

// Manager holds the named connections of a configuration. Connections are
// opened on first use.
type Manager struct {
	cfg  *config.Config
	opts Options

	mu    sync.Mutex
	conns map[string]*gorm.DB
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{cfg: cfg, opts: opts, conns: map[string]*gorm.DB{}}
}

// Names returns the configured connection names.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.cfg.Datasources))
	for _, ds := range m.cfg.Datasources {
		names = append(names, ds.Name)
	}
	return names
}

// DefaultName returns the name of the default connection.
func (m *Manager) DefaultName() string {
	return m.cfg.DefaultConnection
}

// Get returns the named connection; an empty name selects the default one.
func (m *Manager) Get(name string) (*gorm.DB, error) {
	if name == "" {
		name = m.cfg.DefaultConnection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.conns[name]; ok {
		return db, nil
	}
	ds, ok := m.cfg.Datasource(name)
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", name)
	}
	db, err := Connect(ds, m.opts)
	if err != nil {
		return nil, err
	}
	m.conns[name] = db
	return db, nil
}

// Set registers an already opened connection under name.
func (m *Manager) Set(name string, db *gorm.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[name] = db
}

// Close closes every opened connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, db := range m.conns {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(m.conns, name)
	}
	return errors.Join(errs...)
}
