package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/geoface/internal/config"
)

// Opener opens an attendance store for one driver.
type Opener func(cfg *config.DatabaseConfig) (AttendanceRepository, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Opener{}
)

// RegisterBackend registers the opener for driver.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(driver string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[driver] = open
}

// Drivers returns the registered driver names.
func Drivers() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the store selected by cfg.Driver and prepares its schema.
func Open(cfg *config.DatabaseConfig) (AttendanceRepository, error) {
	if cfg == nil {
		return nil, errors.New("database configuration is required")
	}
	backendsMu.RLock()
	open, ok := backends[cfg.Driver]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database driver %q not registered", cfg.Driver)
	}
	return open(cfg)
}
