// Package cache holds the price table caches shared by resolver instances.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store with expiry handled by the implementation.
type Cache[T any] interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) (T, bool)

	Set(ctx context.Context, key string, data T)

	Delete(ctx context.Context, key string)

	// Size returns the number of entries held locally, or -1 when the
	// store is remote.
	Size() int
}

// Cleaner is implemented by caches that must evict expired entries
// themselves.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries from registered caches.
type Manager struct {
	caches []Cleaner
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Register adds a cache to the cleanup loop. Call before Run.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Run cleans every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Evicted expired cache entries", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// CleanAll runs one cleanup pass and returns the number of evicted entries.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}
