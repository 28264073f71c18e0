// Package backend builds the price table stack selected by configuration:
// the primary source, the fallback table and the table cache.
package backend

import (
	"context"

	"livingcost/internal/cache"
	"livingcost/internal/prices"
	"livingcost/internal/prices/memory"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Backend is everything a prices.Resolver needs.
type Backend struct {
	// Source is the primary table reader, nil for the memory source.
	Source   prices.TableReader
	Fallback *memory.Store
	Cache    cache.Cache[prices.Table]
	// Cleaner is set when the cache evicts entries itself.
	Cleaner     cache.Cleaner
	ReadyChecks map[string]ReadyCheck
	Cleanup     CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
	// CreateReader builds a single upstream reader, as used by the
	// refresh worker.
	CreateReader(ctx context.Context, source SourceType, config Config) (prices.TableReader, CleanupFunc, error)
}

// SourceType names a price table source.
type SourceType string

const (
	MemorySource  SourceType = "memory"
	BEAPageSource SourceType = "bea"
	BEAAPISource  SourceType = "bea_api"
	SheetsSource  SourceType = "sheets"
	SQLiteSource  SourceType = "sqlite"
)

func (st SourceType) String() string {
	return string(st)
}

func (st SourceType) IsValid() bool {
	switch st {
	case MemorySource, BEAPageSource, BEAAPISource, SheetsSource, SQLiteSource:
		return true
	default:
		return false
	}
}

// IsUpstream reports whether the source fetches data from outside the
// process, so the refresh worker can snapshot it.
func (st SourceType) IsUpstream() bool {
	return st == BEAPageSource || st == BEAAPISource || st == SheetsSource
}

// CacheType names a table cache implementation.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)

func (ct CacheType) IsValid() bool {
	return ct == MemoryCache || ct == RedisCache
}
