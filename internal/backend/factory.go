package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"livingcost/internal/cache"
	"livingcost/internal/prices"
	"livingcost/internal/prices/bea"
	gsheet "livingcost/internal/prices/google"
	"livingcost/internal/prices/memory"
	"livingcost/internal/storage"
)

const (
	defaultTableTTL = 24 * time.Hour
	redisKeyPrefix  = "livingcost:"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend wires the primary source, the fallback table and the
// cache. Cleanup closes everything that was opened.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dataDir := config.FallbackDataDir
	if dataDir == "" {
		dataDir = "data"
	}
	b := &Backend{
		Fallback:    memory.NewFromFiles(dataDir),
		ReadyChecks: make(map[string]ReadyCheck),
	}
	var cleanups []CleanupFunc

	if config.Source != MemorySource {
		reader, cleanup, err := f.CreateReader(ctx, config.Source, config)
		if err != nil {
			return nil, err
		}
		b.Source = reader
		if cleanup != nil {
			cleanups = append(cleanups, cleanup)
		}
		if repo, ok := reader.(*storage.SQLiteRepository); ok {
			b.ReadyChecks["sqlite"] = repo.Ping
		}
	}

	ttl := config.PriceTableTTL
	if ttl <= 0 {
		ttl = defaultTableTTL
	}
	switch config.Cache {
	case RedisCache:
		client := cache.NewRedisClient(cache.RedisConfig{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err := cache.Ping(ctx, client); err != nil {
			client.Close()
			runCleanups(cleanups)
			return nil, err
		}
		b.Cache = cache.NewRedisCache[prices.Table](client, redisKeyPrefix, ttl, f.logger)
		b.ReadyChecks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, client) }
		cleanups = append(cleanups, client.Close)
	default:
		lru := cache.NewLRUCache[prices.Table](1, ttl)
		b.Cache = lru
		b.Cleaner = lru
	}

	b.Cleanup = func() error { return runCleanups(cleanups) }
	f.logger.Info("Initialized price backend",
		"source", config.Source, "cache", cacheName(config.Cache), "ttl", ttl.String(), "fallback_entries", b.Fallback.Len())
	return b, nil
}

// CreateReader builds one table reader. Only the sqlite reader needs
// cleanup.
func (f *DefaultFactory) CreateReader(ctx context.Context, source SourceType, config Config) (prices.TableReader, CleanupFunc, error) {
	if !source.IsValid() {
		return nil, nil, fmt.Errorf("invalid price source: %s", source)
	}
	if err := config.validateSource(source); err != nil {
		return nil, nil, err
	}

	switch source {
	case BEAPageSource:
		f.logger.Info("Using BEA RPP page source", "url", valueOr(config.BEAPageURL, bea.DefaultPageURL))
		return bea.NewPageSource(config.BEAPageURL, f.logger), nil, nil
	case BEAAPISource:
		f.logger.Info("Using BEA API source", "url", valueOr(config.BEAAPIURL, bea.DefaultAPIURL))
		return bea.NewAPISource(config.BEAAPIURL, config.BEAAPIKey, f.logger), nil, nil
	case SheetsSource:
		cli, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Using Google Sheets source", "sheet", config.GoogleSheetName)
		return cli, nil, nil
	case SQLiteSource:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Using SQLite snapshot source", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil
	case MemorySource:
		dataDir := valueOr(config.FallbackDataDir, "data")
		return memory.NewFromFiles(dataDir), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported price source: %s", source)
	}
}

func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cacheName(c CacheType) string {
	if c == "" {
		return string(MemoryCache)
	}
	return string(c)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
