package backend

import (
	"errors"
	"fmt"
	"time"

	"livingcost/internal/config"
)

// Config holds configuration for backend creation.
type Config struct {
	Source SourceType
	Cache  CacheType

	FallbackDataDir string
	PriceTableTTL   time.Duration

	// BEA
	BEAPageURL string
	BEAAPIURL  string
	BEAAPIKey  string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Source:                   SourceType(appConfig.PriceSource),
		Cache:                    CacheType(appConfig.CacheBackend),
		FallbackDataDir:          appConfig.FallbackDataDir,
		PriceTableTTL:            appConfig.PriceTableTTL,
		BEAPageURL:               appConfig.BEAPageURL,
		BEAAPIURL:                appConfig.BEAAPIURL,
		BEAAPIKey:                appConfig.BEAAPIKey,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		RedisAddr:                appConfig.RedisAddr,
		RedisPassword:            appConfig.RedisPassword,
		RedisDB:                  appConfig.RedisDB,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the selected source and cache depend on.
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid price source: %s", c.Source)
	}
	if err := c.validateSource(c.Source); err != nil {
		return err
	}

	switch c.Cache {
	case MemoryCache, "":
	case RedisCache:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for the redis cache")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Cache)
	}
	return nil
}

func (c Config) validateSource(source SourceType) error {
	switch source {
	case BEAAPISource:
		if c.BEAAPIKey == "" {
			return errors.New("BEA API key is required for the bea_api source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for the sqlite source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for the sheets source")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return errors.New("either a service account JSON or file must be provided for the sheets source")
		}
	}
	return nil
}

// SourceTypes returns all valid source types.
func SourceTypes() []SourceType {
	return []SourceType{MemorySource, BEAPageSource, BEAAPISource, SheetsSource, SQLiteSource}
}

// SourceTypeStrings returns all valid source type names.
func SourceTypeStrings() []string {
	types := SourceTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
