// Package google reads a price parity table maintained in a Google
// spreadsheet, for deployments that curate their own index values.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"livingcost/internal/prices"
)

const SourceName = "sheets"

type Config struct {
	SpreadsheetID string
	// SheetName is the tab holding the table (default "RPP").
	SheetName string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

var _ prices.TableReader = (*Client)(nil)

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "RPP"
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: sheet, logger: logger}, nil
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *slog.Logger) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", credentialsFile)
		raw, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ReadTable reads columns A:B of the configured sheet.
func (c *Client) ReadTable(ctx context.Context) (prices.Table, error) {
	if c.svc == nil {
		return prices.Table{}, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return prices.Table{}, fmt.Errorf("read %s: %w", rng, err)
	}
	entries := parseRows(resp.Values)
	c.logger.DebugContext(ctx, "Read price table from spreadsheet", "range", rng, "entries", len(entries))
	return prices.Table{Source: SourceName, FetchedAt: time.Now().UTC(), Entries: entries}, nil
}
