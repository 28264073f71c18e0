package prices

import "context"

// Ports for price table adapters.
type (
	// TableReader loads a complete price table from a source.
	TableReader interface {
		ReadTable(ctx context.Context) (Table, error)
	}

	// TableWriter persists a table and returns the snapshot ID.
	TableWriter interface {
		SaveTable(ctx context.Context, t Table) (snapshotID int64, err error)
	}

	// FallbackTable serves a built-in table and per-location constants used
	// when the primary source fails or publishes implausible values.
	FallbackTable interface {
		TableReader
		Lookup(location string) (float64, bool)
	}
)
