// Package storage keeps snapshots of price tables in SQLite so servers can
// start from the last good table when upstream sources are down.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"livingcost/internal/prices"

	_ "modernc.org/sqlite"
)

const SourceName = "sqlite"

// ErrNoSnapshot is returned when no table has been saved yet.
var ErrNoSnapshot = errors.New("no price snapshot stored")

// Snapshot describes a stored table without its entries.
type Snapshot struct {
	ID         int64
	Source     string
	FetchedAt  time.Time
	EntryCount int
}

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ prices.TableReader = (*SQLiteRepository)(nil)
	_ prices.TableWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between the worker and readers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveTable stores t as a new snapshot.
func (r *SQLiteRepository) SaveTable(ctx context.Context, t prices.Table) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	fetched := t.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO price_snapshots (source, fetched_at, entry_count) VALUES (?, ?, ?)`,
		t.Source, fetched.UTC().Format(time.RFC3339Nano), len(t.Entries))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_entries (snapshot_id, position, location, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range t.Entries {
		if _, err := stmt.ExecContext(ctx, id, i, e.Location, e.Value); err != nil {
			return 0, fmt.Errorf("insert entry %q: %w", e.Location, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Price snapshot saved to SQLite",
		"id", id,
		"source", t.Source,
		"entries", len(t.Entries))
	return id, nil
}

// LatestSnapshot returns metadata of the most recent snapshot.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, fetched_at, entry_count FROM price_snapshots ORDER BY id DESC LIMIT 1`)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	return s, err
}

// ReadTable returns the most recent snapshot as a table. The table keeps
// the source it was fetched from.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (prices.Table, error) {
	snap, err := r.LatestSnapshot(ctx)
	if err != nil {
		return prices.Table{}, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT location, value FROM price_entries WHERE snapshot_id = ? ORDER BY position`, snap.ID)
	if err != nil {
		return prices.Table{}, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	t := prices.Table{Source: snap.Source, FetchedAt: snap.FetchedAt, Entries: make([]prices.Entry, 0, snap.EntryCount)}
	for rows.Next() {
		var e prices.Entry
		if err := rows.Scan(&e.Location, &e.Value); err != nil {
			return prices.Table{}, fmt.Errorf("scan entry: %w", err)
		}
		t.Entries = append(t.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return prices.Table{}, fmt.Errorf("iterate entries: %w", err)
	}
	return t, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, fetched_at, entry_count FROM price_snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many were removed.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM price_snapshots WHERE id NOT IN (SELECT id FROM price_snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (Snapshot, error) {
	var (
		snap    Snapshot
		fetched string
	)
	if err := s.Scan(&snap.ID, &snap.Source, &fetched, &snap.EntryCount); err != nil {
		return Snapshot{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse fetched_at %q: %w", fetched, err)
	}
	snap.FetchedAt = t
	return snap, nil
}
