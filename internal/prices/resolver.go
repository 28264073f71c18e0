package prices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"livingcost/internal/cache"
	"livingcost/internal/core"
	"livingcost/internal/metrics"
)

const tableCacheKey = "rpp:table"

// MatchKind describes how a query matched a table row.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
)

// Resolution is the outcome of resolving a location.
type Resolution struct {
	Query    string          `json:"query"`
	Location string          `json:"location"`
	Index    core.PriceIndex `json:"index"`
	Raw      float64         `json:"raw"`
	Match    MatchKind       `json:"match"`
	// OutOfRange is set when Raw was implausible and Index is a fallback.
	OutOfRange bool   `json:"out_of_range"`
	Source     string `json:"source"`
}

// Resolver maps location names to price indices using a cached table.
type Resolver struct {
	primary  TableReader
	fallback FallbackTable
	cache    cache.Cache[Table]
	logger   *slog.Logger
	group    singleflight.Group
}

// NewResolver builds a resolver. primary may be nil, in which case the
// fallback table is always used.
func NewResolver(primary TableReader, fallback FallbackTable, c cache.Cache[Table], logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.NewLRUCache[Table](1, 24*time.Hour)
	}
	return &Resolver{primary: primary, fallback: fallback, cache: c, logger: logger}
}

// Table returns the cached table, loading it once per TTL. A failing
// primary source degrades to the fallback table, which is cached like any
// other table until the TTL passes or Invalidate is called.
func (r *Resolver) Table(ctx context.Context) (Table, error) {
	if t, ok := r.cache.Get(ctx, tableCacheKey); ok {
		return t, nil
	}
	v, err, _ := r.group.Do(tableCacheKey, func() (any, error) {
		return r.load(ctx)
	})
	if err != nil {
		return Table{}, err
	}
	return v.(Table), nil
}

func (r *Resolver) load(ctx context.Context) (Table, error) {
	if r.primary != nil {
		start := time.Now()
		t, err := r.primary.ReadTable(ctx)
		source := t.Source
		if source == "" {
			source = "primary"
		}
		metrics.TableLoadDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
		if err == nil && t.Len() > 0 {
			metrics.TableLoadsTotal.WithLabelValues(source, metrics.OutcomeSuccess).Inc()
			r.cache.Set(ctx, tableCacheKey, t)
			r.logger.InfoContext(ctx, "Loaded price table", "source", t.Source, "entries", t.Len())
			return t, nil
		}
		if err == nil {
			err = fmt.Errorf("empty price table from %s", source)
		}
		metrics.TableLoadsTotal.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		r.logger.WarnContext(ctx, "Price table source failed, using fallback table", "error", err)
	}

	t, err := r.fallback.ReadTable(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("fallback price table: %w", err)
	}
	metrics.TableLoadsTotal.WithLabelValues(t.Source, metrics.OutcomeFallback).Inc()
	r.cache.Set(ctx, tableCacheKey, t)
	return t, nil
}

// Invalidate drops the cached table so the next lookup reloads it.
func (r *Resolver) Invalidate(ctx context.Context) {
	r.cache.Delete(ctx, tableCacheKey)
}

// Locations returns the sorted location names of the current table.
func (r *Resolver) Locations(ctx context.Context) ([]string, error) {
	t, err := r.Table(ctx)
	if err != nil {
		return nil, err
	}
	return t.Locations(), nil
}

// Resolve finds the price index for location. Names are compared case
// insensitively: an exact match wins, otherwise the first row whose name
// contains the query. Values outside the plausible range are replaced by
// the fallback constant for the location, or the national average.
func (r *Resolver) Resolve(ctx context.Context, location string) (Resolution, error) {
	query := NormalizeLocation(location)
	if query == "" {
		return Resolution{}, fmt.Errorf("%w: empty location", core.ErrUnresolvedLocation)
	}
	t, err := r.Table(ctx)
	if err != nil {
		return Resolution{}, err
	}

	entry, kind, ok := match(t.Entries, query)
	if !ok {
		metrics.ResolutionsTotal.WithLabelValues("none").Inc()
		return Resolution{}, fmt.Errorf("%w: %q", core.ErrUnresolvedLocation, query)
	}

	res := Resolution{
		Query:    query,
		Location: entry.Location,
		Index:    core.PriceIndex(entry.Value),
		Raw:      entry.Value,
		Match:    kind,
		Source:   t.Source,
	}
	if !res.Index.InRange() {
		res.OutOfRange = true
		res.Index = r.fallbackIndex(query, entry.Location)
		r.logger.WarnContext(ctx, "Price index out of range, using fallback",
			"location", entry.Location, "raw", entry.Value, "index", float64(res.Index))
	}
	metrics.ResolutionsTotal.WithLabelValues(string(kind)).Inc()
	return res, nil
}

func (r *Resolver) fallbackIndex(names ...string) core.PriceIndex {
	for _, n := range names {
		if v, ok := r.fallback.Lookup(n); ok {
			return core.PriceIndex(v)
		}
	}
	return core.NeutralPriceIndex
}

func match(entries []Entry, query string) (Entry, MatchKind, bool) {
	q := strings.ToLower(query)
	for _, e := range entries {
		if strings.ToLower(NormalizeLocation(e.Location)) == q {
			return e, MatchExact, true
		}
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Location), q) {
			return e, MatchSubstring, true
		}
	}
	return Entry{}, "", false
}
