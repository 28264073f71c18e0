// Package memory serves a small built-in price table used when no upstream
// source is reachable.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"livingcost/internal/prices"
)

// SeedFile is read from the data directory passed to NewFromFiles.
const SeedFile = "rpp_fallback.txt"

// SourceName labels tables served by Store.
const SourceName = "fallback"

// defaults are BEA state RPPs for states whose published values are
// frequently mis-parsed.
var defaults = []prices.Entry{
	{Location: "District of Columbia", Value: 110.8},
	{Location: "California", Value: 112.6},
	{Location: "New Jersey", Value: 108.9},
	{Location: "Hawaii", Value: 108.6},
	{Location: "Mississippi", Value: 87.3},
	{Location: "Arkansas", Value: 86.5},
	{Location: "South Dakota", Value: 88.1},
}

type Store struct {
	mu      sync.RWMutex
	entries []prices.Entry
	byName  map[string]float64
}

var _ prices.FallbackTable = (*Store)(nil)

// New returns a store holding entries, or the built-in defaults when
// entries is empty.
func New(entries []prices.Entry) *Store {
	if len(entries) == 0 {
		entries = defaults
	}
	s := &Store{}
	s.set(entries)
	return s
}

// NewFromFiles extends the defaults with "Name,Value" lines read from
// base/rpp_fallback.txt. File entries override defaults with the same name.
func NewFromFiles(base string) *Store {
	extra := parseLines(readLines(filepath.Join(base, SeedFile)))
	merged := append(append([]prices.Entry(nil), defaults...), extra...)
	return New(merged)
}

func (s *Store) set(entries []prices.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
	s.byName = make(map[string]float64, len(entries))
	index := map[string]int{}
	for _, e := range entries {
		key := strings.ToLower(prices.NormalizeLocation(e.Location))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			s.entries[i].Value = e.Value
		} else {
			index[key] = len(s.entries)
			s.entries = append(s.entries, prices.Entry{Location: prices.NormalizeLocation(e.Location), Value: e.Value})
		}
		s.byName[key] = e.Value
	}
}

// ReadTable returns a copy of the built-in table.
func (s *Store) ReadTable(_ context.Context) (prices.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return prices.Table{
		Source:    SourceName,
		FetchedAt: time.Now().UTC(),
		Entries:   append([]prices.Entry(nil), s.entries...),
	}, nil
}

// Lookup returns the fallback constant for a location, ignoring case.
func (s *Store) Lookup(location string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byName[strings.ToLower(prices.NormalizeLocation(location))]
	return v, ok
}

func parseLines(lines []string) []prices.Entry {
	var out []prices.Entry
	for _, line := range lines {
		i := strings.LastIndex(line, ",")
		if i <= 0 {
			continue
		}
		v, ok := prices.ParseValue(line[i+1:])
		if !ok {
			continue
		}
		out = append(out, prices.Entry{Location: line[:i], Value: v})
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
