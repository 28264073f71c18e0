// Package prices resolves U.S. locations to regional price parity indices.
package prices

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one row of a price table. Value is the raw published index; it
// is 0 when the source cell was not numeric.
type Entry struct {
	Location string  `json:"location"`
	Value    float64 `json:"value"`
}

// Table is a normalized price index table from one source.
type Table struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Entries   []Entry   `json:"entries"`
}

func (t Table) Len() int {
	return len(t.Entries)
}

// Locations returns the location names sorted alphabetically.
func (t Table) Locations() []string {
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e.Location)
	}
	sort.Strings(out)
	return out
}

// ParseValue parses a published index cell such as "108.9" or " 1,012.5 ".
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeLocation trims whitespace and collapses inner runs of spaces.
func NormalizeLocation(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
