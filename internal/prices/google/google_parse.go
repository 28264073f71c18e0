package google

import (
	"fmt"
	"strings"

	"livingcost/internal/prices"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// entries. A first row whose second cell is not numeric is a header and is
// skipped; rows without a location name are ignored.
func parseRows(values [][]interface{}) []prices.Entry {
	var out []prices.Entry
	for i, raw := range values {
		row := toStrings(raw)
		name := prices.NormalizeLocation(safeGet(row, 0))
		value, ok := prices.ParseValue(safeGet(row, 1))
		if i == 0 && !ok {
			continue
		}
		if name == "" {
			continue
		}
		out = append(out, prices.Entry{Location: name, Value: value})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
