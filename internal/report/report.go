// Package report summarizes and exports employee records.
package report

import (
	"sort"

	"go-rail-employee-registry/internal/dto"
)

// DefaultLimit is the number of rows a value-count report keeps.
const DefaultLimit = 10

// DefaultFields are the fields the dashboard reports on.
var DefaultFields = []string{dto.FieldDesignation, dto.FieldUnit}

type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts the distinct values of field across records, most
// frequent first and ties by value. Records where the field is absent or
// null are not counted. limit <= 0 keeps every value.
func ValueCounts(recs []dto.Record, field string, limit int) []Count {
	counts := map[string]int{}
	for _, r := range recs {
		v, ok := r.Get(field)
		if !ok || v == nil {
			continue
		}
		counts[dto.FormatValue(v)]++
	}

	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
