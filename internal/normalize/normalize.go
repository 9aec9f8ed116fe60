// Package normalize turns form or spreadsheet input into payloads the
// document store accepts. Every function here is total: bad input is
// dropped, never reported.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-rail-employee-registry/internal/dto"
)

var (
	// Spreadsheet imports name untitled columns "Unnamed: 3".
	placeholderKey = regexp.MustCompile(`(?i)^unnamed($|[^a-z])`)
	reservedKey    = regexp.MustCompile(`^__.*__$`)
)

// Key returns the trimmed key and whether it may be persisted.
func Key(raw string) (string, bool) {
	k := strings.TrimSpace(raw)
	if k == "" || placeholderKey.MatchString(k) || reservedKey.MatchString(k) {
		return "", false
	}
	return k, true
}

// Value returns the normalized value. nil is the null marker. ok is false
// when the value cannot be stored and the entry must be dropped.
func Value(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, true
		}
		return s, true
	case *string:
		if t == nil {
			return nil, true
		}
		return Value(*t)
	case time.Time:
		if t.IsZero() {
			return nil, true
		}
		return t.Format(time.DateOnly), true
	case *time.Time:
		if t == nil {
			return nil, true
		}
		return Value(*t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, true
		}
		return t, true
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil, true
		}
		return t, true
	case *float64:
		if t == nil {
			return nil, true
		}
		return Value(*t)
	case *int:
		if t == nil {
			return nil, true
		}
		return *t, true
	case *int64:
		if t == nil {
			return nil, true
		}
		return *t, true
	case *bool:
		if t == nil {
			return nil, true
		}
		return *t, true
	case json.Number:
		lit := strings.TrimSpace(string(t))
		if lit == "" {
			return nil, true
		}
		if _, err := strconv.ParseFloat(lit, 64); err != nil || !json.Valid([]byte(lit)) {
			return nil, false
		}
		return json.Number(lit), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return t, true
	default:
		return nil, false
	}
}

// Payload applies key filtering and value normalization. The result holds
// nil for cleared values; it is a fixed point of Payload.
func Payload(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	exact := make(map[string]bool, len(raw))

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		k, ok := Key(rawKey)
		if !ok {
			continue
		}
		v, ok := Value(raw[rawKey])
		if !ok {
			continue
		}
		isExact := k == rawKey
		if _, seen := out[k]; seen && (exact[k] || !isExact) {
			continue
		}
		out[k] = v
		exact[k] = isExact
	}
	return out
}

// ForCreate prepares a payload for a new document. Cleared values are kept
// as explicit nulls.
func ForCreate(raw map[string]any) map[string]any {
	return Payload(raw)
}

// ForUpdate prepares a field-level patch. Cleared values become field
// removals on the stored document.
func ForUpdate(raw map[string]any) dto.Patch {
	p := dto.Patch{Set: make(map[string]any)}
	for k, v := range Payload(raw) {
		if v == nil {
			p.Delete = append(p.Delete, k)
			continue
		}
		p.Set[k] = v
	}
	sort.Strings(p.Delete)
	return p
}
