package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reserved keys used when a record is flattened into a single map. The
// double-underscore form can never be a persisted field name.
const (
	DocIDKey     = "__id__"
	CreatedAtKey = "__created_at__"
)

// Record is one employee document as seen by the application. Recognized
// labels live in Fields, everything else in Extra. Absent keys are absent in
// both maps.
type Record struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
	Extra     map[string]any
}

// NewRecord splits a raw document into recognized and unrecognized fields.
func NewRecord(id string, createdAt time.Time, doc map[string]any) Record {
	r := Record{
		ID:        id,
		CreatedAt: createdAt,
		Fields:    make(map[string]any),
		Extra:     make(map[string]any),
	}
	for k, v := range doc {
		if IsRecognized(k) {
			r.Fields[k] = v
		} else {
			r.Extra[k] = v
		}
	}
	return r
}

// Get returns the value stored under name and whether the key is present.
func (r Record) Get(name string) (any, bool) {
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	v, ok := r.Extra[name]
	return v, ok
}

// Text renders the value under name for display; absent and null values
// render as the empty string.
func (r Record) Text(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Map flattens the record, merging the document id and creation time under
// the reserved keys.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Fields)+len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	for k, v := range r.Fields {
		out[k] = v
	}
	out[DocIDKey] = r.ID
	if !r.CreatedAt.IsZero() {
		out[CreatedAtKey] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// FormatValue renders a stored scalar as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
