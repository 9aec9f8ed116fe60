package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordSplitsRecognizedAndExtraFields(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord("doc-1", created, map[string]any{
		FieldEmployeeName: "Ram Singh",
		FieldHRMSID:       "H001",
		"PF Number":       "PF-77",
	})

	assert.Equal(t, "doc-1", r.ID)
	assert.Equal(t, map[string]any{FieldEmployeeName: "Ram Singh", FieldHRMSID: "H001"}, r.Fields)
	assert.Equal(t, map[string]any{"PF Number": "PF-77"}, r.Extra)

	_, ok := r.Get(FieldStation)
	assert.False(t, ok, "absent fields stay absent")

	m := r.Map()
	assert.Equal(t, "doc-1", m[DocIDKey])
	assert.Equal(t, "2025-03-01T10:00:00Z", m[CreatedAtKey])
	assert.Equal(t, "PF-77", m["PF Number"])
}

func TestRecordText(t *testing.T) {
	r := NewRecord("x", time.Time{}, map[string]any{
		FieldBasicPay: float64(45000),
		FieldStation:  nil,
		"PAY LEVEL":   "L-6",
	})

	assert.Equal(t, "45000", r.Text(FieldBasicPay))
	assert.Equal(t, "", r.Text(FieldStation))
	assert.Equal(t, "", r.Text(FieldUnit))
	assert.Equal(t, "L-6", r.Text("PAY LEVEL"))
	_, ok := r.Map()[CreatedAtKey]
	assert.False(t, ok)
}

func TestLookupField(t *testing.T) {
	f, ok := LookupField("hrms_id")
	require.True(t, ok)
	assert.Equal(t, FieldHRMSID, f.Label)

	f, ok = LookupField("  employee name ")
	require.True(t, ok)
	assert.Equal(t, FieldEmployeeName, f.Label)

	f, ok = LookupField("PME DUE")
	require.True(t, ok)
	assert.Equal(t, KindDate, f.Kind)

	_, ok = LookupField("PF Number")
	assert.False(t, ok)
}

func TestLabelsAreUnique(t *testing.T) {
	labels := Labels()
	require.Len(t, labels, 36)
	seen := map[string]bool{}
	for _, l := range labels {
		assert.False(t, seen[l], "duplicate label %q", l)
		seen[l] = true
	}
}
