package models

import (
	"sort"
	"strings"
)

// Row is a single record keyed by canonical field name.
// Values are scalars: string, float64, int, bool or nil.
// All rows produced by one pipeline stage share the same key set.
type Row map[string]any

// Clone returns a shallow copy of the row. Values are scalars so a shallow
// copy is enough to keep stages from mutating caller-owned rows.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the row's field names sorted alphabetically.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsBlank reports whether a value counts as missing: nil or a string that is
// empty after trimming.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// SourceBatch is one uploaded table: its header row and data rows keyed by header.
type SourceBatch struct {
	Headers []string `json:"headers" yaml:"headers"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// SessionData holds the three source tables for a validation run.
type SessionData struct {
	Quote         SourceBatch `json:"quote"`
	Load          SourceBatch `json:"load"`
	DriverVehicle SourceBatch `json:"driver_vehicle"`
}

// Batch returns the source batch for the given entity.
func (d SessionData) Batch(kind EntityKind) SourceBatch {
	switch kind {
	case EntityQuote:
		return d.Quote
	case EntityLoad:
		return d.Load
	case EntityDriverVehicle:
		return d.DriverVehicle
	default:
		return SourceBatch{}
	}
}
