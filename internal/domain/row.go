package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Fields is a loosely-typed column -> value map as supplied by callers.
type Fields map[string]any

// Clone returns a shallow copy so hooks never mutate the caller's map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether column is present.
func (f Fields) Has(column string) bool {
	_, ok := f[column]
	return ok
}

// Columns returns the column names in sorted order.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Row is one result row. It keeps the column order of the SELECT.
type Row struct {
	columns []string
	values  map[string]any
}

func NewRow() *Row {
	return &Row{values: make(map[string]any)}
}

// Set adds or replaces a column value; new columns are appended.
func (r *Row) Set(column string, value any) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

func (r *Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the column value or nil.
func (r *Row) Value(column string) any {
	return r.values[column]
}

func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Map returns a copy of the row as a plain map.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the row as an object in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
