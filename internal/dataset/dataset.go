/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Result Sets
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package dataset holds the tabular result type passed between the query
// executor and the summarizer, plus helpers for reading loosely typed
// scalar values out of it.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row maps a column name to a scalar value (number, string, time, bool or nil)
type Row map[string]any

// ResultSet is an ordered list of rows. Columns records the column order
// reported by the executor; it may be empty for hand-built sets.
type ResultSet struct {
	Columns []string `json:"columns,omitempty"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows
func (rs ResultSet) Len() int {
	return len(rs.Rows)
}

// Empty reports whether the set has no rows
func (rs ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// HasColumn reports whether name is one of the set's columns. When the
// executor did not report columns, the first row's keys are used.
func (rs ResultSet) HasColumn(name string) bool {
	for _, c := range rs.Columns {
		if c == name {
			return true
		}
	}
	if len(rs.Columns) == 0 && len(rs.Rows) > 0 {
		_, ok := rs.Rows[0][name]
		return ok
	}
	return false
}

// MarshalJSON emits the rows only, which is the shape clients expect in
// the "data" field of a report.
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	rows := rs.Rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON accepts a bare array of row objects.
func (rs *ResultSet) UnmarshalJSON(data []byte) error {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	rs.Rows = rows
	rs.Columns = nil
	return nil
}

// Float coerces a scalar into a float64. Strings are parsed; NaN and
// anything unparseable report false.
func Float(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOr returns Float(v), or def when v is not numeric
func FloatOr(v any, def float64) float64 {
	if f, ok := Float(v); ok {
		return f
	}
	return def
}

// Int coerces a scalar into an int64, truncating fractional values
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// IntOr returns Int(v), or def when v is not numeric
func IntOr(v any, def int64) int64 {
	if i, ok := Int(v); ok {
		return i
	}
	return def
}

// String renders a scalar as text. nil becomes the empty string.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time coerces a time.Time or a date/timestamp string into a time.Time
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
