/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - TSV Output
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package tsv renders query rows and report payloads as tab-separated
// text for terminals and scripts.
package tsv

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/summarizer"
)

// FormatValue converts a value to a TSV-safe string. Tabs, newlines and
// carriage returns are escaped so each row stays on one line.
func FormatValue(v interface{}) string {
	if v == nil {
		return "" // NULL
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339)
	case bool:
		s = strconv.FormatBool(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprintf("%d", val)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}, map[string]interface{}:
		jsonBytes, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(jsonBytes)
		}
	default:
		s = fmt.Sprintf("%v", val)
	}

	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")

	return s
}

// FormatResults formats a header and rows as TSV
func FormatResults(columnNames []string, results [][]interface{}) string {
	if len(columnNames) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columnNames, "\t"))

	for _, row := range results {
		sb.WriteString("\n")
		values := make([]string, len(row))
		for i, val := range row {
			values[i] = FormatValue(val)
		}
		sb.WriteString(strings.Join(values, "\t"))
	}

	return sb.String()
}

// FormatResultSet formats query rows. Without explicit columns the
// first row's keys are used in sorted order.
func FormatResultSet(rs dataset.ResultSet) string {
	columns := rs.Columns
	if len(columns) == 0 && len(rs.Rows) > 0 {
		for k := range rs.Rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	rows := make([][]interface{}, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		rows = append(rows, values)
	}
	return FormatResults(columns, rows)
}

// FormatVisualization formats a visualization payload. Tables keep
// their own columns; series become x, y and any extra fields.
func FormatVisualization(v *summarizer.Visualization) string {
	if v == nil {
		return ""
	}
	if v.IsTable() {
		return FormatResults(v.Columns, v.Rows)
	}

	extraSet := make(map[string]struct{})
	for _, p := range v.Points {
		for k := range p.Extra {
			extraSet[k] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	columns := append([]string{"x", "y"}, extras...)
	rows := make([][]interface{}, 0, len(v.Points))
	for _, p := range v.Points {
		row := []interface{}{p.X, p.Y}
		for _, k := range extras {
			row = append(row, p.Extra[k])
		}
		rows = append(rows, row)
	}
	return FormatResults(columns, rows)
}
