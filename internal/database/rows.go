/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Row Conversion
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"pgedge-postgres-insights/internal/dataset"
)

// collectRows drains rows into a ResultSet, keeping column order
func collectRows(rows pgx.Rows) (dataset.ResultSet, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	rs := dataset.ResultSet{Columns: columns, Rows: []dataset.Row{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return dataset.ResultSet{}, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(dataset.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return dataset.ResultSet{}, err
	}
	return rs, nil
}

// normalizeValue converts driver values into plain JSON friendly values.
// Numerics become float64, UUIDs and byte strings become text.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		if !val.Valid || val.NaN {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	case netip.Prefix:
		return val.String()
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("%d months %d days %dus", val.Months, val.Days, val.Microseconds)
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		return time.Time{}.Add(time.Duration(val.Microseconds) * time.Microsecond).Format("15:04:05.999999")
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return val
	}
}
