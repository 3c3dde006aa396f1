/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - SQL Builder
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package planner

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

const indent = "    "

// quoteIdent quotes a catalog-resolved table name for use in SQL
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// tableRef renders a quoted table name with an optional alias
func tableRef(name, alias string) string {
	if alias == "" {
		return quoteIdent(name)
	}
	return quoteIdent(name) + " " + alias
}

// selectQuery is a single SELECT statement assembled from fixed clause
// fragments. Only catalog identifiers (quoted via tableRef) and constant
// text written in this package ever reach it.
type selectQuery struct {
	columns []string
	from    string
	joins   []string
	where   []string
	groupBy []string
	orderBy []string
	limit   int
}

func (q *selectQuery) String() string {
	var b strings.Builder

	b.WriteString("SELECT")
	if len(q.columns) == 0 {
		b.WriteString(" *")
	} else {
		for i, col := range q.columns {
			b.WriteString("\n" + indent + col)
			if i < len(q.columns)-1 {
				b.WriteString(",")
			}
		}
	}

	b.WriteString("\nFROM " + q.from)
	for _, j := range q.joins {
		b.WriteString("\nJOIN " + j)
	}

	for i, cond := range q.where {
		if i == 0 {
			b.WriteString("\nWHERE " + cond)
		} else {
			b.WriteString("\n" + indent + "AND " + cond)
		}
	}

	if len(q.groupBy) > 0 {
		b.WriteString("\nGROUP BY " + strings.Join(q.groupBy, ", "))
	}
	if len(q.orderBy) > 0 {
		b.WriteString("\nORDER BY " + strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		b.WriteString("\nLIMIT " + strconv.Itoa(q.limit))
	}

	return b.String()
}

// unionAll concatenates SELECTs with UNION ALL, keeping branch order
type unionAll []*selectQuery

func (u unionAll) String() string {
	parts := make([]string, len(u))
	for i, q := range u {
		parts[i] = q.String()
	}
	return strings.Join(parts, "\n\nUNION ALL\n\n")
}

// quoteLiteral renders a constant string literal. It is only used for
// values written in this package, never for question text.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func literalList(values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteLiteral(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
