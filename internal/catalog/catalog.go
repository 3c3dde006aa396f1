/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Schema Catalog
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package catalog maps the logical data roles used by the query templates
// onto the physical tables found by schema introspection.
package catalog

import (
	"sort"
	"strings"
)

// Role is a logical dataset a query template depends on
type Role string

const (
	RoleOrders    Role = "orders"
	RoleProducts  Role = "products"
	RoleCustomers Role = "customers"
	RoleMetrics   Role = "metrics"
)

// Roles returns every role in a fixed order
func Roles() []Role {
	return []Role{RoleOrders, RoleProducts, RoleCustomers, RoleMetrics}
}

// RawColumn describes one introspected column and a few sample values
type RawColumn struct {
	ColumnName   string `json:"column_name"`
	DataType     string `json:"data_type"`
	SampleValues []any  `json:"sampleValues"`
}

// RawSchema maps table name to its columns, as produced by introspection
type RawSchema map[string][]RawColumn

// TableNames returns the schema's table names sorted lexically
func (s RawSchema) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keywords holds the substring each role is matched by
type Keywords map[Role]string

// DefaultKeywords returns the abbreviations used by the dataset's
// physical table names.
func DefaultKeywords() Keywords {
	return Keywords{
		RoleOrders:    "ordr",
		RoleProducts:  "prdct",
		RoleCustomers: "cust",
		RoleMetrics:   "metric",
	}
}

// Merge returns a copy of k with any non-empty overrides applied
func (k Keywords) Merge(overrides Keywords) Keywords {
	merged := make(Keywords, len(k))
	for role, kw := range k {
		merged[role] = kw
	}
	for role, kw := range overrides {
		if strings.TrimSpace(kw) != "" {
			merged[role] = kw
		}
	}
	return merged
}

// Table is the physical table resolved for a role
type Table struct {
	Name    string
	Columns []RawColumn
}

// HasColumn reports whether the table was introspected with the column
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.ColumnName == name {
			return true
		}
	}
	return false
}

// Catalog is the request-scoped role to table mapping
type Catalog struct {
	tables map[Role]Table
}

// Build resolves each role against the schema. Table names are examined
// in sorted order and the first case-insensitive substring match wins,
// so the result does not depend on map iteration order. Roles with no
// match are left unresolved.
func Build(schema RawSchema, keywords Keywords) *Catalog {
	if keywords == nil {
		keywords = DefaultKeywords()
	}

	names := schema.TableNames()
	c := &Catalog{tables: make(map[Role]Table)}

	for _, role := range Roles() {
		kw := strings.ToLower(keywords[role])
		if kw == "" {
			continue
		}
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), kw) {
				c.tables[role] = Table{Name: name, Columns: schema[name]}
				break
			}
		}
	}

	return c
}

// FromTables builds a catalog directly from role to table name pairs
func FromTables(tables map[Role]string) *Catalog {
	c := &Catalog{tables: make(map[Role]Table, len(tables))}
	for role, name := range tables {
		if name != "" {
			c.tables[role] = Table{Name: name}
		}
	}
	return c
}

// Table returns the table resolved for role
func (c *Catalog) Table(role Role) (Table, bool) {
	if c == nil {
		return Table{}, false
	}
	t, ok := c.tables[role]
	return t, ok
}

// Missing returns the roles from want that are unresolved, in order
func (c *Catalog) Missing(want ...Role) []Role {
	var missing []Role
	for _, role := range want {
		if _, ok := c.Table(role); !ok {
			missing = append(missing, role)
		}
	}
	return missing
}

// Resolved returns role to table name for every resolved role
func (c *Catalog) Resolved() map[Role]string {
	out := make(map[Role]string)
	if c == nil {
		return out
	}
	for role, t := range c.tables {
		out[role] = t.Name
	}
	return out
}
