/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Query Planner
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package planner turns a classified intent and a resolved catalog into
// a fixed aggregation query and the chart kind that suits its result.
package planner

import (
	"fmt"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
)

// ChartKind is the visualization a plan's result is meant for
type ChartKind string

const (
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartPie   ChartKind = "pie"
	ChartTable ChartKind = "table"
)

// QueryPlan is the SQL to run and the chart kind its rows feed
type QueryPlan struct {
	SQL           string    `json:"sql"`
	Visualization ChartKind `json:"visualization"`
}

// Order statuses considered valid by the data quality checks
var KnownStatuses = []string{"completed", "pending", "cancelled"}

// Data quality discriminator values, one per UNION ALL branch
const (
	QualitySourceCustomers = "customers"
	QualitySourceOrders    = "orders"
)

// GeneralRowLimit caps the listing returned for unrecognized questions
const GeneralRowLimit = 10

type template struct {
	roles []catalog.Role
	chart ChartKind
	build func(t map[catalog.Role]string) string
}

var templates = map[intent.Intent]template{
	intent.CategoryComparison: {
		roles: []catalog.Role{catalog.RoleOrders, catalog.RoleProducts},
		chart: ChartBar,
		build: categoryComparison,
	},
	intent.RevenueTrend: {
		roles: []catalog.Role{catalog.RoleMetrics},
		chart: ChartLine,
		build: revenueTrend,
	},
	intent.CustomerSpending: {
		roles: []catalog.Role{catalog.RoleCustomers, catalog.RoleOrders},
		chart: ChartBar,
		build: customerSpending,
	},
	intent.ProductPopularity: {
		roles: []catalog.Role{catalog.RoleProducts, catalog.RoleOrders},
		chart: ChartPie,
		build: productPopularity,
	},
	intent.OrderStatus: {
		roles: []catalog.Role{catalog.RoleOrders},
		chart: ChartPie,
		build: orderStatus,
	},
	intent.DataQuality: {
		roles: []catalog.Role{catalog.RoleCustomers, catalog.RoleOrders},
		chart: ChartTable,
		build: dataQuality,
	},
	intent.CustomerGrowth: {
		roles: []catalog.Role{catalog.RoleMetrics},
		chart: ChartLine,
		build: customerGrowth,
	},
	intent.General: {
		roles: []catalog.Role{catalog.RoleCustomers},
		chart: ChartTable,
		build: general,
	},
}

// RequiredRoles lists the catalog roles the intent's query reads
func RequiredRoles(i intent.Intent) []catalog.Role {
	tpl, ok := templates[i]
	if !ok {
		return nil
	}
	out := make([]catalog.Role, len(tpl.roles))
	copy(out, tpl.roles)
	return out
}

// Plan builds the query for an intent. It fails with a schema
// resolution error when a role the query needs is not in the catalog.
func Plan(i intent.Intent, cat *catalog.Catalog) (QueryPlan, error) {
	tpl, ok := templates[i]
	if !ok {
		return QueryPlan{}, errors.Newf(errors.ErrTypeInternal, "no query template for %s", i)
	}

	if missing := cat.Missing(tpl.roles...); len(missing) > 0 {
		names := make([]string, len(missing))
		for n, role := range missing {
			names[n] = string(role)
		}
		return QueryPlan{}, errors.NewSchemaResolutionError(names...)
	}

	tables := make(map[catalog.Role]string, len(tpl.roles))
	for _, role := range tpl.roles {
		tbl, _ := cat.Table(role)
		tables[role] = tbl.Name
	}

	return QueryPlan{SQL: tpl.build(tables), Visualization: tpl.chart}, nil
}

func categoryComparison(t map[catalog.Role]string) string {
	q := &selectQuery{
		columns: []string{
			"p.p_category AS category",
			"COUNT(DISTINCT o.order_id) AS order_count",
			"SUM(o.amount)::float AS total_sales",
			"AVG(o.amount)::float AS avg_order_value",
		},
		from:  tableRef(t[catalog.RoleOrders], "o"),
		joins: []string{tableRef(t[catalog.RoleProducts], "p") + " ON p.p_id = ANY(o.product_ids)"},
		where: []string{
			"p.p_category IN " + literalList("Electronics", "Furniture"),
			"o.status = " + quoteLiteral("completed"),
		},
		groupBy: []string{"p.p_category"},
		orderBy: []string{"total_sales DESC"},
	}
	return q.String()
}

func metricSeries(table, metricType, alias string, requireValue bool) string {
	where := []string{"metric_type = " + quoteLiteral(metricType)}
	if requireValue {
		where = append(where, "metric_value IS NOT NULL")
	}
	where = append(where, "metric_date IS NOT NULL")

	q := &selectQuery{
		columns: []string{"metric_date AS date", "metric_value AS " + alias},
		from:    tableRef(table, ""),
		where:   where,
		orderBy: []string{"metric_date"},
	}
	return q.String()
}

func revenueTrend(t map[catalog.Role]string) string {
	return metricSeries(t[catalog.RoleMetrics], "revenue", "revenue", true)
}

func customerGrowth(t map[catalog.Role]string) string {
	return metricSeries(t[catalog.RoleMetrics], "new_customers", "new_customers", false)
}

func customerSpending(t map[catalog.Role]string) string {
	q := &selectQuery{
		columns: []string{
			"c.col1 AS customer_name",
			"SUM(o.amount)::float AS total_spent",
			"COUNT(o.order_id) AS order_count",
		},
		from:    tableRef(t[catalog.RoleCustomers], "c"),
		joins:   []string{tableRef(t[catalog.RoleOrders], "o") + " ON c.id = o.cust_id"},
		where:   []string{"o.status = " + quoteLiteral("completed")},
		groupBy: []string{"c.col1"},
		orderBy: []string{"total_spent DESC"},
		limit:   10,
	}
	return q.String()
}

func productPopularity(t map[catalog.Role]string) string {
	q := &selectQuery{
		columns: []string{
			"p.p_name AS product",
			"p.p_category AS category",
			"COUNT(o.order_id) AS times_ordered",
			"SUM(o.amount)::float AS revenue_generated",
		},
		from:    tableRef(t[catalog.RoleProducts], "p"),
		joins:   []string{tableRef(t[catalog.RoleOrders], "o") + " ON p.p_id = ANY(o.product_ids)"},
		where:   []string{"o.status = " + quoteLiteral("completed")},
		groupBy: []string{"p.p_name", "p.p_category"},
		orderBy: []string{"times_ordered DESC"},
		limit:   5,
	}
	return q.String()
}

func orderStatus(t map[catalog.Role]string) string {
	q := &selectQuery{
		columns: []string{
			"status",
			"COUNT(order_id) AS count",
			"SUM(amount)::float AS total_amount",
		},
		from:    tableRef(t[catalog.RoleOrders], ""),
		groupBy: []string{"status"},
		orderBy: []string{"count DESC"},
	}
	return q.String()
}

func countWhen(cond, alias string) string {
	return fmt.Sprintf("COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0) AS %s", cond, alias)
}

func zero(alias string) string {
	return "0 AS " + alias
}

// dataQuality emits one row per source table. Both branches carry all
// six check columns so the rows can be read by the table_name
// discriminator regardless of union order. A NULL email or status
// compares as NULL and is not counted; a NULL signup date is.
func dataQuality(t map[catalog.Role]string) string {
	customers := &selectQuery{
		columns: []string{
			quoteLiteral(QualitySourceCustomers) + " AS table_name",
			countWhen("col1 IS NULL OR col1 = ''", "missing_names"),
			countWhen("col2 NOT LIKE '%@%.%'", "invalid_emails"),
			countWhen("col3 IS NULL OR col3::text !~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}$'", "invalid_dates"),
			zero("missing_customer_ids"),
			zero("invalid_amounts"),
			zero("invalid_statuses"),
		},
		from: tableRef(t[catalog.RoleCustomers], ""),
	}

	orders := &selectQuery{
		columns: []string{
			quoteLiteral(QualitySourceOrders) + " AS table_name",
			zero("missing_names"),
			zero("invalid_emails"),
			zero("invalid_dates"),
			countWhen("cust_id IS NULL", "missing_customer_ids"),
			countWhen("amount <= 0", "invalid_amounts"),
			countWhen("status NOT IN "+literalList(KnownStatuses...), "invalid_statuses"),
		},
		from: tableRef(t[catalog.RoleOrders], ""),
	}

	return unionAll{customers, orders}.String()
}

func general(t map[catalog.Role]string) string {
	q := &selectQuery{
		from:  tableRef(t[catalog.RoleCustomers], ""),
		limit: GeneralRowLimit,
	}
	return q.String()
}
