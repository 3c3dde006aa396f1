/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package planner

import (
	stderrors "errors"
	"strings"
	"testing"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
)

func fullCatalog() *catalog.Catalog {
	return catalog.FromTables(map[catalog.Role]string{
		catalog.RoleOrders:    "ordr_history",
		catalog.RoleProducts:  "prdct_catalog",
		catalog.RoleCustomers: "cust_info",
		catalog.RoleMetrics:   "daily_metrics",
	})
}

func TestPlanChartKinds(t *testing.T) {
	tests := []struct {
		intent intent.Intent
		chart  ChartKind
		want   []string
	}{
		{intent.CategoryComparison, ChartBar, []string{
			`FROM "ordr_history" o`,
			`JOIN "prdct_catalog" p ON p.p_id = ANY(o.product_ids)`,
			`p.p_category IN ('Electronics', 'Furniture')`,
			"AS avg_order_value",
		}},
		{intent.RevenueTrend, ChartLine, []string{
			`FROM "daily_metrics"`,
			"metric_type = 'revenue'",
			"metric_value IS NOT NULL",
			"ORDER BY metric_date",
		}},
		{intent.CustomerSpending, ChartBar, []string{
			`JOIN "ordr_history" o ON c.id = o.cust_id`,
			"LIMIT 10",
		}},
		{intent.ProductPopularity, ChartPie, []string{"AS times_ordered", "LIMIT 5"}},
		{intent.OrderStatus, ChartPie, []string{"GROUP BY status", "AS total_amount"}},
		{intent.DataQuality, ChartTable, []string{"UNION ALL", "'customers' AS table_name", "'orders' AS table_name"}},
		{intent.CustomerGrowth, ChartLine, []string{"metric_type = 'new_customers'", "AS new_customers"}},
		{intent.General, ChartTable, []string{`SELECT *`, `FROM "cust_info"`, "LIMIT 10"}},
	}

	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			plan, err := Plan(tt.intent, fullCatalog())
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if plan.Visualization != tt.chart {
				t.Errorf("Visualization = %v, want %v", plan.Visualization, tt.chart)
			}
			for _, fragment := range tt.want {
				if !strings.Contains(plan.SQL, fragment) {
					t.Errorf("SQL missing %q:\n%s", fragment, plan.SQL)
				}
			}
		})
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	for _, i := range intent.All() {
		first, err := Plan(i, fullCatalog())
		if err != nil {
			t.Fatalf("Plan(%v) error = %v", i, err)
		}
		for n := 0; n < 10; n++ {
			again, _ := Plan(i, fullCatalog())
			if again != first {
				t.Fatalf("Plan(%v) not byte-identical across calls", i)
			}
		}
	}
}

func TestPlanUnresolvedRole(t *testing.T) {
	onlyOrders := catalog.FromTables(map[catalog.Role]string{catalog.RoleOrders: "ordr"})

	tests := []struct {
		intent intent.Intent
		ok     bool
	}{
		{intent.OrderStatus, true},
		{intent.CategoryComparison, false},
		{intent.RevenueTrend, false},
		{intent.CustomerSpending, false},
		{intent.DataQuality, false},
		{intent.General, false},
	}

	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			plan, err := Plan(tt.intent, onlyOrders)
			if tt.ok {
				if err != nil {
					t.Fatalf("Plan() error = %v", err)
				}
				return
			}
			if !errors.IsType(err, errors.ErrTypeSchemaResolution) {
				t.Fatalf("Plan() error = %v, want schema resolution error", err)
			}
			if plan.SQL != "" {
				t.Errorf("failed plan carried SQL: %q", plan.SQL)
			}
		})
	}
}

func TestPlanNamesEveryMissingRole(t *testing.T) {
	empty := catalog.FromTables(map[catalog.Role]string{})

	_, err := Plan(intent.CategoryComparison, empty)
	if !errors.IsType(err, errors.ErrTypeSchemaResolution) {
		t.Fatalf("Plan() error = %v, want schema resolution error", err)
	}
	var perr *errors.Error
	if !stderrors.As(err, &perr) {
		t.Fatalf("Plan() error %T is not structured", err)
	}
	if perr.Message != "no table found for orders, products data" {
		t.Errorf("Message = %q", perr.Message)
	}
	if len(perr.Suggestions) != 2 {
		t.Errorf("Suggestions = %v, want one per role", perr.Suggestions)
	}
}

func TestPlanQuotesIdentifiers(t *testing.T) {
	cat := catalog.FromTables(map[catalog.Role]string{
		catalog.RoleOrders: `ordr"; DROP TABLE x; --`,
	})

	plan, err := Plan(intent.OrderStatus, cat)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(plan.SQL, `FROM "ordr""; DROP TABLE x; --"`) {
		t.Errorf("identifier not quoted:\n%s", plan.SQL)
	}
}

func TestDataQualityBranchesShareColumns(t *testing.T) {
	plan, err := Plan(intent.DataQuality, fullCatalog())
	if err != nil {
		t.Fatal(err)
	}

	branches := strings.Split(plan.SQL, "UNION ALL")
	if len(branches) != 2 {
		t.Fatalf("got %d branches, want 2", len(branches))
	}
	for _, col := range []string{
		"table_name", "missing_names", "invalid_emails", "invalid_dates",
		"missing_customer_ids", "invalid_amounts", "invalid_statuses",
	} {
		for i, b := range branches {
			if !strings.Contains(b, "AS "+col) {
				t.Errorf("branch %d missing column %s", i, col)
			}
		}
	}
	if strings.Index(plan.SQL, "'customers'") > strings.Index(plan.SQL, "'orders'") {
		t.Error("customer checks should be the first branch")
	}
}

func TestDataQualityNullHandling(t *testing.T) {
	plan, err := Plan(intent.DataQuality, fullCatalog())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want string
		gone string
	}{
		{"null email not counted", `WHEN col2 NOT LIKE '%@%.%' THEN 1`, "col2 IS NULL"},
		{"null status not counted", `WHEN status NOT IN ('completed', 'pending', 'cancelled') THEN 1`, "status IS NULL"},
		{"null signup date counted", `WHEN col3 IS NULL OR col3::text !~`, ""},
		{"null name counted", `WHEN col1 IS NULL OR col1 = '' THEN 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(plan.SQL, tt.want) {
				t.Errorf("SQL missing %q:\n%s", tt.want, plan.SQL)
			}
			if tt.gone != "" && strings.Contains(plan.SQL, tt.gone) {
				t.Errorf("SQL should not contain %q:\n%s", tt.gone, plan.SQL)
			}
		})
	}
}

func TestRequiredRoles(t *testing.T) {
	roles := RequiredRoles(intent.CategoryComparison)
	if len(roles) != 2 || roles[0] != catalog.RoleOrders || roles[1] != catalog.RoleProducts {
		t.Errorf("RequiredRoles() = %v", roles)
	}
	roles[0] = catalog.RoleMetrics
	if RequiredRoles(intent.CategoryComparison)[0] != catalog.RoleOrders {
		t.Error("RequiredRoles() exposed internal slice")
	}
}

func TestSelectQueryString(t *testing.T) {
	q := &selectQuery{
		columns: []string{"a", "b"},
		from:    tableRef("t", "x"),
		where:   []string{"a > 1", "b < 2"},
		groupBy: []string{"a", "b"},
		orderBy: []string{"a DESC"},
		limit:   3,
	}
	want := "SELECT\n    a,\n    b\nFROM \"t\" x\nWHERE a > 1\n    AND b < 2\nGROUP BY a, b\nORDER BY a DESC\nLIMIT 3"
	if got := q.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}

	if got := quoteLiteral("it's"); got != "'it''s'" {
		t.Errorf("quoteLiteral() = %s", got)
	}
}
