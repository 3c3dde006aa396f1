/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Result Summarizer
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package summarizer turns query results into a short narrative and a
// chart-ready payload.
package summarizer

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
	"pgedge-postgres-insights/internal/planner"
)

// Report is the narrative and optional visualization for one result
type Report struct {
	Narrative     string         `json:"response"`
	Visualization *Visualization `json:"visualization"`
}

// Narratives used when a query returns no rows
const (
	NoCategoryData = "No sales data found for the specified categories."
	NoRevenueData  = "No valid revenue data available for analysis."
	NoSpendingData = "No customer spending data available."
	NoProductData  = "No product popularity data available."
	NoStatusData   = "No order status data available."
	NoQualityData  = "No data quality metrics available."
	NoGrowthData   = "No customer growth data available."
)

const (
	topDisplay   = 5
	monthLayout  = "Jan 2006"
	unknownLabel = "unknown"
)

// money renders a currency amount with two decimals
func money(v float64) string {
	return "$" + fixed(v, 2)
}

// percent renders a percentage with one decimal
func percent(v float64) string {
	return fixed(v, 1) + "%"
}

// fixed renders v with the given number of decimals, rounding the exact
// binary value and breaking exact ties away from zero. 0.125 becomes
// "0.13" while 1.005, stored as 1.00499..., becomes "1.00".
func fixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r := new(big.Rat).SetFloat64(math.Abs(v))
	r.Mul(r, new(big.Rat).SetInt(scale))

	q, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if rem.Lsh(rem, 1).Cmp(r.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	digits := q.String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	}
	if v < 0 {
		digits = "-" + digits
	}
	return digits
}

// Summarize builds the report for an intent's result set
func Summarize(i intent.Intent, rs dataset.ResultSet) (Report, error) {
	switch i {
	case intent.CategoryComparison:
		return categoryComparison(rs)
	case intent.RevenueTrend:
		return revenueTrend(rs)
	case intent.CustomerSpending:
		return customerSpending(rs)
	case intent.ProductPopularity:
		return productPopularity(rs)
	case intent.OrderStatus:
		return orderStatus(rs)
	case intent.DataQuality:
		return dataQuality(rs)
	case intent.CustomerGrowth:
		return customerGrowth(rs)
	default:
		return general(rs), nil
	}
}

// requireColumns fails with a summarization error naming the first
// expected column the result lacks.
func requireColumns(rs dataset.ResultSet, columns ...string) error {
	for _, c := range columns {
		if !rs.HasColumn(c) {
			return errors.NewSummarizationError(c)
		}
	}
	return nil
}

func noData(narrative string) Report {
	return Report{Narrative: narrative}
}

func categoryComparison(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoCategoryData), nil
	}
	if err := requireColumns(rs, "category", "total_sales", "order_count", "avg_order_value"); err != nil {
		return Report{}, err
	}

	type category struct {
		found  bool
		total  float64
		orders int64
		avg    float64
	}
	lookup := func(name string) category {
		for _, row := range rs.Rows {
			if dataset.String(row["category"]) == name {
				return category{
					found:  true,
					total:  dataset.FloatOr(row["total_sales"], 0),
					orders: dataset.IntOr(row["order_count"], 0),
					avg:    dataset.FloatOr(row["avg_order_value"], 0),
				}
			}
		}
		return category{}
	}

	electronics := lookup("Electronics")
	furniture := lookup("Furniture")

	lines := []string{
		"Category comparison analysis:",
		fmt.Sprintf("• Electronics: %s from %d orders (avg %s)", money(electronics.total), electronics.orders, money(electronics.avg)),
		fmt.Sprintf("• Furniture: %s from %d orders (avg %s)", money(furniture.total), furniture.orders, money(furniture.avg)),
	}

	if electronics.found && furniture.found {
		diff := electronics.total - furniture.total
		abs := diff
		if abs < 0 {
			abs = -abs
		}
		if furniture.total == 0 {
			lines = append(lines, fmt.Sprintf("Electronics sales are %s by %s compared to Furniture.", direction(diff), money(abs)))
		} else {
			lines = append(lines, fmt.Sprintf("Electronics sales are %s by %s (%s) compared to Furniture.",
				direction(diff), money(abs), percent(abs/furniture.total*100)))
		}
	}

	points := make([]Point, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		points = append(points, Point{
			X: dataset.String(row["category"]),
			Y: dataset.FloatOr(row["total_sales"], 0),
			Extra: map[string]any{
				"orderCount": dataset.IntOr(row["order_count"], 0),
				"avgValue":   dataset.FloatOr(row["avg_order_value"], 0),
			},
		})
	}

	return Report{
		Narrative:     strings.Join(lines, "\n"),
		Visualization: &Visualization{Kind: planner.ChartBar, Points: points},
	}, nil
}

func direction(diff float64) string {
	if diff > 0 {
		return "higher"
	}
	return "lower"
}

// bucket is a calendar month of a time series
type bucket struct {
	month time.Time
	value float64
}

func (b bucket) label() string {
	return b.month.Format(monthLayout)
}

// monthly groups (date, value) pairs by calendar month, oldest first
func monthly(dates []time.Time, values []float64) []bucket {
	index := make(map[time.Time]int)
	var buckets []bucket
	for n, d := range dates {
		key := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{month: key})
		}
		buckets[i].value += values[n]
	}
	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].month.Before(buckets[b].month)
	})
	return buckets
}

// peak returns the largest bucket; the earliest wins ties
func peak(buckets []bucket) bucket {
	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.value > best.value {
			best = b
		}
	}
	return best
}

func series(buckets []bucket, kind planner.ChartKind, axes *Axes) *Visualization {
	points := make([]Point, len(buckets))
	for i, b := range buckets {
		points[i] = Point{X: b.label(), Y: b.value}
	}
	return &Visualization{Kind: kind, Points: points, Axes: axes}
}

func revenueTrend(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoRevenueData), nil
	}
	if err := requireColumns(rs, "date", "revenue"); err != nil {
		return Report{}, err
	}

	var dates []time.Time
	var values []float64
	for _, row := range rs.Rows {
		revenue, ok := dataset.Float(row["revenue"])
		if !ok {
			continue
		}
		date, ok := dataset.Time(row["date"])
		if !ok {
			continue
		}
		dates = append(dates, date)
		values = append(values, revenue)
	}
	if len(dates) == 0 {
		return noData(NoRevenueData), nil
	}

	buckets := monthly(dates, values)
	var total float64
	for _, b := range buckets {
		total += b.value
	}
	top := peak(buckets)

	trend := "Not enough data"
	if len(buckets) > 1 {
		trend = "Downward"
		if buckets[len(buckets)-1].value > buckets[0].value {
			trend = "Upward"
		}
	}

	narrative := strings.Join([]string{
		"Revenue Trend Analysis:",
		"• Total Revenue: " + money(total),
		"• Average Monthly Revenue: " + money(total/float64(len(buckets))),
		fmt.Sprintf("• Peak Month: %s (%s)", top.label(), money(top.value)),
		"• Growth Trend: " + trend,
	}, "\n")

	axes := &Axes{X: Axis{Title: "Month"}, Y: Axis{Title: "Revenue ($)"}}
	return Report{Narrative: narrative, Visualization: series(buckets, planner.ChartLine, axes)}, nil
}

func customerSpending(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoSpendingData), nil
	}
	if err := requireColumns(rs, "customer_name", "total_spent", "order_count"); err != nil {
		return Report{}, err
	}

	var total float64
	for _, row := range rs.Rows {
		total += dataset.FloatOr(row["total_spent"], 0)
	}

	top := rs.Rows
	if len(top) > topDisplay {
		top = top[:topDisplay]
	}

	lines := []string{
		"Customer Spending Analysis:",
		"• Total across all customers: " + money(total),
		"• Average customer spend: " + money(total/float64(len(rs.Rows))),
		"Top 5 Customers:",
	}
	points := make([]Point, 0, len(top))
	for _, row := range top {
		name := dataset.String(row["customer_name"])
		spent := dataset.FloatOr(row["total_spent"], 0)
		orders := dataset.IntOr(row["order_count"], 0)
		lines = append(lines, fmt.Sprintf("• %s: %s (%d orders)", name, money(spent), orders))
		points = append(points, Point{X: name, Y: spent, Extra: map[string]any{"orders": orders}})
	}

	return Report{
		Narrative:     strings.Join(lines, "\n"),
		Visualization: &Visualization{Kind: planner.ChartBar, Points: points},
	}, nil
}

func productPopularity(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoProductData), nil
	}
	if err := requireColumns(rs, "product", "category", "times_ordered", "revenue_generated"); err != nil {
		return Report{}, err
	}

	var total float64
	for _, row := range rs.Rows {
		total += dataset.FloatOr(row["revenue_generated"], 0)
	}

	top := rs.Rows
	if len(top) > topDisplay {
		top = top[:topDisplay]
	}

	lines := []string{
		"Product Popularity Analysis:",
		"• Total Revenue: " + money(total),
		"Top Products by Market Share:",
	}
	points := make([]Point, 0, len(top))
	for _, row := range top {
		label := fmt.Sprintf("%s (%s)", dataset.String(row["product"]), dataset.String(row["category"]))
		revenue := dataset.FloatOr(row["revenue_generated"], 0)
		var share float64
		if total != 0 {
			share = revenue / total * 100
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", label, percent(share)))
		points = append(points, Point{
			X:     label,
			Y:     dataset.FloatOr(row["times_ordered"], 0),
			Extra: map[string]any{"revenue": revenue},
		})
	}

	return Report{
		Narrative:     strings.Join(lines, "\n"),
		Visualization: &Visualization{Kind: planner.ChartPie, Points: points},
	}, nil
}

func orderStatus(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoStatusData), nil
	}
	if err := requireColumns(rs, "status", "count", "total_amount"); err != nil {
		return Report{}, err
	}

	var total int64
	for _, row := range rs.Rows {
		total += dataset.IntOr(row["count"], 0)
	}

	lines := []string{
		"Order Status Analysis:",
		fmt.Sprintf("• Total Orders: %d", total),
	}
	points := make([]Point, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		status := dataset.String(row["status"])
		if status == "" {
			status = unknownLabel
		}
		count := dataset.IntOr(row["count"], 0)
		amount := dataset.FloatOr(row["total_amount"], 0)
		var pct float64
		if total != 0 {
			pct = float64(count) / float64(total) * 100
		}
		lines = append(lines, fmt.Sprintf("• %s: %d (%s) - %s", status, count, percent(pct), money(amount)))
		points = append(points, Point{
			X:     fmt.Sprintf("%s (%s)", status, percent(pct)),
			Y:     float64(count),
			Extra: map[string]any{"amount": amount},
		})
	}

	return Report{
		Narrative:     strings.Join(lines, "\n"),
		Visualization: &Visualization{Kind: planner.ChartPie, Points: points},
	}, nil
}

// qualityCounts holds the six data quality checks of one source row
type qualityCounts struct {
	missingNames       int64
	invalidEmails      int64
	invalidDates       int64
	missingCustomerIDs int64
	invalidAmounts     int64
	invalidStatuses    int64
}

func readQuality(row dataset.Row) qualityCounts {
	if row == nil {
		return qualityCounts{}
	}
	return qualityCounts{
		missingNames:       dataset.IntOr(row["missing_names"], 0),
		invalidEmails:      dataset.IntOr(row["invalid_emails"], 0),
		invalidDates:       dataset.IntOr(row["invalid_dates"], 0),
		missingCustomerIDs: dataset.IntOr(row["missing_customer_ids"], 0),
		invalidAmounts:     dataset.IntOr(row["invalid_amounts"], 0),
		invalidStatuses:    dataset.IntOr(row["invalid_statuses"], 0),
	}
}

func (q qualityCounts) total() int64 {
	return q.missingNames + q.invalidEmails + q.invalidDates +
		q.missingCustomerIDs + q.invalidAmounts + q.invalidStatuses
}

// qualitySources picks the customer and order rows by table_name,
// falling back to union position when no row carries the discriminator.
func qualitySources(rs dataset.ResultSet) (customers, orders dataset.Row) {
	keyed := false
	for _, row := range rs.Rows {
		name, ok := row["table_name"]
		if !ok {
			continue
		}
		keyed = true
		switch dataset.String(name) {
		case planner.QualitySourceCustomers:
			customers = row
		case planner.QualitySourceOrders:
			orders = row
		}
	}
	if keyed {
		return customers, orders
	}

	if len(rs.Rows) > 0 {
		customers = rs.Rows[0]
	}
	if len(rs.Rows) > 1 {
		orders = rs.Rows[1]
	}
	return customers, orders
}

func dataQuality(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoQualityData), nil
	}

	var total int64
	for _, row := range rs.Rows {
		total += readQuality(row).total()
	}

	custRow, ordRow := qualitySources(rs)
	cust := readQuality(custRow)
	ord := readQuality(ordRow)

	narrative := strings.Join([]string{
		"Data Quality Report:",
		fmt.Sprintf("• Total Issues Found: %d", total),
		"• " + planner.QualitySourceCustomers + ":",
		fmt.Sprintf("  - Missing Names: %d", cust.missingNames),
		fmt.Sprintf("  - Invalid Emails: %d", cust.invalidEmails),
		fmt.Sprintf("  - Invalid Dates: %d", cust.invalidDates),
		"• " + planner.QualitySourceOrders + ":",
		fmt.Sprintf("  - Missing Customer IDs: %d", ord.missingCustomerIDs),
		fmt.Sprintf("  - Invalid Amounts: %d", ord.invalidAmounts),
		fmt.Sprintf("  - Invalid Statuses: %d", ord.invalidStatuses),
	}, "\n")

	return Report{
		Narrative: narrative,
		Visualization: &Visualization{
			Kind:    planner.ChartTable,
			Columns: []string{"Metric", "Customers", "Orders"},
			Rows: [][]any{
				{"Missing Data", cust.missingNames, ord.missingCustomerIDs},
				{"Invalid Data", cust.invalidEmails + cust.invalidDates, ord.invalidAmounts + ord.invalidStatuses},
			},
		},
	}, nil
}

func customerGrowth(rs dataset.ResultSet) (Report, error) {
	if rs.Empty() {
		return noData(NoGrowthData), nil
	}
	if err := requireColumns(rs, "date", "new_customers"); err != nil {
		return Report{}, err
	}

	var dates []time.Time
	var values []float64
	for _, row := range rs.Rows {
		count, ok := dataset.Int(row["new_customers"])
		if !ok {
			continue
		}
		date, ok := dataset.Time(row["date"])
		if !ok {
			continue
		}
		dates = append(dates, date)
		values = append(values, float64(count))
	}
	if len(dates) == 0 {
		return noData(NoGrowthData), nil
	}

	buckets := monthly(dates, values)
	var total float64
	for _, b := range buckets {
		total += b.value
	}
	top := peak(buckets)

	var rate float64
	first, last := buckets[0].value, buckets[len(buckets)-1].value
	if len(buckets) > 1 && first != 0 {
		rate = (last - first) / first * 100
	}

	lines := []string{
		"Customer Growth Analysis:",
		fmt.Sprintf("• Total New Customers: %d", int64(total)),
		fmt.Sprintf("• Peak Acquisition Month: %s (%d customers)", top.label(), int64(top.value)),
		fmt.Sprintf("• Growth Rate: %s over period", percent(rate)),
		"Monthly Breakdown:",
	}
	for _, b := range buckets {
		lines = append(lines, fmt.Sprintf("• %s: %d customers", b.label(), int64(b.value)))
	}

	axes := &Axes{X: Axis{Title: "Month"}, Y: Axis{Title: "New Customers", BeginAtZero: true}}
	return Report{Narrative: strings.Join(lines, "\n"), Visualization: series(buckets, planner.ChartLine, axes)}, nil
}

// general lists the rows as a table. It never fails and always returns
// a table payload, empty when there are no rows.
func general(rs dataset.ResultSet) Report {
	columns := []string{}
	if len(rs.Rows) > 0 {
		if len(rs.Columns) > 0 {
			columns = append(columns, rs.Columns...)
		} else {
			for k := range rs.Rows[0] {
				columns = append(columns, k)
			}
			sort.Strings(columns)
		}
	}

	rows := make([][]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = row[c]
		}
		rows = append(rows, values)
	}

	return Report{
		Narrative:     fmt.Sprintf("Here are the first %d records from the database.", len(rs.Rows)),
		Visualization: &Visualization{Kind: planner.ChartTable, Columns: columns, Rows: rows},
	}
}
