/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"bytes"
	"strings"
	"testing"

	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
	"pgedge-postgres-insights/internal/planner"
	"pgedge-postgres-insights/internal/report"
	"pgedge-postgres-insights/internal/summarizer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"classify", "Show order status distribution"}, "order_status"},
		{[]string{"classify", "Who", "are", "our", "top", "10", "customers", "by", "spending?"}, "customer_spending"},
		{[]string{"classify", "How many widgets?"}, "general"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("classify failed: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("classify = %q, want %q", strings.TrimSpace(out), tt.want)
			}
		})
	}
}

func TestClassifyRejectsBlankQuestion(t *testing.T) {
	_, err := execute(t, "classify", "   ")
	if !errors.IsType(err, errors.ErrTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPlanRejectsUnknownIntent(t *testing.T) {
	_, err := execute(t, "plan", "weather_forecast")
	if err == nil || !strings.Contains(err.Error(), `unknown question type "weather_forecast"`) {
		t.Errorf("expected unknown intent error, got %v", err)
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	t.Setenv("PGEDGE_INSIGHTS_DB_HOST", "db.invalid")
	_, err := execute(t, "ask", "")
	if !errors.IsType(err, errors.ErrTypeValidation) {
		t.Errorf("expected validation error before connecting, got %v", err)
	}
}

func TestCLIFlagsOnlyExplicit(t *testing.T) {
	opts := &globalOptions{}
	serve, _, err := buildRootCmd(opts).Find([]string{"serve"})
	if err != nil {
		t.Fatalf("serve command not found: %v", err)
	}
	if err := serve.ParseFlags([]string{"--db-host", "pg.example.com", "--db-port", "6432", "--http-addr", ":8080"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	flags := opts.cliFlags(serve)

	if !flags.DBHostSet || flags.DBHost != "pg.example.com" {
		t.Errorf("db-host not recorded: %+v", flags)
	}
	if !flags.DBPortSet || flags.DBPort != 6432 {
		t.Errorf("db-port not recorded: %+v", flags)
	}
	if !flags.HTTPAddrSet || flags.HTTPAddr != ":8080" {
		t.Errorf("http-addr not recorded: %+v", flags)
	}
	if flags.DBUserSet || flags.ConfigFileSet || flags.LogLevelSet || flags.TLSEnabledSet {
		t.Errorf("unset flags must not be marked as set: %+v", flags)
	}
}

func TestConfigPathExplicit(t *testing.T) {
	opts := &globalOptions{}
	root := buildRootCmd(opts)
	serve, _, _ := root.Find([]string{"serve"})
	if err := serve.ParseFlags([]string{"--config", "/tmp/insights.yaml"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if got := opts.configPath(serve); got != "/tmp/insights.yaml" {
		t.Errorf("configPath = %q, want /tmp/insights.yaml", got)
	}
}

func TestPrintResult(t *testing.T) {
	res := &report.Result{
		Intent: intent.OrderStatus,
		SQL:    "\n  SELECT status, COUNT(*) AS order_count FROM orders GROUP BY status\n",
		Data: dataset.ResultSet{
			Columns: []string{"status", "order_count"},
			Rows:    []dataset.Row{{"status": "delivered", "order_count": int64(3)}},
		},
		Report: summarizer.Report{
			Narrative: "Order Status Distribution:\n• delivered: 3 orders (100.0%)",
			Visualization: &summarizer.Visualization{
				Kind:   planner.ChartPie,
				Points: []summarizer.Point{{X: "delivered", Y: 3}},
			},
		},
	}

	var out bytes.Buffer
	printResult(&out, res, false)
	want := "Order Status Distribution:\n• delivered: 3 orders (100.0%)\n\nstatus\torder_count\ndelivered\t3\n"
	if out.String() != want {
		t.Errorf("printResult =\n%q\nwant\n%q", out.String(), want)
	}

	out.Reset()
	printResult(&out, res, true)
	if !strings.Contains(out.String(), "\n-- order_status\nSELECT status, COUNT(*) AS order_count FROM orders GROUP BY status\n") {
		t.Errorf("expected SQL section, got %q", out.String())
	}
}

func TestPrintResultTablePayload(t *testing.T) {
	res := &report.Result{
		Intent: intent.DataQuality,
		Data:   dataset.ResultSet{Columns: []string{"table_name"}, Rows: []dataset.Row{{"table_name": "customers"}}},
		Report: summarizer.Report{
			Narrative: "Data Quality Report:",
			Visualization: &summarizer.Visualization{
				Kind:    planner.ChartTable,
				Columns: []string{"Table", "Issues"},
				Rows:    [][]any{{"customers", 2}},
			},
		},
	}

	var out bytes.Buffer
	printResult(&out, res, false)
	want := "Data Quality Report:\n\nTable\tIssues\ncustomers\t2\n"
	if out.String() != want {
		t.Errorf("printResult =\n%q\nwant\n%q", out.String(), want)
	}
}
