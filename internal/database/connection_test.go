/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/errors"
)

// EnvTestConnectionString enables the integration tests in this package
const EnvTestConnectionString = "TEST_PGEDGE_INSIGHTS_CONNECTION_STRING"

func TestAddApplicationName(t *testing.T) {
	got, err := addApplicationName("postgres://localhost/db?sslmode=disable", ApplicationName)
	if err != nil {
		t.Fatalf("addApplicationName() error = %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("result is not a URL: %v", err)
	}
	if u.Query().Get("application_name") != ApplicationName {
		t.Errorf("application_name = %q, want %q", u.Query().Get("application_name"), ApplicationName)
	}
	if u.Query().Get("sslmode") != "disable" {
		t.Errorf("existing parameters should be kept, got %q", got)
	}

	got, err = addApplicationName("postgres://localhost/db?application_name=custom", ApplicationName)
	if err != nil {
		t.Fatalf("addApplicationName() error = %v", err)
	}
	if !strings.Contains(got, "application_name=custom") {
		t.Errorf("existing application_name should win, got %q", got)
	}
}

func TestPoolConfig(t *testing.T) {
	client := NewClient(config.DatabaseConfig{
		Host:                "localhost",
		Port:                5432,
		Database:            "insights",
		User:                "reader",
		PoolMaxConns:        7,
		PoolMinConns:        2,
		PoolMaxConnIdleTime: "30s",
	})

	pc, err := client.poolConfig()
	if err != nil {
		t.Fatalf("poolConfig() error = %v", err)
	}
	if pc.MaxConns != 7 || pc.MinConns != 2 {
		t.Errorf("pool size = %d/%d, want 7/2", pc.MaxConns, pc.MinConns)
	}
	if pc.MaxConnIdleTime != 30*time.Second {
		t.Errorf("MaxConnIdleTime = %v, want 30s", pc.MaxConnIdleTime)
	}
	if pc.ConnConfig.RuntimeParams["default_transaction_read_only"] != "on" {
		t.Error("sessions must be read-only")
	}
	if pc.ConnConfig.RuntimeParams["application_name"] != ApplicationName {
		t.Errorf("application_name = %q", pc.ConnConfig.RuntimeParams["application_name"])
	}
	if pc.ConnConfig.Database != "insights" {
		t.Errorf("database = %q, want insights", pc.ConnConfig.Database)
	}
}

func TestPoolConfigInvalidConnectionString(t *testing.T) {
	client := NewClient(config.DatabaseConfig{ConnectionString: "postgres://localhost:notaport/db"})

	_, err := client.poolConfig()
	if !errors.IsType(err, errors.ErrTypeConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestNotConnected(t *testing.T) {
	client := NewClient(config.DatabaseConfig{ConnectionString: "postgres://localhost/db"})
	ctx := context.Background()

	if _, err := client.Query(ctx, "SELECT 1"); err == nil {
		t.Error("Query() on an unconnected client should fail")
	}
	if _, err := client.Introspect(ctx); err == nil {
		t.Error("Introspect() on an unconnected client should fail")
	}
	if _, err := client.Now(ctx); err == nil {
		t.Error("Now() on an unconnected client should fail")
	}

	// Close is safe without a pool
	client.Close()
}

func TestConnectionIdentity(t *testing.T) {
	client := NewClient(config.DatabaseConfig{ConnectionString: "postgres://u@db.example.com/sales"})
	if client.ConnectionIdentity() != "postgres://u@db.example.com/sales" {
		t.Errorf("ConnectionIdentity() = %q", client.ConnectionIdentity())
	}
}

func integrationClient(t *testing.T) *Client {
	t.Helper()

	connStr := os.Getenv(EnvTestConnectionString)
	if connStr == "" {
		t.Skipf("%s not set, skipping integration test", EnvTestConnectionString)
	}

	client := NewClient(config.DatabaseConfig{
		ConnectionString:         connStr,
		QueryTimeout:             "10s",
		Schema:                   "public",
		SampleRows:               3,
		IntrospectionConcurrency: 2,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestIntegrationQuery(t *testing.T) {
	client := integrationClient(t)

	rs, err := client.Query(context.Background(), "SELECT 1::numeric AS one, 'a'::text AS letter")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", rs.Len())
	}
	if rs.Rows[0]["one"] != 1.0 {
		t.Errorf("numeric should normalize to float64, got %T %v", rs.Rows[0]["one"], rs.Rows[0]["one"])
	}
	if len(rs.Columns) != 2 || rs.Columns[0] != "one" || rs.Columns[1] != "letter" {
		t.Errorf("columns = %v", rs.Columns)
	}
}

func TestIntegrationReadOnly(t *testing.T) {
	client := integrationClient(t)

	_, err := client.Query(context.Background(), "CREATE TABLE insights_should_not_exist (id int)")
	if !errors.IsType(err, errors.ErrTypeQueryExecution) {
		t.Errorf("expected query execution error for a write, got %v", err)
	}
}

func TestIntegrationNowAndIntrospect(t *testing.T) {
	client := integrationClient(t)
	ctx := context.Background()

	if _, err := client.Now(ctx); err != nil {
		t.Fatalf("Now() error = %v", err)
	}

	schema, err := client.Introspect(ctx)
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	for table, columns := range schema {
		for _, col := range columns {
			if len(col.SampleValues) > 3 {
				t.Errorf("%s.%s has %d samples, want at most 3", table, col.ColumnName, len(col.SampleValues))
			}
		}
	}
}
