/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package report

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
)

func testSchema() catalog.RawSchema {
	return catalog.RawSchema{
		"ordrs":       {{ColumnName: "order_id", DataType: "integer"}},
		"prdcts":      {{ColumnName: "p_id", DataType: "integer"}},
		"cust_info":   {{ColumnName: "id", DataType: "integer"}},
		"biz_metrics": {{ColumnName: "metric_date", DataType: "date"}},
	}
}

// recordingExecutor returns fixed rows and remembers the SQL it was given
type recordingExecutor struct {
	rows  dataset.ResultSet
	err   error
	sql   []string
	calls int
}

func (r *recordingExecutor) Query(ctx context.Context, sql string) (dataset.ResultSet, error) {
	r.calls++
	r.sql = append(r.sql, sql)
	return r.rows, r.err
}

func TestProduceOrderStatus(t *testing.T) {
	exec := &recordingExecutor{rows: dataset.ResultSet{Rows: []dataset.Row{
		{"status": "completed", "count": int64(1), "total_amount": 10.0},
	}}}

	res, err := New().Produce(context.Background(), "Show order status distribution", testSchema(), exec)
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if res.Intent != intent.OrderStatus {
		t.Errorf("Intent = %v, want %v", res.Intent, intent.OrderStatus)
	}
	if exec.calls != 1 || res.SQL != exec.sql[0] {
		t.Errorf("executor saw %v, result SQL %q", exec.sql, res.SQL)
	}
	if !strings.Contains(res.SQL, `FROM "ordrs"`) {
		t.Errorf("SQL = %s", res.SQL)
	}
	if !strings.HasPrefix(res.Report.Narrative, "Order Status Analysis:") {
		t.Errorf("Narrative = %q", res.Report.Narrative)
	}
}

func TestProduceValidation(t *testing.T) {
	exec := &recordingExecutor{}
	for _, q := range []string{"", "   \n\t"} {
		res, err := New().Produce(context.Background(), q, testSchema(), exec)
		if res != nil {
			t.Error("failed produce returned a result")
		}
		if !errors.IsType(err, errors.ErrTypeValidation) {
			t.Errorf("Produce(%q) error = %v, want validation error", q, err)
		}
		if errors.UserMessage(err) != ErrQuestionRequired {
			t.Errorf("UserMessage() = %q", errors.UserMessage(err))
		}
	}
	if exec.calls != 0 {
		t.Error("executor should not run for an invalid question")
	}
}

func TestProduceSchemaResolution(t *testing.T) {
	exec := &recordingExecutor{}
	schema := catalog.RawSchema{"ordrs": nil}

	res, err := New().Produce(context.Background(), "Show revenue trends over time", schema, exec)
	if res != nil || !errors.IsType(err, errors.ErrTypeSchemaResolution) {
		t.Fatalf("Produce() = %v, %v, want schema resolution error", res, err)
	}
	if exec.calls != 0 {
		t.Error("executor should not run when planning fails")
	}
}

func TestProduceExecutionFailure(t *testing.T) {
	cause := stderrors.New("canceling statement due to statement timeout")
	exec := &recordingExecutor{err: cause}

	res, err := New().Produce(context.Background(), "Show order status", testSchema(), exec)
	if res != nil {
		t.Error("failed produce returned a result")
	}
	if !errors.IsType(err, errors.ErrTypeQueryExecution) {
		t.Errorf("Produce() error = %v, want query execution error", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("execution error should wrap the cause")
	}

	typed := errors.New(errors.ErrTypeIntrospection, "schema gone")
	exec.err = typed
	_, err = New().Produce(context.Background(), "Show order status", testSchema(), exec)
	if !errors.IsType(err, errors.ErrTypeIntrospection) {
		t.Errorf("typed executor error should pass through, got %v", err)
	}
}

func TestProduceSummarizationFailure(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, sql string) (dataset.ResultSet, error) {
		return dataset.ResultSet{Rows: []dataset.Row{{"unexpected": 1}}}, nil
	})

	res, err := New().Produce(context.Background(), "What are our most popular products?", testSchema(), exec)
	if res != nil || !errors.IsType(err, errors.ErrTypeSummarization) {
		t.Errorf("Produce() = %v, %v, want summarization error", res, err)
	}
}

func TestWithRoleKeywords(t *testing.T) {
	schema := catalog.RawSchema{"sales": nil}
	exec := &recordingExecutor{}
	o := New(WithRoleKeywords(catalog.Keywords{catalog.RoleOrders: "sales"}))

	if _, err := o.Produce(context.Background(), "order status please", schema, exec); err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if !strings.Contains(exec.sql[0], `FROM "sales"`) {
		t.Errorf("SQL = %s", exec.sql[0])
	}
	if o.Keywords()[catalog.RoleProducts] != "prdct" {
		t.Error("unset roles should keep default keywords")
	}
}

func TestResultJSON(t *testing.T) {
	exec := &recordingExecutor{}
	res, err := New().Produce(context.Background(), "List customers", testSchema(), exec)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"question", "questionType", "sqlQuery", "data", "response", "visualization"} {
		if _, ok := obj[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
	if obj["questionType"] != "general" {
		t.Errorf("questionType = %v", obj["questionType"])
	}
	if rows, ok := obj["data"].([]any); !ok || len(rows) != 0 {
		t.Errorf("data = %v, want []", obj["data"])
	}

	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Intent != intent.General || back.Report.Visualization == nil || !back.Report.Visualization.IsTable() {
		t.Errorf("Unmarshal() = %+v", back)
	}
}
