/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Report Orchestrator
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package report runs a question through classification, planning,
// execution and summarization, and owns the outbound report shape.
package report

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/intent"
	"pgedge-postgres-insights/internal/logging"
	"pgedge-postgres-insights/internal/planner"
	"pgedge-postgres-insights/internal/summarizer"
)

// ErrQuestionRequired is the message returned for an empty question
const ErrQuestionRequired = "Question is required"

// Executor runs a planned query and returns its rows
type Executor interface {
	Query(ctx context.Context, sql string) (dataset.ResultSet, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, sql string) (dataset.ResultSet, error)

// Query calls f(ctx, sql)
func (f ExecutorFunc) Query(ctx context.Context, sql string) (dataset.ResultSet, error) {
	return f(ctx, sql)
}

// Result is a complete answer to one question
type Result struct {
	Question string
	Intent   intent.Intent
	SQL      string
	Data     dataset.ResultSet
	Report   summarizer.Report
}

type resultWire struct {
	Question      string                    `json:"question"`
	QuestionType  intent.Intent             `json:"questionType"`
	SQLQuery      string                    `json:"sqlQuery"`
	Data          dataset.ResultSet         `json:"data"`
	Response      string                    `json:"response"`
	Visualization *summarizer.Visualization `json:"visualization"`
}

// MarshalJSON emits the flat shape returned by the query endpoint
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultWire{
		Question:      r.Question,
		QuestionType:  r.Intent,
		SQLQuery:      r.SQL,
		Data:          r.Data,
		Response:      r.Report.Narrative,
		Visualization: r.Report.Visualization,
	})
}

// UnmarshalJSON reads the flat endpoint shape
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Question: w.Question,
		Intent:   w.QuestionType,
		SQL:      w.SQLQuery,
		Data:     w.Data,
		Report:   summarizer.Report{Narrative: w.Response, Visualization: w.Visualization},
	}
	return nil
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRoleKeywords overrides the substrings used to find each role's table
func WithRoleKeywords(k catalog.Keywords) Option {
	return func(o *Orchestrator) {
		o.keywords = catalog.DefaultKeywords().Merge(k)
	}
}

// Orchestrator sequences the pipeline. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	keywords catalog.Keywords
}

// New creates an orchestrator
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{keywords: catalog.DefaultKeywords()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Keywords returns the role keywords in use
func (o *Orchestrator) Keywords() catalog.Keywords {
	return o.keywords.Merge(nil)
}

// Classify validates the question and returns its intent
func (o *Orchestrator) Classify(question string) (intent.Intent, error) {
	if strings.TrimSpace(question) == "" {
		return intent.General, errors.New(errors.ErrTypeValidation, ErrQuestionRequired)
	}
	return intent.Classify(question), nil
}

// Plan resolves the schema and builds the query for an intent
func (o *Orchestrator) Plan(i intent.Intent, schema catalog.RawSchema) (planner.QueryPlan, error) {
	return planner.Plan(i, catalog.Build(schema, o.keywords))
}

// Produce answers a question against the given schema, executing the
// planned query through exec. Any failure yields a typed error and a
// nil result.
func (o *Orchestrator) Produce(ctx context.Context, question string, schema catalog.RawSchema, exec Executor) (*Result, error) {
	start := time.Now()

	i, err := o.Classify(question)
	if err != nil {
		return nil, err
	}
	logging.Debug("question classified", "intent", i.String())

	plan, err := o.Plan(i, schema)
	if err != nil {
		logging.Warn("query planning failed", "intent", i.String(), "error", err)
		return nil, err
	}
	logging.Debug("query planned", "intent", i.String(), "chart", string(plan.Visualization))

	rows, err := exec.Query(ctx, plan.SQL)
	if err != nil {
		logging.Error("query execution failed", "intent", i.String(), "error", err)
		if errors.IsStructured(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrTypeQueryExecution, "query execution failed")
	}

	rep, err := summarizer.Summarize(i, rows)
	if err != nil {
		logging.Warn("summarization failed", "intent", i.String(), "rows", rows.Len(), "error", err)
		return nil, err
	}

	logging.Info("report produced",
		"intent", i.String(),
		"rows", rows.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Question: question,
		Intent:   i,
		SQL:      plan.SQL,
		Data:     rows,
		Report:   rep,
	}, nil
}
