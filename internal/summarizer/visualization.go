/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Visualization Payloads
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package summarizer

import (
	"encoding/json"
	"fmt"

	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/planner"
)

// Point is one entry of a bar, line or pie series. Extra carries
// auxiliary values (order counts, revenue) that are flattened into the
// point object on the wire.
type Point struct {
	X     string
	Y     float64
	Extra map[string]any
}

// MarshalJSON flattens Extra next to x and y
func (p Point) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		obj[k] = v
	}
	obj["x"] = p.X
	obj["y"] = p.Y
	return json.Marshal(obj)
}

// UnmarshalJSON reads x and y and keeps every other key in Extra
func (p *Point) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.X = dataset.String(obj["x"])
	p.Y = dataset.FloatOr(obj["y"], 0)
	delete(obj, "x")
	delete(obj, "y")
	p.Extra = nil
	if len(obj) > 0 {
		p.Extra = obj
	}
	return nil
}

// Axis describes a chart axis for line charts
type Axis struct {
	Title       string `json:"title"`
	BeginAtZero bool   `json:"beginAtZero,omitempty"`
}

// Axes pairs the x and y axis options
type Axes struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

// Visualization is a chart-agnostic payload. Series kinds (bar, line,
// pie) use Points; the table kind uses Columns and Rows.
type Visualization struct {
	Kind    planner.ChartKind
	Points  []Point
	Axes    *Axes
	Columns []string
	Rows    [][]any
}

// IsTable reports whether the payload is tabular
func (v *Visualization) IsTable() bool {
	return v != nil && v.Kind == planner.ChartTable
}

type seriesWire struct {
	Kind   planner.ChartKind `json:"kind"`
	Points []Point           `json:"points"`
	Axes   *Axes             `json:"axes,omitempty"`
}

type tableWire struct {
	Kind    planner.ChartKind `json:"kind"`
	Columns []string          `json:"columns"`
	Rows    [][]any           `json:"rows"`
}

// MarshalJSON emits the series or table form depending on Kind
func (v Visualization) MarshalJSON() ([]byte, error) {
	if v.Kind == planner.ChartTable {
		w := tableWire{Kind: v.Kind, Columns: v.Columns, Rows: v.Rows}
		if w.Columns == nil {
			w.Columns = []string{}
		}
		if w.Rows == nil {
			w.Rows = [][]any{}
		}
		return json.Marshal(w)
	}

	w := seriesWire{Kind: v.Kind, Points: v.Points, Axes: v.Axes}
	if w.Points == nil {
		w.Points = []Point{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts either wire form
func (v *Visualization) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind planner.ChartKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Kind {
	case planner.ChartTable:
		var w tableWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*v = Visualization{Kind: w.Kind, Columns: w.Columns, Rows: w.Rows}
	case planner.ChartBar, planner.ChartLine, planner.ChartPie:
		var w seriesWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*v = Visualization{Kind: w.Kind, Points: w.Points, Axes: w.Axes}
	default:
		return fmt.Errorf("unknown visualization kind %q", head.Kind)
	}
	return nil
}
