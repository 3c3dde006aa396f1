/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package summarizer

import (
	"encoding/json"
	"testing"

	"pgedge-postgres-insights/internal/planner"
)

func TestSeriesWireForm(t *testing.T) {
	v := Visualization{
		Kind: planner.ChartBar,
		Points: []Point{
			{X: "Electronics", Y: 150, Extra: map[string]any{"orderCount": 3, "avgValue": 50}},
		},
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"bar","points":[{"avgValue":50,"orderCount":3,"x":"Electronics","y":150}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back Visualization
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Points[0].X != "Electronics" || back.Points[0].Extra["orderCount"] != float64(3) {
		t.Errorf("Unmarshal() = %+v", back)
	}
}

func TestLineAxesWireForm(t *testing.T) {
	v := Visualization{
		Kind:   planner.ChartLine,
		Points: []Point{{X: "Jan 2024", Y: 1}},
		Axes:   &Axes{X: Axis{Title: "Month"}, Y: Axis{Title: "New Customers", BeginAtZero: true}},
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"line","points":[{"x":"Jan 2024","y":1}],"axes":{"x":{"title":"Month"},"y":{"title":"New Customers","beginAtZero":true}}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestTableWireForm(t *testing.T) {
	data, err := json.Marshal(Visualization{Kind: planner.ChartTable})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"kind":"table","columns":[],"rows":[]}` {
		t.Errorf("Marshal(empty table) = %s", data)
	}

	var v Visualization
	if err := json.Unmarshal([]byte(`{"kind":"table","columns":["Metric"],"rows":[["Missing Data"]]}`), &v); err != nil {
		t.Fatal(err)
	}
	if !v.IsTable() || v.Columns[0] != "Metric" || v.Rows[0][0] != "Missing Data" {
		t.Errorf("Unmarshal() = %+v", v)
	}

	if err := json.Unmarshal([]byte(`{"kind":"radar"}`), &v); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestNilVisualizationInReport(t *testing.T) {
	data, err := json.Marshal(Report{Narrative: NoStatusData})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"response":"No order status data available.","visualization":null}` {
		t.Errorf("Marshal(report) = %s", data)
	}
}
