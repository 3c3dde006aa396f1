/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pgedge-postgres-insights/internal/intent"
)

func TestAPIClientAsk(t *testing.T) {
	var gotQuestion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		gotQuestion = body["question"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"question": "Show order status distribution",
			"questionType": "order_status",
			"sqlQuery": "SELECT status FROM orders",
			"data": [{"status": "delivered", "order_count": 3}],
			"response": "Order Status Distribution:",
			"visualization": {"kind": "pie", "points": [{"x": "delivered", "y": 3}]}
		}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL+"/", 5*time.Second)
	res, err := client.Ask(context.Background(), "Show order status distribution")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if gotQuestion != "Show order status distribution" {
		t.Errorf("server received question %q", gotQuestion)
	}
	if res.Intent != intent.OrderStatus {
		t.Errorf("expected order_status, got %s", res.Intent)
	}
	if res.SQL != "SELECT status FROM orders" {
		t.Errorf("unexpected SQL %q", res.SQL)
	}
	if res.Data.Len() != 1 {
		t.Errorf("expected 1 data row, got %d", res.Data.Len())
	}
	if res.Report.Narrative != "Order Status Distribution:" {
		t.Errorf("unexpected narrative %q", res.Report.Narrative)
	}
	if v := res.Report.Visualization; v == nil || len(v.Points) != 1 || v.Points[0].X != "delivered" {
		t.Errorf("unexpected visualization %+v", v)
	}
}

func TestAPIClientErrorDecoding(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantType string
	}{
		{
			name:    "validation",
			status:  http.StatusBadRequest,
			body:    `{"error":"Question is required"}`,
			wantMsg: "Question is required",
		},
		{
			name:     "with details",
			status:   http.StatusInternalServerError,
			body:     `{"error":"Database connection failed","type":"query_execution","details":"connection refused"}`,
			wantMsg:  "Database connection failed: connection refused",
			wantType: "query_execution",
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    "upstream unavailable\n",
			wantMsg: "upstream unavailable",
		},
		{
			name:    "empty body",
			status:  http.StatusServiceUnavailable,
			wantMsg: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewAPIClient(server.URL, 5*time.Second).Ask(context.Background(), "q")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, apiErr.Type)
			}
			if ErrorMessage(err) != tt.wantMsg {
				t.Errorf("ErrorMessage = %q", ErrorMessage(err))
			}
		})
	}
}

func TestAPIClientTestDB(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test-db" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"time":"2025-03-01T12:00:00Z"}`))
	}))
	defer server.Close()

	got, err := NewAPIClient(server.URL, 5*time.Second).TestDB(context.Background())
	if err != nil {
		t.Fatalf("TestDB failed: %v", err)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAPIClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewAPIClient(url, time.Second).Ask(context.Background(), "q")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failure should not be an APIError: %v", err)
	}
	if !strings.HasPrefix(ErrorMessage(err), "request failed") {
		t.Errorf("unexpected message %q", ErrorMessage(err))
	}
}

func TestAPIErrorString(t *testing.T) {
	err := &APIError{StatusCode: 422, Message: "no table", Type: "schema_resolution"}
	if got := err.Error(); got != "no table (schema_resolution, HTTP 422)" {
		t.Errorf("unexpected error string %q", got)
	}
	err.Type = ""
	if got := err.Error(); got != "no table (HTTP 422)" {
		t.Errorf("unexpected error string %q", got)
	}
}
