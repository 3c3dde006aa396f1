/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - HTTP Handlers
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/logging"
	"pgedge-postgres-insights/internal/report"
)

// maxRequestBody caps the size of a question request
const maxRequestBody = 1 << 20

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// TestDBResponse is the body of a successful GET /test-db
type TestDBResponse struct {
	Time time.Time `json:"time"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// statusForError maps an error kind to an HTTP status
func statusForError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		return http.StatusBadRequest
	case errors.ErrTypeSchemaResolution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := ErrorResponse{Error: errors.UserMessage(err)}
	if status != http.StatusBadRequest {
		resp.Type = string(errors.GetType(err))
	}
	writeJSON(w, status, resp)
}

// handleQuery answers one question. The question is validated before the
// database is touched.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	orch := s.orchestrator.Load()
	if _, err := orch.Classify(req.Question); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	schema, err := s.cache.Load().GetOrLoad(ctx, s.db.ConnectionIdentity(), s.db.Introspect)
	if err != nil {
		logging.Error("schema introspection failed", "error", err, "request_id", GetRequestID(ctx))
		writeError(w, err)
		return
	}

	result, err := orch.Produce(ctx, req.Question, schema, report.ExecutorFunc(s.db.Query))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTestDB checks database connectivity
func (s *Server) handleTestDB(w http.ResponseWriter, r *http.Request) {
	now, err := s.db.Now(r.Context())
	if err != nil {
		logging.Error("database connectivity check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Database connection failed",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, TestDBResponse{Time: now})
}

// handleHealth reports liveness without touching the database
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
