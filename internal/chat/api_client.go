/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Report API Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pgedge-postgres-insights/internal/report"
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Type, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

type errorBody struct {
	Error   string `json:"error"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// APIClient talks to the report server over HTTP
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a client for the server at baseURL
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Ask posts a question and returns the server's answer
func (c *APIClient) Ask(ctx context.Context, question string) (*report.Result, error) {
	reqData, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(reqData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var result report.Result
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestDB asks the server to check its database connection and returns
// the database time
func (c *APIClient) TestDB(ctx context.Context) (time.Time, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/test-db", nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}

	var body struct {
		Time time.Time `json:"time"`
	}
	if err := c.do(httpReq, &body); err != nil {
		return time.Time{}, err
	}
	return body.Time, nil
}

func (c *APIClient) do(httpReq *http.Request, out interface{}) error {
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // Best effort read of error body
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Type = body.Type
		if body.Details != "" {
			apiErr.Message += ": " + body.Details
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// ErrorMessage returns the text shown to the user for a failed request.
// Server errors show the server's message; other failures show the
// transport error.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
