/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Typed Errors
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package errors defines the error kinds surfaced by the report pipeline
// and its collaborators.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType identifies the pipeline stage or collaborator that failed
type ErrorType string

const (
	ErrTypeValidation       ErrorType = "validation"
	ErrTypeSchemaResolution ErrorType = "schema_resolution"
	ErrTypeQueryExecution   ErrorType = "query_execution"
	ErrTypeSummarization    ErrorType = "summarization"
	ErrTypeIntrospection    ErrorType = "introspection"
	ErrTypeConfig           ErrorType = "config"
	ErrTypeInternal         ErrorType = "internal"
)

// Error is a structured error with a kind and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a hint for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new structured error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a kind and context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsType reports whether err is a structured error of the given kind
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}
	return false
}

// IsStructured reports whether err wraps an *Error
func IsStructured(err error) bool {
	var structErr *Error
	return errors.As(err, &structErr)
}

// GetType returns the kind of a structured error, or ErrTypeInternal
// for anything else.
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}
	return ErrTypeInternal
}

// UserMessage returns the message suitable for showing to an end user.
// Causes are omitted so driver and network details stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Message
	}
	return "internal error"
}

// NewSchemaResolutionError reports the roles that no introspected table
// matched, all of them in one message
func NewSchemaResolutionError(roles ...string) *Error {
	err := Newf(ErrTypeSchemaResolution, "no table found for %s data", strings.Join(roles, ", "))
	for _, role := range roles {
		err.WithSuggestion(fmt.Sprintf("Check that a table whose name contains the %s keyword exists", role))
	}
	return err
}

// NewSummarizationError reports a result set that lacks an expected column
func NewSummarizationError(column string) *Error {
	return Newf(ErrTypeSummarization, "result is missing expected column %q", column)
}

// NewConfigError creates a configuration error naming the offending field
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}
	return err.WithSuggestion("Check your configuration file syntax")
}
