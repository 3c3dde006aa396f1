/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Database Logging
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"pgedge-postgres-insights/internal/logging"
)

// EnvDBLogLevel selects database log verbosity independently of the
// application log level
const EnvDBLogLevel = "PGEDGE_INSIGHTS_DB_LOG_LEVEL"

// LogLevel represents the logging verbosity level for database operations
type LogLevel int32

const (
	// LogLevelNone disables all database logging
	LogLevelNone LogLevel = iota
	// LogLevelInfo logs connections, introspection and query outcomes
	LogLevelInfo
	// LogLevelDebug adds pool settings and per-table sampling
	LogLevelDebug
	// LogLevelTrace adds full query text
	LogLevelTrace
)

var currentLevel atomic.Int32

func init() {
	SetLogLevel(parseLogLevel(os.Getenv(EnvDBLogLevel)))
}

// parseLogLevel maps a level name to a LogLevel. Unknown values disable
// logging.
func parseLogLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	case "trace":
		return LogLevelTrace
	default:
		return LogLevelNone
	}
}

// SetLogLevel sets the database log level
func SetLogLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// GetLogLevel returns the current database log level
func GetLogLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func logAt(level LogLevel, message string, keyvals ...interface{}) {
	if GetLogLevel() < level {
		return
	}
	// Emitted at info, so the application level must allow info too.
	logging.Info("[DATABASE] "+message, keyvals...)
}

// LogConnection logs a database connection attempt
func LogConnection(connStr string, duration time.Duration, err error) {
	sanitized := sanitizeConnStr(connStr)
	if err != nil {
		logAt(LogLevelInfo, "connection failed", "connection", sanitized, "duration", duration, "error", err)
		return
	}
	logAt(LogLevelInfo, "connection succeeded", "connection", sanitized, "duration", duration)
}

// LogPoolConfig logs the effective pool settings
func LogPoolConfig(connStr string, maxConns, minConns int32, idle time.Duration) {
	logAt(LogLevelDebug, "pool config",
		"connection", sanitizeConnStr(connStr),
		"max_conns", maxConns,
		"min_conns", minConns,
		"max_conn_idle_time", idle)
}

// LogIntrospection logs a schema introspection run
func LogIntrospection(schema string, tableCount, columnCount int, duration time.Duration, err error) {
	if err != nil {
		logAt(LogLevelInfo, "introspection failed", "schema", schema, "duration", duration, "error", err)
		return
	}
	logAt(LogLevelInfo, "introspection complete",
		"schema", schema,
		"table_count", tableCount,
		"column_count", columnCount,
		"duration", duration)
}

// LogSample logs sampling of one table
func LogSample(table string, rowCount int, duration time.Duration, err error) {
	if err != nil {
		logAt(LogLevelInfo, "sampling failed", "table", table, "duration", duration, "error", err)
		return
	}
	logAt(LogLevelDebug, "sampled table", "table", table, "row_count", rowCount, "duration", duration)
}

// LogQuery logs a query execution
func LogQuery(query string, duration time.Duration, rowCount int, err error) {
	if GetLogLevel() >= LogLevelTrace {
		logAt(LogLevelTrace, "query text", "query", strings.TrimSpace(query))
	}
	preview := truncate(strings.Join(strings.Fields(query), " "), 100)
	if err != nil {
		logAt(LogLevelInfo, "query failed", "query", preview, "duration", duration, "error", err)
		return
	}
	logAt(LogLevelInfo, "query succeeded", "query", preview, "row_count", rowCount, "duration", duration)
}

// sanitizeConnStr masks the password in a URL style connection string
func sanitizeConnStr(connStr string) string {
	schemeIdx := strings.Index(connStr, "://")
	if schemeIdx == -1 {
		return connStr
	}

	scheme := connStr[:schemeIdx+3]
	rest := connStr[schemeIdx+3:]

	// The last @ before the path separates credentials from the host,
	// which lets passwords contain a literal @.
	authority := rest
	if idx := strings.IndexAny(rest, "/?"); idx != -1 {
		authority = rest[:idx]
	}
	hostSepIdx := strings.LastIndex(authority, "@")
	if hostSepIdx == -1 {
		return connStr
	}

	credentials := rest[:hostSepIdx]
	hostAndRest := rest[hostSepIdx+1:]

	colonIdx := strings.Index(credentials, ":")
	if colonIdx == -1 {
		return connStr
	}

	return scheme + credentials[:colonIdx] + ":***@" + hostAndRest
}

// truncate shortens s to maxLen bytes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
