/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Database Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
)

// ApplicationName is reported to PostgreSQL in pg_stat_activity
const ApplicationName = "pgEdge Postgres Insights"

// Client owns the read-only connection pool for one database
type Client struct {
	cfg     config.DatabaseConfig
	connStr string
	pool    *pgxpool.Pool
	mu      sync.RWMutex
}

// NewClient creates a database client. Connect must be called before use.
func NewClient(cfg config.DatabaseConfig) *Client {
	return &Client{
		cfg:     cfg,
		connStr: cfg.BuildConnectionString(),
	}
}

// ConnectionIdentity returns the connection string the client was built
// from. It identifies the database for schema caching and must not be
// logged unsanitized.
func (c *Client) ConnectionIdentity() string {
	return c.connStr
}

// Connect establishes the connection pool and verifies it with a ping
func (c *Client) Connect(ctx context.Context) error {
	startTime := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		return nil
	}

	poolConfig, err := c.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		LogConnection(c.connStr, time.Since(startTime), err)
		return errors.Wrap(err, errors.ErrTypeConfig, "unable to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		LogConnection(c.connStr, time.Since(startTime), err)
		return errors.Wrap(err, errors.ErrTypeQueryExecution, "unable to ping database")
	}

	c.pool = pool
	LogConnection(c.connStr, time.Since(startTime), nil)
	return nil
}

// poolConfig parses the connection string and applies pool settings
func (c *Client) poolConfig() (*pgxpool.Config, error) {
	enhancedConnStr, err := addApplicationName(c.connStr, ApplicationName)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "unable to enhance connection string")
	}

	poolConfig, err := pgxpool.ParseConfig(enhancedConnStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "unable to parse connection string")
	}

	if c.cfg.PoolMaxConns > 0 {
		poolConfig.MaxConns = int32(c.cfg.PoolMaxConns)
	}
	if c.cfg.PoolMinConns > 0 {
		poolConfig.MinConns = int32(c.cfg.PoolMinConns)
	}
	if idle := c.cfg.IdleTimeDuration(); idle > 0 {
		poolConfig.MaxConnIdleTime = idle
	}

	// Every session is read-only; generated SQL never writes.
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	LogPoolConfig(c.connStr, poolConfig.MaxConns, poolConfig.MinConns, poolConfig.MaxConnIdleTime)
	return poolConfig, nil
}

// addApplicationName adds application_name parameter to a PostgreSQL connection string
func addApplicationName(connStr, appName string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}

	query := u.Query()
	if !query.Has("application_name") {
		query.Set("application_name", appName)
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

// Close closes the connection pool
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

func (c *Client) getPool() (*pgxpool.Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.pool == nil {
		return nil, errors.New(errors.ErrTypeInternal, "database client is not connected")
	}
	return c.pool, nil
}

// Now returns the database server's current time. It backs the
// connectivity check.
func (c *Client) Now(ctx context.Context) (time.Time, error) {
	pool, err := c.getPool()
	if err != nil {
		return time.Time{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeoutDuration())
	defer cancel()

	var now time.Time
	if err := pool.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrTypeQueryExecution, "connectivity check failed")
	}
	return now, nil
}

// Query runs one read-only statement and returns its rows
func (c *Client) Query(ctx context.Context, sql string) (dataset.ResultSet, error) {
	startTime := time.Now()

	pool, err := c.getPool()
	if err != nil {
		return dataset.ResultSet{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeoutDuration())
	defer cancel()

	rows, err := pool.Query(ctx, sql)
	if err != nil {
		LogQuery(sql, time.Since(startTime), 0, err)
		return dataset.ResultSet{}, errors.Wrap(err, errors.ErrTypeQueryExecution, "query failed")
	}

	rs, err := collectRows(rows)
	LogQuery(sql, time.Since(startTime), rs.Len(), err)
	if err != nil {
		return dataset.ResultSet{}, errors.Wrap(err, errors.ErrTypeQueryExecution, "reading query results failed")
	}
	return rs, nil
}
