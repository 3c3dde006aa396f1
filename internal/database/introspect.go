/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Schema Introspection
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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/errors"
)

const columnsQuery = `
	SELECT c.table_name, c.column_name, c.data_type
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE c.table_schema = $1
		AND t.table_type = 'BASE TABLE'
	ORDER BY c.table_name, c.ordinal_position
`

// Introspect lists the base tables and columns of the configured schema
// and attaches a few sample values to every column. A table that cannot
// be sampled keeps its columns with empty samples.
func (c *Client) Introspect(ctx context.Context) (catalog.RawSchema, error) {
	startTime := time.Now()
	schemaName := c.cfg.Schema
	if schemaName == "" {
		schemaName = "public"
	}

	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	schema, columnCount, err := c.loadColumns(ctx, pool, schemaName)
	if err != nil {
		LogIntrospection(schemaName, 0, 0, time.Since(startTime), err)
		return nil, errors.Wrap(err, errors.ErrTypeIntrospection, "failed to list tables and columns")
	}

	if c.cfg.SampleRows > 0 {
		if err := c.sampleTables(ctx, pool, schemaName, schema); err != nil {
			LogIntrospection(schemaName, len(schema), columnCount, time.Since(startTime), err)
			return nil, errors.Wrap(err, errors.ErrTypeIntrospection, "sampling interrupted")
		}
	}

	LogIntrospection(schemaName, len(schema), columnCount, time.Since(startTime), nil)
	return schema, nil
}

func (c *Client) loadColumns(ctx context.Context, pool *pgxpool.Pool, schemaName string) (catalog.RawSchema, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeoutDuration())
	defer cancel()

	rows, err := pool.Query(ctx, columnsQuery, schemaName)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	schema := make(catalog.RawSchema)
	columnCount := 0
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, 0, fmt.Errorf("failed to scan column: %w", err)
		}
		schema[tableName] = append(schema[tableName], catalog.RawColumn{
			ColumnName:   columnName,
			DataType:     dataType,
			SampleValues: []any{},
		})
		columnCount++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return schema, columnCount, nil
}

// sampleTables fills in SampleValues with bounded parallelism. Only
// cancellation of ctx is reported as an error.
func (c *Client) sampleTables(ctx context.Context, pool *pgxpool.Pool, schemaName string, schema catalog.RawSchema) error {
	tables := schema.TableNames()
	samples := make([]dataset.ResultSet, len(tables))

	limit := c.cfg.IntrospectionConcurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, table := range tables {
		g.Go(func() error {
			rs, err := c.sampleTable(gctx, pool, schemaName, table)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			samples[i] = rs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, table := range tables {
		columns := schema[table]
		for j := range columns {
			values := make([]any, 0, samples[i].Len())
			for _, row := range samples[i].Rows {
				values = append(values, row[columns[j].ColumnName])
			}
			columns[j].SampleValues = values
		}
	}
	return nil
}

func (c *Client) sampleTable(ctx context.Context, pool *pgxpool.Pool, schemaName, table string) (dataset.ResultSet, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeoutDuration())
	defer cancel()

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d",
		pgx.Identifier{schemaName, table}.Sanitize(), c.cfg.SampleRows)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		LogSample(table, 0, time.Since(startTime), err)
		return dataset.ResultSet{}, err
	}

	rs, err := collectRows(rows)
	LogSample(table, rs.Len(), time.Since(startTime), err)
	return rs, err
}
