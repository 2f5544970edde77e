package duck

import (
	"context"
	"database/sql"

	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/jmoiron/sqlx"
	"github.com/marcboeker/go-duckdb"
	"github.com/pkg/errors"
)

type Client struct {
	connection connection
	config     DuckDBConfig
}

type DuckDBConfig interface {
	ToDBConnectionURI() string
}

type connection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Conn(ctx context.Context) (*sql.Conn, error)
	Close() error
}

func NewClient(c DuckDBConfig) (*Client, error) {
	LockDatabase(c.ToDBConnectionURI())
	defer UnlockDatabase(c.ToDBConnectionURI())

	conn, err := sqlx.Open("duckdb", c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Client{connection: conn, config: c}, nil
}

// RunQueryWithoutResult runs the query on a single connection. Scripts that fail halfway
// through a transaction are rolled back before the connection goes back to the pool.
func (c *Client) RunQueryWithoutResult(ctx context.Context, query *query.Query) error {
	LockDatabase(c.config.ToDBConnectionURI())
	defer UnlockDatabase(c.config.ToDBConnectionURI())

	conn, err := c.connection.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, query.ToDryRunQuery())
	if err != nil {
		_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		return err
	}

	return nil
}

// Select runs a query and returns the results.
func (c *Client) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	LockDatabase(c.config.ToDBConnectionURI())
	defer UnlockDatabase(c.config.ToDBConnectionURI())

	rows, err := c.connection.QueryContext(ctx, query.String())
	if err != nil {
		return nil, err
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	defer rows.Close()

	result := make([][]interface{}, 0)

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		for i, val := range columns {
			columns[i] = convertValue(val)
		}

		result = append(result, columns)
	}

	return result, rows.Err()
}

func (c *Client) Ping(ctx context.Context) error {
	err := c.RunQueryWithoutResult(ctx, &query.Query{Query: "SELECT 1"})
	if err != nil {
		return errors.Wrap(err, "failed to run test query on DuckDB connection")
	}

	return nil
}

func (c *Client) Close() error {
	return c.connection.Close()
}

func convertValue(val interface{}) interface{} {
	if decimal, ok := val.(duckdb.Decimal); ok {
		return decimal.Float64()
	}

	return val
}
