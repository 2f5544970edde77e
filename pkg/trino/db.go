package trino

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/pkg/errors"
	_ "github.com/trinodb/trino-go-client/trino"
)

type Client struct {
	connection connection
	config     Config
}

type connection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
	Close() error
}

func NewClient(c Config) (*Client, error) {
	conn, err := sql.Open("trino", c.ToDSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trino connection")
	}

	return &Client{
		connection: conn,
		config:     c,
	}, nil
}

// RunQueryWithoutResult sends the variable definitions and the query one by one, trino
// accepts a single statement per request.
func (c *Client) RunQueryWithoutResult(ctx context.Context, query *query.Query) error {
	statements := append(append([]string{}, query.VariableDefinitions...), query.String())
	for _, statement := range statements {
		_, err := c.connection.ExecContext(ctx, trimStatement(statement))
		if err != nil {
			return errors.Wrap(err, "failed to execute query")
		}
	}

	return nil
}

func (c *Client) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	rows, err := c.connection.QueryContext(ctx, trimStatement(query.String()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute select query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get column names")
	}

	var result [][]interface{}
	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		result = append(result, columns)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "error during row iteration")
	}

	return result, nil
}

func (c *Client) Ping(ctx context.Context) error {
	rows, err := c.connection.QueryContext(ctx, "SELECT 1")
	if err != nil {
		return errors.Wrap(err, "failed to ping trino")
	}
	return rows.Close()
}

func (c *Client) Close() error {
	return c.connection.Close()
}

func trimStatement(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ";")
}
