package mssql

import (
	"context"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
)

type DB struct {
	conn   *sqlx.DB
	config *Config
}

func NewDB(c *Config) (*DB, error) {
	conn, err := sqlx.Open("sqlserver", c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}

	return &DB{conn: conn, config: c}, nil
}

// RunQueryWithoutResult sends the whole batch at once, SQL Server accepts the
// DECLARE statements of the variable definitions in the same batch as the MERGE.
func (db *DB) RunQueryWithoutResult(ctx context.Context, q *query.Query) error {
	_, err := db.conn.ExecContext(ctx, q.ToDryRunQuery())
	if err != nil {
		return errors.New(strings.ReplaceAll(err.Error(), "\n", "  -  "))
	}

	return nil
}

func (db *DB) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	queryString := query.String()
	rows, err := db.conn.QueryContext(ctx, queryString)
	if err == nil {
		err = rows.Err()
	}

	if err != nil {
		errorMessage := err.Error()
		err = errors.New(strings.ReplaceAll(errorMessage, "\n", "  -  "))
	}

	if rows != nil {
		defer rows.Close()
	}

	if err != nil {
		return nil, err
	}

	var result [][]interface{}

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

		result = append(result, columns)
	}

	return result, err
}

func (db *DB) Ping(ctx context.Context) error {
	q := query.Query{
		Query: "SELECT 1",
	}
	_, err := db.Select(ctx, &q)
	if err != nil {
		return errors.Wrap(err, "failed to run test query on SQL Server connection")
	}

	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
