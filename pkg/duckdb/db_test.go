package duck

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestClient_Select(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockConnection func(mock sqlmock.Sqlmock)
		query          query.Query
		want           [][]interface{}
		wantErr        bool
		errorMessage   string
	}{
		{
			name: "simple select query is handled",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT 1, 2, 3`).
					WillReturnRows(sqlmock.NewRows([]string{"one", "two", "three"}).AddRow(1, 2, 3))
			},
			query: query.Query{
				Query: "SELECT 1, 2, 3",
			},
			want: [][]interface{}{{int64(1), int64(2), int64(3)}},
		},
		{
			name: "multi-row select query is handled",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT count(*), event_source FROM analytics.events GROUP BY 2`).
					WillReturnRows(sqlmock.NewRows([]string{"count", "event_source"}).
						AddRow(3, "web").
						AddRow(7, "mobile"),
					)
			},
			query: query.Query{
				Query: "SELECT count(*), event_source FROM analytics.events GROUP BY 2",
			},
			want: [][]interface{}{
				{int64(3), "web"},
				{int64(7), "mobile"},
			},
		},
		{
			name: "errors are just propagated",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`some broken query`).
					WillReturnError(errors.New("Parser Error: syntax error at or near \"some\""))
			},
			query: query.Query{
				Query: "some broken query",
			},
			wantErr:      true,
			errorMessage: "Parser Error: syntax error at or near \"some\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer mockDB.Close()
			sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

			tt.mockConnection(mock)
			db := Client{connection: sqlxDB, config: Config{Path: "some/path-" + tt.name + ".db"}}

			got, err := db.Select(context.Background(), &tt.query)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, tt.errorMessage, err.Error())
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClient_RunQueryWithoutResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockConnection func(mock sqlmock.Sqlmock)
		query          query.Query
		wantErr        string
	}{
		{
			name: "query is executed with its variable definitions",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET threads = 4;\nDELETE FROM events;").
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			query: query.Query{
				VariableDefinitions: []string{"SET threads = 4"},
				Query:               "DELETE FROM events",
			},
		},
		{
			name: "failed scripts are rolled back",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("BEGIN TRANSACTION;\nINSERT INTO events SELECT 1;\nCOMMIT;").
					WillReturnError(errors.New("Constraint Error: duplicate key"))
				mock.ExpectExec("ROLLBACK").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			query: query.Query{
				Query: "BEGIN TRANSACTION;\nINSERT INTO events SELECT 1;\nCOMMIT;",
			},
			wantErr: "Constraint Error: duplicate key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer mockDB.Close()

			tt.mockConnection(mock)
			db := Client{connection: sqlx.NewDb(mockDB, "sqlmock"), config: Config{Path: "exec-" + tt.name + ".db"}}

			err = db.RunQueryWithoutResult(context.Background(), &tt.query)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
