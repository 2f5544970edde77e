package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dsFilter() sqlexpr.Expr {
	between := func(alias string) sqlexpr.Expr {
		return sqlexpr.Between{
			Expr: sqlexpr.Column{Name: "ds", Table: alias},
			Low:  sqlexpr.String("2020-01-01"),
			High: sqlexpr.String("2020-01-02"),
		}
	}
	return sqlexpr.AndOf(between(MergeSourceAlias), between(MergeTargetAlias))
}

func baseRequest() *MergeRequest {
	return &MergeRequest{
		TargetTable: "test.snapshot_table",
		Source:      &query.Query{Query: "SELECT name, ds FROM upstream.table;"},
		ColumnsToTypes: []pipeline.Column{
			{Name: "name", Type: "varchar"},
			{Name: "ds", Type: "varchar"},
		},
		UniqueKey:   []sqlexpr.Expr{sqlexpr.Col("name")},
		MergeFilter: dsFilter(),
	}
}

func TestAdapter_BuildMergeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		modify  func(r *MergeRequest)
		want    string
		wantErr string
	}{
		{
			name:    "trino merge with filter",
			dialect: dialect.TrinoDialect,
			want: `MERGE INTO "test"."snapshot_table" AS "__MERGE_TARGET__" ` +
				`USING (SELECT name, ds FROM upstream.table) AS "__MERGE_SOURCE__" ` +
				`ON ("__MERGE_SOURCE__"."ds" BETWEEN '2020-01-01' AND '2020-01-02' AND "__MERGE_TARGET__"."ds" BETWEEN '2020-01-01' AND '2020-01-02') ` +
				`AND "__MERGE_TARGET__"."name" = "__MERGE_SOURCE__"."name" ` +
				`WHEN MATCHED THEN UPDATE SET "name" = "__MERGE_SOURCE__"."name", "ds" = "__MERGE_SOURCE__"."ds" ` +
				`WHEN NOT MATCHED THEN INSERT ("name", "ds") VALUES ("__MERGE_SOURCE__"."name", "__MERGE_SOURCE__"."ds")`,
		},
		{
			name:    "snowflake uppercases unquoted identifiers",
			dialect: dialect.SnowflakeDialect,
			modify: func(r *MergeRequest) {
				r.MergeFilter = nil
				r.ColumnsToTypes = r.ColumnsToTypes[:1]
			},
			want: `MERGE INTO "TEST"."SNAPSHOT_TABLE" AS "__MERGE_TARGET__" ` +
				`USING (SELECT name, ds FROM upstream.table) AS "__MERGE_SOURCE__" ` +
				`ON "__MERGE_TARGET__"."NAME" = "__MERGE_SOURCE__"."NAME" ` +
				`WHEN MATCHED THEN UPDATE SET "NAME" = "__MERGE_SOURCE__"."NAME" ` +
				`WHEN NOT MATCHED THEN INSERT ("NAME") VALUES ("__MERGE_SOURCE__"."NAME")`,
		},
		{
			name:    "mssql gets a terminator and brackets",
			dialect: dialect.MssqlDialect,
			modify: func(r *MergeRequest) {
				r.MergeFilter = nil
				r.ColumnsToTypes = r.ColumnsToTypes[:1]
			},
			want: `MERGE INTO [test].[snapshot_table] AS [__MERGE_TARGET__] ` +
				`USING (SELECT name, ds FROM upstream.table) AS [__MERGE_SOURCE__] ` +
				`ON [__MERGE_TARGET__].[name] = [__MERGE_SOURCE__].[name] ` +
				`WHEN MATCHED THEN UPDATE SET [name] = [__MERGE_SOURCE__].[name] ` +
				`WHEN NOT MATCHED THEN INSERT ([name]) VALUES ([__MERGE_SOURCE__].[name]);`,
		},
		{
			name:    "composite key",
			dialect: dialect.PostgresDialect,
			modify: func(r *MergeRequest) {
				r.MergeFilter = nil
				r.UniqueKey = []sqlexpr.Expr{sqlexpr.Col("name"), sqlexpr.Col("ds")}
			},
			want: `MERGE INTO "test"."snapshot_table" AS "__MERGE_TARGET__" ` +
				`USING (SELECT name, ds FROM upstream.table) AS "__MERGE_SOURCE__" ` +
				`ON "__MERGE_TARGET__"."name" = "__MERGE_SOURCE__"."name" AND "__MERGE_TARGET__"."ds" = "__MERGE_SOURCE__"."ds" ` +
				`WHEN MATCHED THEN UPDATE SET "name" = "__MERGE_SOURCE__"."name", "ds" = "__MERGE_SOURCE__"."ds" ` +
				`WHEN NOT MATCHED THEN INSERT ("name", "ds") VALUES ("__MERGE_SOURCE__"."name", "__MERGE_SOURCE__"."ds")`,
		},
		{
			name:    "duckdb uses delete and insert",
			dialect: dialect.DuckDBDialect,
			want: "BEGIN TRANSACTION;\n" +
				`DELETE FROM "test"."snapshot_table" AS "__MERGE_TARGET__" WHERE EXISTS (SELECT 1 FROM (SELECT name, ds FROM upstream.table) AS "__MERGE_SOURCE__" ` +
				`WHERE ("__MERGE_SOURCE__"."ds" BETWEEN '2020-01-01' AND '2020-01-02' AND "__MERGE_TARGET__"."ds" BETWEEN '2020-01-01' AND '2020-01-02') ` +
				`AND "__MERGE_TARGET__"."name" = "__MERGE_SOURCE__"."name");` + "\n" +
				`INSERT INTO "test"."snapshot_table" ("name", "ds") SELECT "name", "ds" FROM (SELECT name, ds FROM upstream.table) AS "__MERGE_SOURCE__";` + "\n" +
				"COMMIT;",
		},
		{
			name:    "missing key",
			dialect: dialect.PostgresDialect,
			modify:  func(r *MergeRequest) { r.UniqueKey = nil },
			wantErr: "merge requires at least one unique key expression",
		},
		{
			name:    "missing columns",
			dialect: dialect.PostgresDialect,
			modify:  func(r *MergeRequest) { r.ColumnsToTypes = nil },
			wantErr: "the columns of 'test.snapshot_table' are not known, declare them on the asset",
		},
		{
			name:    "missing source",
			dialect: dialect.PostgresDialect,
			modify:  func(r *MergeRequest) { r.Source = &query.Query{Query: "  "} },
			wantErr: "merge requires a source query",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := baseRequest()
			if tt.modify != nil {
				tt.modify(req)
			}

			a, err := NewAdapter(tt.dialect, &RecordingClient{})
			require.NoError(t, err)

			got, err := a.BuildMergeQuery(req)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Query)
		})
	}
}

func TestAdapter_Merge(t *testing.T) {
	t.Parallel()

	t.Run("one statement per merge, variable definitions kept", func(t *testing.T) {
		t.Parallel()

		client := &RecordingClient{}
		a, err := NewAdapter(dialect.TrinoDialect, client)
		require.NoError(t, err)

		req := baseRequest()
		req.Source.VariableDefinitions = []string{"SET x = 1"}
		require.NoError(t, a.Merge(context.Background(), req))

		queries := client.Queries()
		require.Len(t, queries, 1)
		assert.Equal(t, []string{"SET x = 1"}, queries[0].VariableDefinitions)
		assert.Contains(t, queries[0].Query, "MERGE INTO")
	})

	t.Run("client errors are returned unchanged", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection reset")
		a, err := NewAdapter(dialect.PostgresDialect, &RecordingClient{Err: boom})
		require.NoError(t, err)

		err = a.Merge(context.Background(), baseRequest())
		assert.Same(t, boom, err)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		t.Parallel()

		_, err := NewAdapter("oracle", &RecordingClient{})
		require.EqualError(t, err, "unsupported dialect: oracle")
	})
}

func TestAdapter_BuildCreateTableQuery(t *testing.T) {
	t.Parallel()

	columns := []pipeline.Column{
		{Name: "event_id", Type: "integer"},
		{Name: "event_timestamp", Type: "timestamp"},
	}
	tsCol := &sqlexpr.Column{Name: "event_timestamp"}
	tsType := sqlexpr.DataType{Kind: sqlexpr.TimestampType, Raw: "timestamp"}

	tests := []struct {
		name    string
		dialect string
		spec    TableSpec
		want    string
		wantErr string
	}{
		{
			name:    "postgres without partitioning",
			dialect: dialect.PostgresDialect,
			spec:    TableSpec{Name: "analytics.events", Columns: columns, PartitionBy: tsCol, PartitionType: tsType},
			want:    `CREATE TABLE IF NOT EXISTS "analytics"."events" ("event_id" INTEGER, "event_timestamp" TIMESTAMP)`,
		},
		{
			name:    "bigquery partitions by day",
			dialect: dialect.BigQueryDialect,
			spec:    TableSpec{Name: "analytics.events", Columns: columns, PartitionBy: tsCol, PartitionType: tsType},
			want:    "CREATE TABLE IF NOT EXISTS `analytics`.`events` (`event_id` INTEGER, `event_timestamp` TIMESTAMP) PARTITION BY DATE(`event_timestamp`)",
		},
		{
			name:    "bigquery skips text partitions",
			dialect: dialect.BigQueryDialect,
			spec:    TableSpec{Name: "events", Columns: columns, PartitionBy: tsCol, PartitionType: sqlexpr.DataType{Kind: sqlexpr.TextType}},
			want:    "CREATE TABLE IF NOT EXISTS `events` (`event_id` INTEGER, `event_timestamp` TIMESTAMP)",
		},
		{
			name:    "databricks",
			dialect: dialect.DatabricksDialect,
			spec:    TableSpec{Name: "events", Columns: columns, PartitionBy: tsCol, PartitionType: tsType},
			want:    "CREATE TABLE IF NOT EXISTS `events` (`event_id` INTEGER, `event_timestamp` TIMESTAMP) PARTITIONED BY (`event_timestamp`)",
		},
		{
			name:    "snowflake clusters",
			dialect: dialect.SnowflakeDialect,
			spec:    TableSpec{Name: "events", Columns: columns, PartitionBy: tsCol, PartitionType: tsType},
			want:    `CREATE TABLE IF NOT EXISTS "EVENTS" ("EVENT_ID" INTEGER, "EVENT_TIMESTAMP" TIMESTAMP) CLUSTER BY ("EVENT_TIMESTAMP")`,
		},
		{
			name:    "trino day transform",
			dialect: dialect.TrinoDialect,
			spec:    TableSpec{Name: "events", Columns: columns, PartitionBy: tsCol, PartitionType: tsType},
			want:    `CREATE TABLE IF NOT EXISTS "events" ("event_id" INTEGER, "event_timestamp" TIMESTAMP) WITH (partitioning = ARRAY['day(event_timestamp)'])`,
		},
		{
			name:    "mssql guards with object_id",
			dialect: dialect.MssqlDialect,
			spec:    TableSpec{Name: "dbo.events", Columns: columns},
			want:    `IF OBJECT_ID(N'dbo.events', N'U') IS NULL CREATE TABLE [dbo].[events] ([event_id] INTEGER, [event_timestamp] TIMESTAMP)`,
		},
		{
			name:    "untyped column",
			dialect: dialect.PostgresDialect,
			spec:    TableSpec{Name: "events", Columns: []pipeline.Column{{Name: "event_id"}}},
			wantErr: "cannot create table 'events': column 'event_id' has no type",
		},
		{
			name:    "no columns",
			dialect: dialect.PostgresDialect,
			spec:    TableSpec{Name: "events"},
			wantErr: "cannot create table 'events' without columns",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := NewAdapter(tt.dialect, &RecordingClient{})
			require.NoError(t, err)

			got, err := a.BuildCreateTableQuery(tt.spec)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Query)
		})
	}
}

func TestAdapter_CreateTableIfNotExists_WrapsErrors(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(dialect.PostgresDialect, &RecordingClient{Err: errors.New("permission denied")})
	require.NoError(t, err)

	err = a.CreateTableIfNotExists(context.Background(), TableSpec{
		Name:    "events",
		Columns: []pipeline.Column{{Name: "id", Type: "int"}},
	})
	require.EqualError(t, err, "failed to create table 'events': permission denied")
}
