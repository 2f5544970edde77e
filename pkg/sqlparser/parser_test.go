package sqlparser

import (
	"testing"

	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []sqlexpr.Expr
		wantErr string
	}{
		{
			name: "empty",
			raw:  "  ",
			want: nil,
		},
		{
			name: "empty parentheses",
			raw:  "( )",
			want: nil,
		},
		{
			name: "single column",
			raw:  "name",
			want: []sqlexpr.Expr{sqlexpr.Col("name")},
		},
		{
			name: "parenthesized list",
			raw:  "(id, ds)",
			want: []sqlexpr.Expr{sqlexpr.Col("id"), sqlexpr.Col("ds")},
		},
		{
			name: "bare list",
			raw:  "event_id, event_source",
			want: []sqlexpr.Expr{sqlexpr.Col("event_id"), sqlexpr.Col("event_source")},
		},
		{
			name: "single parenthesized column",
			raw:  "(ds)",
			want: []sqlexpr.Expr{sqlexpr.Col("ds")},
		},
		{
			name: "quoted identifiers",
			raw:  "(\"EventId\", `Source`, ds)",
			want: []sqlexpr.Expr{
				sqlexpr.Column{Name: "EventId", Quoted: true},
				sqlexpr.Column{Name: "Source", Quoted: true},
				sqlexpr.Col("ds"),
			},
		},
		{
			name: "function call",
			raw:  "(lower(email), id)",
			want: []sqlexpr.Expr{
				sqlexpr.Func{Name: "lower", Args: []sqlexpr.Expr{sqlexpr.Col("email")}},
				sqlexpr.Col("id"),
			},
		},
		{
			name: "qualified column",
			raw:  "t.id",
			want: []sqlexpr.Expr{sqlexpr.Column{Name: "id", Table: "t"}},
		},
		{
			name: "arithmetic",
			raw:  "id + 1",
			want: []sqlexpr.Expr{sqlexpr.Binary{Op: "+", Left: sqlexpr.Col("id"), Right: sqlexpr.Number("1")}},
		},
		{
			name: "column named like a reserved word",
			raw:  "key",
			want: []sqlexpr.Expr{sqlexpr.Col("key")},
		},
		{
			name: "reserved words in a composite key",
			raw:  "(order, lower(key))",
			want: []sqlexpr.Expr{
				sqlexpr.Col("order"),
				sqlexpr.Func{Name: "lower", Args: []sqlexpr.Expr{sqlexpr.Col("key")}},
			},
		},
		{
			name: "double colon cast",
			raw:  "event_date::date",
			want: []sqlexpr.Expr{
				sqlexpr.Cast{Expr: sqlexpr.Col("event_date"), Type: sqlexpr.DataType{Kind: sqlexpr.DateType, Raw: "date"}},
			},
		},
		{
			name: "double colon cast with parameters in a list",
			raw:  "(id, amount::decimal(10, 2))",
			want: []sqlexpr.Expr{
				sqlexpr.Col("id"),
				sqlexpr.Cast{Expr: sqlexpr.Col("amount"), Type: sqlexpr.DataType{Kind: sqlexpr.NumericType, Raw: "decimal(10, 2)"}},
			},
		},
		{
			name: "double colon cast on a function call",
			raw:  "lower(email)::varchar",
			want: []sqlexpr.Expr{
				sqlexpr.Cast{
					Expr: sqlexpr.Func{Name: "lower", Args: []sqlexpr.Expr{sqlexpr.Col("email")}},
					Type: sqlexpr.DataType{Kind: sqlexpr.TextType, Raw: "varchar"},
				},
			},
		},
		{
			name:    "double colon without a type",
			raw:     "ds::",
			wantErr: "missing type after '::'",
		},
		{
			name:    "alias is rejected",
			raw:     "id AS other",
			wantErr: "aliases are not allowed in 'id AS other'",
		},
		{
			name:    "unterminated identifier",
			raw:     `"id`,
			wantErr: `unterminated identifier in '"id'`,
		},
		{
			name:    "syntax error",
			raw:     "id,",
			wantErr: "failed to parse expression 'id,'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseExpressions(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("unexpected expressions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRewriteCasts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "ds", want: "ds"},
		{raw: "ds::date", want: "CAST(ds AS `date`)"},
		{raw: "t.ds :: date", want: "CAST(t.ds AS `date`)"},
		{raw: "`Event Date`::timestamp", want: "CAST(`Event Date` AS `timestamp`)"},
		{raw: "ds::date::varchar", want: "CAST(CAST(ds AS `date`) AS `varchar`)"},
		{raw: "'a::b'", want: "'a::b'"},
		{raw: "id + ds::date", want: "id + CAST(ds AS `date`)"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := rewriteCasts(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantColumn sqlexpr.Column
		wantFormat string
		wantErr    bool
	}{
		{
			name:       "column only",
			raw:        "ds",
			wantColumn: sqlexpr.Col("ds"),
		},
		{
			name:       "column with format",
			raw:        "(ds, '%Y-%m-%d')",
			wantColumn: sqlexpr.Col("ds"),
			wantFormat: "%Y-%m-%d",
		},
		{
			name:       "quoted column",
			raw:        `"EventDate"`,
			wantColumn: sqlexpr.Column{Name: "EventDate", Quoted: true},
		},
		{
			name:    "format must be a string",
			raw:     "(ds, 1)",
			wantErr: true,
		},
		{
			name:    "not a column",
			raw:     "lower(ds)",
			wantErr: true,
		},
		{
			name:    "too many parts",
			raw:     "(ds, '%Y', 'x')",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			col, format, err := ParseTimeColumn(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantColumn, col)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestParseColumn(t *testing.T) {
	t.Parallel()

	col, err := ParseColumn("event_timestamp")
	require.NoError(t, err)
	assert.Equal(t, sqlexpr.Col("event_timestamp"), col)

	_, err = ParseColumn("(a, b)")
	require.Error(t, err)
}
