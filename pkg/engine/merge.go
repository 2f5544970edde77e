package engine

import (
	"fmt"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
)

func (a *Adapter) nativeMerge(req *MergeRequest) string {
	d := a.Dialect
	columns := a.columnIdentifiers(req)

	updates := make([]string, len(columns))
	values := make([]string, len(columns))
	for i, c := range columns {
		updates[i] = fmt.Sprintf("%s = %s.%s", c, d.Quote(MergeSourceAlias), c)
		values[i] = fmt.Sprintf("%s.%s", d.Quote(MergeSourceAlias), c)
	}

	lines := []string{
		fmt.Sprintf("MERGE INTO %s AS %s", d.QuoteTable(req.TargetTable), d.Quote(MergeTargetAlias)),
		fmt.Sprintf("USING (%s) AS %s", sourceSQL(req), d.Quote(MergeSourceAlias)),
		"ON " + a.onCondition(req),
		"WHEN MATCHED THEN UPDATE SET " + strings.Join(updates, ", "),
		fmt.Sprintf("WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)", strings.Join(columns, ", "), strings.Join(values, ", ")),
	}

	return strings.Join(lines, " ") + d.MergeTerminator
}

// deleteInsertMerge emulates MERGE for engines without it: target rows matched by a batch
// row are removed, then the whole batch is inserted, inside one transaction.
func (a *Adapter) deleteInsertMerge(req *MergeRequest) string {
	d := a.Dialect
	columns := a.columnIdentifiers(req)
	target := d.QuoteTable(req.TargetTable)
	source := sourceSQL(req)

	statements := []string{
		"BEGIN TRANSACTION",
		fmt.Sprintf("DELETE FROM %s AS %s WHERE EXISTS (SELECT 1 FROM (%s) AS %s WHERE %s)",
			target, d.Quote(MergeTargetAlias), source, d.Quote(MergeSourceAlias), a.onCondition(req)),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM (%s) AS %s",
			target, strings.Join(columns, ", "), strings.Join(columns, ", "), source, d.Quote(MergeSourceAlias)),
		"COMMIT",
	}

	return strings.Join(statements, ";\n") + ";"
}

// onCondition renders the filter, parenthesized, followed by target/source key equality.
func (a *Adapter) onCondition(req *MergeRequest) string {
	parts := make([]string, 0, len(req.UniqueKey)+1)
	if req.MergeFilter != nil {
		parts = append(parts, sqlexpr.Render(sqlexpr.Paren{Expr: req.MergeFilter}, a.Dialect))
	}

	for _, key := range req.UniqueKey {
		eq := sqlexpr.Eq(sqlexpr.Qualify(key, MergeTargetAlias), sqlexpr.Qualify(key, MergeSourceAlias))
		parts = append(parts, sqlexpr.Render(eq, a.Dialect))
	}

	return strings.Join(parts, " AND ")
}

func (a *Adapter) columnIdentifiers(req *MergeRequest) []string {
	columns := make([]string, len(req.ColumnsToTypes))
	for i, c := range req.ColumnsToTypes {
		columns[i] = sqlexpr.Col(c.Name).Identifier(a.Dialect)
	}
	return columns
}

func sourceSQL(req *MergeRequest) string {
	return strings.TrimSuffix(strings.TrimSpace(req.Source.Query), ";")
}
