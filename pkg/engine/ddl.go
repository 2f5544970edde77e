package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/pkg/errors"
)

// TableSpec describes the target table created before the first merge.
type TableSpec struct {
	Name    string
	Columns []pipeline.Column
	// PartitionBy is nil when the table should not be partitioned.
	PartitionBy   *sqlexpr.Column
	PartitionType sqlexpr.DataType
}

// CreateTableIfNotExists creates the schema of the table and then the table itself.
func (a *Adapter) CreateTableIfNotExists(ctx context.Context, spec TableSpec) error {
	q, err := a.BuildCreateTableQuery(spec)
	if err != nil {
		return err
	}

	if a.schemas != nil {
		if err := a.schemas.CreateSchemaIfNotExist(ctx, a.Client, spec.Name); err != nil {
			return err
		}
	}

	if err := a.Client.RunQueryWithoutResult(ctx, q); err != nil {
		return errors.Wrapf(err, "failed to create table '%s'", spec.Name)
	}
	return nil
}

func (a *Adapter) BuildCreateTableQuery(spec TableSpec) (*query.Query, error) {
	d := a.Dialect
	if len(spec.Columns) == 0 {
		return nil, errors.Errorf("cannot create table '%s' without columns", spec.Name)
	}

	definitions := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		if strings.TrimSpace(c.Type) == "" {
			return nil, errors.Errorf("cannot create table '%s': column '%s' has no type", spec.Name, c.Name)
		}
		definitions[i] = sqlexpr.Col(c.Name).Identifier(d) + " " + strings.ToUpper(c.Type)
	}

	table := d.QuoteTable(spec.Name)
	body := fmt.Sprintf("(%s)", strings.Join(definitions, ", "))
	statement := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s", table, body)
	if d.Name == dialect.MssqlDialect {
		statement = fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s", spec.Name, table, body)
	}

	if clause := a.partitionClause(spec); clause != "" {
		statement += " " + clause
	}

	return &query.Query{Query: statement}, nil
}

func (a *Adapter) partitionClause(spec TableSpec) string {
	if spec.PartitionBy == nil {
		return ""
	}

	d := a.Dialect
	col := spec.PartitionBy.Identifier(d)
	switch d.Partitioning {
	case dialect.PartitionBy:
		switch spec.PartitionType.Kind {
		case sqlexpr.DateType:
			return "PARTITION BY " + col
		case sqlexpr.TimestampType, sqlexpr.TimestampTZType:
			return fmt.Sprintf("PARTITION BY DATE(%s)", col)
		default:
			return ""
		}
	case dialect.PartitionedBy:
		return fmt.Sprintf("PARTITIONED BY (%s)", col)
	case dialect.ClusterBy:
		return fmt.Sprintf("CLUSTER BY (%s)", col)
	case dialect.PartitioningProperty:
		name := spec.PartitionBy.Name
		if !spec.PartitionBy.Quoted {
			name = d.NormalizeIdentifier(name)
		}
		if spec.PartitionType.Kind == sqlexpr.TimestampType || spec.PartitionType.Kind == sqlexpr.TimestampTZType {
			name = fmt.Sprintf("day(%s)", name)
		}
		return fmt.Sprintf("WITH (partitioning = ARRAY['%s'])", name)
	default:
		return ""
	}
}
