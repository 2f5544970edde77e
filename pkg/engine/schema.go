package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/pkg/errors"
)

// SchemaCreator creates the schema of a target table once per process.
type SchemaCreator struct {
	dialect         dialect.Dialect
	schemaNameCache *sync.Map
}

func NewSchemaCreator(d dialect.Dialect) *SchemaCreator {
	return &SchemaCreator{
		dialect:         d,
		schemaNameCache: &sync.Map{},
	}
}

func (sc *SchemaCreator) CreateSchemaIfNotExist(ctx context.Context, qr Client, tableName string) error {
	tableComponents := strings.Split(tableName, ".")
	var schemaName string
	switch len(tableComponents) {
	case 2:
		schemaName = tableComponents[0]
	case 3:
		schemaName = tableComponents[1]
	default:
		return nil
	}

	schemaName = sc.dialect.NormalizeIdentifier(schemaName)
	if _, exists := sc.schemaNameCache.Load(schemaName); exists {
		return nil
	}

	quoted := sc.dialect.Quote(schemaName)
	statement := "CREATE SCHEMA IF NOT EXISTS " + quoted
	if sc.dialect.Name == dialect.MssqlDialect {
		statement = fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC('CREATE SCHEMA %s')", schemaName, quoted)
	}

	if err := qr.RunQueryWithoutResult(ctx, &query.Query{Query: statement}); err != nil {
		return errors.Wrapf(err, "failed to create or ensure schema: %s", schemaName)
	}
	sc.schemaNameCache.Store(schemaName, true)

	return nil
}
