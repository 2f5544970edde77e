package dialect

import (
	"fmt"
	"strings"
	"time"
)

// Define constants for known SQL dialects.
const (
	BigQueryDialect   = "bigquery"
	SnowflakeDialect  = "snowflake"
	DuckDBDialect     = "duckdb"
	RedshiftDialect   = "redshift"
	PostgresDialect   = "postgres"
	MssqlDialect      = "mssql"
	DatabricksDialect = "databricks"
	TrinoDialect      = "trino"
)

var assetTypeDialectMap = map[string]string{
	"bq.sql":         BigQueryDialect,
	"sf.sql":         SnowflakeDialect,
	"duckdb.sql":     DuckDBDialect,
	"rs.sql":         RedshiftDialect,
	"pg.sql":         PostgresDialect,
	"ms.sql":         MssqlDialect,
	"databricks.sql": DatabricksDialect,
	"trino.sql":      TrinoDialect,
}

// GetDialectByAssetType checks if the asset type has a valid SQL dialect.
func GetDialectByAssetType(assetType string) (string, error) {
	dialect, ok := assetTypeDialectMap[assetType]
	if !ok {
		return "", fmt.Errorf("unsupported asset type: %s", assetType)
	}
	return dialect, nil
}

type Normalization int

const (
	Lowercase Normalization = iota
	Uppercase
	Preserve
)

type PartitionStyle int

const (
	NoPartitioning PartitionStyle = iota
	PartitionBy
	PartitionedBy
	ClusterBy
	PartitioningProperty
)

// Dialect describes how identifiers, literals and merges are written for one engine.
type Dialect struct {
	Name          string
	QuoteStart    string
	QuoteEnd      string
	Normalization Normalization

	// TimePrecision is the smallest step the engine stores for timestamps.
	TimePrecision time.Duration

	// TZType is used to cast a time literal when the column type is not known.
	// TZTypeFractional, when set, replaces it for values with sub-second precision.
	TZType           string
	TZTypeFractional string

	// NativeMerge is false for engines that need the merge emulated with delete+insert.
	NativeMerge bool

	// MergeTerminator is appended to MERGE statements, mssql refuses them without it.
	MergeTerminator string
	Partitioning    PartitionStyle
}

var dialects = map[string]Dialect{
	PostgresDialect: {
		Name: PostgresDialect, QuoteStart: `"`, QuoteEnd: `"`, Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMPTZ", NativeMerge: true,
	},
	RedshiftDialect: {
		Name: RedshiftDialect, QuoteStart: `"`, QuoteEnd: `"`, Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMPTZ", NativeMerge: true,
	},
	DuckDBDialect: {
		Name: DuckDBDialect, QuoteStart: `"`, QuoteEnd: `"`, Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMPTZ", NativeMerge: false,
	},
	SnowflakeDialect: {
		Name: SnowflakeDialect, QuoteStart: `"`, QuoteEnd: `"`, Normalization: Uppercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMPTZ", NativeMerge: true,
		Partitioning: ClusterBy,
	},
	TrinoDialect: {
		Name: TrinoDialect, QuoteStart: `"`, QuoteEnd: `"`, Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMP WITH TIME ZONE",
		TZTypeFractional: "TIMESTAMP(6) WITH TIME ZONE", NativeMerge: true,
		Partitioning: PartitioningProperty,
	},
	BigQueryDialect: {
		Name: BigQueryDialect, QuoteStart: "`", QuoteEnd: "`", Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMP", NativeMerge: true,
		Partitioning: PartitionBy,
	},
	DatabricksDialect: {
		Name: DatabricksDialect, QuoteStart: "`", QuoteEnd: "`", Normalization: Lowercase,
		TimePrecision: time.Microsecond, TZType: "TIMESTAMP", NativeMerge: true,
		Partitioning: PartitionedBy,
	},
	MssqlDialect: {
		Name: MssqlDialect, QuoteStart: "[", QuoteEnd: "]", Normalization: Preserve,
		TimePrecision: 100 * time.Nanosecond, TZType: "DATETIMEOFFSET", NativeMerge: true,
		MergeTerminator: ";",
	},
}

// Get returns the descriptor for a dialect name, an empty name falls back to postgres.
func Get(name string) (Dialect, error) {
	if name == "" {
		return Dialect{}, fmt.Errorf("missing dialect")
	}
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported dialect: %s", name)
	}
	return d, nil
}

func MustGet(name string) Dialect {
	d, err := Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Dialect) NormalizeIdentifier(name string) string {
	switch d.Normalization {
	case Uppercase:
		return strings.ToUpper(name)
	case Lowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// Quote wraps a single identifier part, escaping the closing quote character.
func (d Dialect) Quote(name string) string {
	return d.QuoteStart + strings.ReplaceAll(name, d.QuoteEnd, d.QuoteEnd+d.QuoteEnd) + d.QuoteEnd
}

// QuoteTable quotes every dot separated part of an unquoted table reference.
func (d Dialect) QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = d.Quote(d.NormalizeIdentifier(part))
	}
	return strings.Join(parts, ".")
}

func (d Dialect) TZCastType(fractional bool) string {
	if fractional && d.TZTypeFractional != "" {
		return d.TZTypeFractional
	}
	return d.TZType
}
