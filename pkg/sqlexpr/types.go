package sqlexpr

import (
	"regexp"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
)

type TypeKind int

const (
	UnknownType TypeKind = iota
	DateType
	TimestampType
	TimestampTZType
	TextType
	NumericType
	BooleanType
	OtherType
)

// DataType is a declared column type, kept verbatim next to its classification.
type DataType struct {
	Kind TypeKind
	Raw  string
}

var (
	typeParams  = regexp.MustCompile(`\s*\([^)]*\)`)
	spaceRunsRe = regexp.MustCompile(`\s+`)
)

func kindOf(base string) TypeKind {
	switch base {
	case "date", "date32":
		return DateType
	case "timestamptz", "timestamp with time zone", "timestamp_tz", "timestamp_ltz", "timestampltz",
		"timestamp with local time zone", "datetimeoffset":
		return TimestampTZType
	case "timestamp", "timestamp without time zone", "timestamp_ntz", "timestampntz", "datetime",
		"datetime2", "smalldatetime", "timestamp_s", "timestamp_ms", "timestamp_ns":
		return TimestampType
	case "text", "varchar", "char", "character", "character varying", "nvarchar", "nchar", "string", "bpchar":
		return TextType
	case "int", "integer", "int2", "int4", "int8", "int64", "bigint", "smallint", "tinyint", "hugeint",
		"decimal", "numeric", "number", "bignumeric", "float", "float4", "float8", "float64", "double",
		"double precision", "real":
		return NumericType
	case "bool", "boolean":
		return BooleanType
	default:
		return OtherType
	}
}

// ParseDataType classifies a declared type. BigQuery's TIMESTAMP is zone aware, so the
// dialect takes part in the decision.
func ParseDataType(raw string, d dialect.Dialect) DataType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DataType{Kind: UnknownType}
	}

	base := strings.ToLower(typeParams.ReplaceAllString(raw, ""))
	base = spaceRunsRe.ReplaceAllString(strings.TrimSpace(base), " ")

	kind := kindOf(base)
	if kind == TimestampType && base == "timestamp" && d.Name == dialect.BigQueryDialect {
		kind = TimestampTZType
	}

	return DataType{Kind: kind, Raw: raw}
}

func (t DataType) SQL() string {
	return strings.ToUpper(spaceRunsRe.ReplaceAllString(t.Raw, " "))
}

func (t DataType) IsTemporal() bool {
	return t.Kind == DateType || t.Kind == TimestampType || t.Kind == TimestampTZType
}
