package sqlexpr

import (
	"time"

	"github.com/bruin-data/timerange-merge/pkg/date"
	"github.com/bruin-data/timerange-merge/pkg/dialect"
)

const (
	DefaultTextTimeFormat    = "%Y-%m-%d"
	DefaultNumericTimeFormat = "%Y%m%d"
)

// ToTimeColumn turns a point in time into a literal that compares correctly against a
// column of the given type. Temporal columns get a cast to their own type, text and
// numeric columns get the value rendered through the column's format, and anything else
// falls back to a zone aware timestamp.
func ToTimeColumn(t time.Time, typ DataType, d dialect.Dialect, format string) Expr {
	t = t.UTC()

	switch typ.Kind {
	case DateType:
		return Cast{Expr: String(date.FormatDS(t)), Type: DataType{Kind: DateType, Raw: "DATE"}}
	case TimestampTZType:
		return Cast{Expr: String(date.FormatTSTZ(t)), Type: typ}
	case TimestampType:
		return Cast{Expr: String(date.FormatTS(t)), Type: typ}
	case TextType:
		if format == "" {
			format = DefaultTextTimeFormat
		}
		return String(t.Format(date.ConvertPythonDateFormatToGolang(format)))
	case NumericType:
		if format == "" {
			format = DefaultNumericTimeFormat
		}
		return Number(t.Format(date.ConvertPythonDateFormatToGolang(format)))
	}

	if format != "" {
		return String(t.Format(date.ConvertPythonDateFormatToGolang(format)))
	}

	castType := d.TZCastType(date.HasFraction(t))
	return Cast{Expr: String(date.FormatTSTZ(t)), Type: DataType{Kind: TimestampTZType, Raw: castType}}
}
