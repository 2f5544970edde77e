// Package materialization implements the non-idempotent incremental by time range
// strategy: rows of a batch are merged into the target table on their primary key, and
// only inside the batch's time window.
package materialization

import (
	"fmt"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/bruin-data/timerange-merge/pkg/sqlparser"
)

const Name = "non_idempotent_incremental_by_time_range"

// Model is what the strategy needs from an asset.
type Model interface {
	GetName() string
	GetDialect() string
	CustomMaterializationProperties() map[string]any
	ColumnsToTypes() []pipeline.Column
}

type TimeColumn struct {
	Column sqlexpr.Column
	Format string
}

// Properties is the validated configuration of the strategy. It is rebuilt from the model
// whenever it is needed.
type Properties struct {
	TimeColumn TimeColumn
	PrimaryKey []sqlexpr.Expr
}

// PropertiesFromModel validates the raw time_column and primary_key values of the model.
func PropertiesFromModel(model Model) (*Properties, error) {
	return ParseProperties(model.CustomMaterializationProperties())
}

// Validate is the plan-time check of a model: its properties must parse, its time
// column must be one of its declared columns and it must run on a known engine.
func Validate(model Model) (*Properties, error) {
	props, err := PropertiesFromModel(model)
	if err != nil {
		return nil, err
	}
	if _, err := resolveTimeColumn(model, props.TimeColumn.Column); err != nil {
		return nil, err
	}
	if _, err := dialect.Get(model.GetDialect()); err != nil {
		return nil, configErrorf(ErrUnsupportedDialect, "Model '%s' does not run on a supported engine: %s", model.GetName(), err)
	}
	return props, nil
}

func ParseProperties(raw map[string]any) (*Properties, error) {
	checks := []func(raw map[string]any, p *Properties) error{
		checkTimeColumn,
		checkPrimaryKeyPresent,
		checkPrimaryKeyNotTimeColumn,
	}

	p := &Properties{}
	for _, check := range checks {
		if err := check(raw, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func checkTimeColumn(raw map[string]any, p *Properties) error {
	tc, err := timeColumnFromRaw(raw[pipeline.PropertyTimeColumn])
	if err != nil {
		return configErrorf(ErrInvalidTimeColumn, "Invalid time_column: %s", err)
	}
	p.TimeColumn = tc
	return nil
}

func checkPrimaryKeyPresent(raw map[string]any, p *Properties) error {
	value, ok := raw[pipeline.PropertyPrimaryKey]
	if !ok || value == nil {
		return configErrorf(ErrPrimaryKeyMissing, "`primary_key` must be specified")
	}

	exprs, err := primaryKeyFromRaw(value)
	if err != nil {
		return configErrorf(ErrInvalidPrimaryKey, "Invalid primary_key: %s", err)
	}
	if len(exprs) == 0 {
		return configErrorf(ErrPrimaryKeyMissing, "`primary_key` must be specified")
	}

	p.PrimaryKey = exprs
	return nil
}

func checkPrimaryKeyNotTimeColumn(_ map[string]any, p *Properties) error {
	if len(p.PrimaryKey) != 1 {
		return nil
	}

	timeKey := p.TimeColumn.Column.Key()
	for _, c := range sqlexpr.Columns(p.PrimaryKey[0]) {
		if c.Key() == timeKey {
			return configErrorf(ErrPrimaryKeyIsTimeColumn,
				"`primary_key` cannot be just the time_column. Please list the columns that when combined, uniquely identify a row")
		}
	}
	return nil
}

// timeColumnFromRaw accepts `ds`, `(ds, '%Y%m%d')`, a [column, format] list or a
// {column, format} mapping.
func timeColumnFromRaw(value any) (TimeColumn, error) {
	switch v := value.(type) {
	case nil:
		return TimeColumn{}, fmt.Errorf("a time column is required")
	case string:
		col, format, err := sqlparser.ParseTimeColumn(v)
		if err != nil {
			return TimeColumn{}, err
		}
		return TimeColumn{Column: col, Format: format}, nil
	case []any:
		if len(v) == 0 || len(v) > 2 {
			return TimeColumn{}, fmt.Errorf("expected a column and an optional format, got %d values", len(v))
		}
		parts := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return TimeColumn{}, fmt.Errorf("unexpected value '%v'", item)
			}
			parts[i] = s
		}
		col, err := sqlparser.ParseColumn(parts[0])
		if err != nil {
			return TimeColumn{}, err
		}
		tc := TimeColumn{Column: col}
		if len(parts) == 2 {
			tc.Format = parts[1]
		}
		return tc, nil
	case map[string]any:
		name, ok := v["column"].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return TimeColumn{}, fmt.Errorf("the 'column' key is required")
		}
		col, err := sqlparser.ParseColumn(name)
		if err != nil {
			return TimeColumn{}, err
		}
		tc := TimeColumn{Column: col}
		if f, present := v["format"]; present && f != nil {
			format, ok := f.(string)
			if !ok {
				return TimeColumn{}, fmt.Errorf("the format must be a string, got '%v'", f)
			}
			tc.Format = format
		}
		return tc, nil
	default:
		return TimeColumn{}, fmt.Errorf("unexpected value '%v'", value)
	}
}

func primaryKeyFromRaw(value any) ([]sqlexpr.Expr, error) {
	switch v := value.(type) {
	case string:
		return sqlparser.ParseExpressions(v)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return primaryKeyFromRaw(items)
	case []any:
		var exprs []sqlexpr.Expr
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected value '%v'", item)
			}
			parsed, err := sqlparser.ParseExpressions(s)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, parsed...)
		}
		return exprs, nil
	default:
		return nil, fmt.Errorf("unexpected value '%v'", value)
	}
}

// resolveTimeColumn finds the declared column backing the time column. Unquoted names
// match case-insensitively.
func resolveTimeColumn(model Model, col sqlexpr.Column) (pipeline.Column, error) {
	columns := model.ColumnsToTypes()
	if len(columns) == 0 {
		return pipeline.Column{}, configErrorf(ErrColumnsUnknown,
			"The columns of model '%s' are not declared, the time column '%s' cannot be resolved.", model.GetName(), col.Name)
	}

	for _, c := range columns {
		if c.Name == col.Name {
			return c, nil
		}
	}
	if !col.Quoted {
		for _, c := range columns {
			if strings.EqualFold(c.Name, col.Name) {
				return c, nil
			}
		}
	}

	return pipeline.Column{}, configErrorf(ErrTimeColumnNotFound,
		"Time column '%s' not found in model '%s'.", col.Name, model.GetName())
}

// TimeColumnDefinition returns the declared column backing the time column of the model.
func (p *Properties) TimeColumnDefinition(model Model) (pipeline.Column, error) {
	return resolveTimeColumn(model, p.TimeColumn.Column)
}
