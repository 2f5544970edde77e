package materialization

import (
	"context"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/date"
	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/engine"
	"github.com/bruin-data/timerange-merge/pkg/logger"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
)

// InsertOptions carries the batch window. End is exclusive.
type InsertOptions struct {
	Start *time.Time
	End   *time.Time
}

type Strategy struct {
	Merger engine.Merger
	Logger logger.Logger
}

func NewStrategy(merger engine.Merger, l logger.Logger) *Strategy {
	return &Strategy{Merger: merger, Logger: l}
}

// Insert merges one batch into tableName. isFirstInsert does not change what happens, the
// first batch is merged exactly like every later one.
func (s *Strategy) Insert(ctx context.Context, tableName string, source *query.Query, model Model, isFirstInsert bool, opts InsertOptions) error {
	if opts.Start == nil || opts.End == nil {
		return &IntegrationError{
			Cause: ErrMissingBatchWindow,
			Msg:   "the batch runner needs to pass in start/end arguments",
		}
	}

	req, err := BuildMergeRequest(tableName, source, model, *opts.Start, *opts.End)
	if err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.Debugw("merging batch", "table", tableName, "start", opts.Start, "end", opts.End, "first_insert", isFirstInsert)
	}

	return s.Merger.Merge(ctx, req)
}

func (s *Strategy) Append(ctx context.Context, tableName string, source *query.Query, model Model, opts InsertOptions) error {
	return s.Insert(ctx, tableName, source, model, false, opts)
}

// BuildMergeRequest resolves the time column of the model and restricts the merge to the
// inclusive [start, end) window on both the source and the target side.
func BuildMergeRequest(tableName string, source *query.Query, model Model, start, end time.Time) (*engine.MergeRequest, error) {
	props, err := PropertiesFromModel(model)
	if err != nil {
		return nil, err
	}

	d, err := dialect.Get(model.GetDialect())
	if err != nil {
		return nil, err
	}

	declared, err := resolveTimeColumn(model, props.TimeColumn.Column)
	if err != nil {
		return nil, err
	}
	typ := sqlexpr.ParseDataType(declared.Type, d)

	low, high := date.MakeInclusive(start, end, d.TimePrecision)
	window := sqlexpr.Between{
		Expr: props.TimeColumn.Column,
		Low:  sqlexpr.ToTimeColumn(low, typ, d, props.TimeColumn.Format),
		High: sqlexpr.ToTimeColumn(high, typ, d, props.TimeColumn.Format),
	}

	return &engine.MergeRequest{
		TargetTable:    tableName,
		Source:         source,
		ColumnsToTypes: model.ColumnsToTypes(),
		UniqueKey:      props.PrimaryKey,
		MergeFilter: sqlexpr.AndOf(
			sqlexpr.Qualify(window, engine.MergeSourceAlias),
			sqlexpr.Qualify(window, engine.MergeTargetAlias),
		),
	}, nil
}
