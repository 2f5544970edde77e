package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/engine"
	"github.com/bruin-data/timerange-merge/pkg/materialization"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	colors = []color.Attribute{
		color.FgBlue,
		color.FgMagenta,
		color.FgCyan,
		color.FgWhite,
		color.FgHiMagenta,
		color.FgHiBlue,
		color.FgHiCyan,
	}
	faint = color.New(color.Faint).SprintFunc()
)

type contextKey int

const (
	ContextLogger contextKey = iota
	ContextRunID

	timeFormat = "2006-01-02 15:04:05"
)

type TableCreator interface {
	CreateTableIfNotExists(ctx context.Context, spec engine.TableSpec) error
}

type BatchInserter interface {
	Insert(ctx context.Context, tableName string, source *query.Query, model materialization.Model, isFirstInsert bool, opts materialization.InsertOptions) error
	Append(ctx context.Context, tableName string, source *query.Query, model materialization.Model, opts materialization.InsertOptions) error
}

type BatchRunner struct {
	Tables   TableCreator
	Strategy BatchInserter
	Logger   *zap.SugaredLogger
	Clock    clockwork.Clock
	Output   io.Writer

	// Concurrency overrides batch_concurrency of the asset when positive.
	Concurrency int

	printLock sync.Mutex
}

func NewBatchRunner(adapter *engine.Adapter, logger *zap.SugaredLogger) *BatchRunner {
	return &BatchRunner{
		Tables:   adapter,
		Strategy: materialization.NewStrategy(adapter, logger),
		Logger:   logger,
		Clock:    clockwork.NewRealClock(),
		Output:   os.Stdout,
	}
}

// Run validates the asset, creates its table once and merges every batch into it. The
// first batch runs alone, the rest run with the configured concurrency. Failed batches do
// not stop the others and are not retried.
func (r *BatchRunner) Run(ctx context.Context, asset *pipeline.Asset, batches []Batch) (*RunSummary, error) {
	if !asset.Materialization.UsesTimeRangeMerge() {
		return nil, fmt.Errorf("asset '%s' is not materialized with the '%s' strategy", asset.Name, materialization.Name)
	}

	props, err := materialization.Validate(asset)
	if err != nil {
		return nil, err
	}

	if len(batches) == 0 {
		return nil, errors.New("there are no batches to run")
	}

	spec, err := TableSpecForAsset(asset, props)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:         uuid.NewString(),
		Asset:         asset.Name,
		ExecutionTime: r.Clock.Now().UTC(),
		Results:       make([]BatchResult, len(batches)),
	}

	ctx = context.WithValue(ctx, ContextLogger, r.Logger)
	ctx = context.WithValue(ctx, ContextRunID, summary.RunID)

	if err := r.Tables.CreateTableIfNotExists(ctx, spec); err != nil {
		return nil, err
	}

	summary.Results[0] = r.runBatch(ctx, asset, batches[0], summary, true, len(batches))
	if summary.Results[0].Err != nil {
		for i, b := range batches[1:] {
			summary.Results[i+1] = BatchResult{Batch: b, Status: StatusSkipped}
		}
		return summary, summary.Err()
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = asset.Materialization.EffectiveBatchConcurrency()
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	for i, b := range batches[1:] {
		p.Go(func() {
			summary.Results[i+1] = r.runBatch(ctx, asset, b, summary, false, len(batches))
		})
	}
	p.Wait()

	return summary, summary.Err()
}

func (r *BatchRunner) runBatch(ctx context.Context, asset *pipeline.Asset, batch Batch, summary *RunSummary, first bool, total int) BatchResult {
	printer := color.New(colors[batch.Index%len(colors)])
	label := fmt.Sprintf("%s batch %d/%d [%s]", asset.Name, batch.Index+1, total, batch)

	r.printf(printer, "[%s] Starting: %s\n", r.Clock.Now().Format(timeFormat), label)
	start := r.Clock.Now()

	err := r.mergeBatch(ctx, asset, batch, summary, first)

	duration := r.Clock.Since(start)
	res := "Finished"
	status := StatusSucceeded
	if err != nil {
		res = "Failed"
		status = StatusFailed
	}
	if err != nil && r.Logger != nil {
		r.Logger.Debugw("batch failed", "asset", asset.Name, "batch", batch.Index, "error", err)
	}
	r.printf(printer, "[%s] %s: %s %s\n", r.Clock.Now().Format(timeFormat), res, label, faint(fmt.Sprintf("(%s)", duration.Truncate(time.Millisecond))))

	return BatchResult{Batch: batch, Status: status, Duration: duration, Err: err}
}

func (r *BatchRunner) mergeBatch(ctx context.Context, asset *pipeline.Asset, batch Batch, summary *RunSummary, first bool) error {
	source, err := asset.RenderQuery(batch.Start, batch.End, summary.ExecutionTime, pipeline.RuntimeStageEvaluating, summary.RunID)
	if err != nil {
		return err
	}

	opts := materialization.InsertOptions{Start: &batch.Start, End: &batch.End}
	if first {
		return r.Strategy.Insert(ctx, asset.Name, source, asset, true, opts)
	}
	return r.Strategy.Append(ctx, asset.Name, source, asset, opts)
}

func (r *BatchRunner) printf(c *color.Color, format string, args ...interface{}) {
	if r.Output == nil {
		return
	}

	r.printLock.Lock()
	defer r.printLock.Unlock()
	_, _ = c.Fprintf(r.Output, format, args...)
}

// TableSpecForAsset describes the target table of the asset. The table is partitioned on
// the time column unless partition_by_time_column is false.
func TableSpecForAsset(asset *pipeline.Asset, props *materialization.Properties) (engine.TableSpec, error) {
	spec := engine.TableSpec{
		Name:    asset.Name,
		Columns: asset.ColumnsToTypes(),
	}

	if !asset.Materialization.PartitionByTimeColumn.Bool() {
		return spec, nil
	}

	d, err := dialect.Get(asset.GetDialect())
	if err != nil {
		return engine.TableSpec{}, err
	}

	declared, err := props.TimeColumnDefinition(asset)
	if err != nil {
		return engine.TableSpec{}, err
	}

	column := props.TimeColumn.Column
	spec.PartitionBy = &column
	spec.PartitionType = sqlexpr.ParseDataType(declared.Type, d)
	return spec, nil
}
