package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/bruin-data/timerange-merge/pkg/engine"
	"github.com/bruin-data/timerange-merge/pkg/executor"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type RenderedBatch struct {
	executor.Batch
	Statement string `json:"statement"`
}

type RenderOutput struct {
	Asset   string          `json:"asset"`
	Dialect string          `json:"dialect"`
	Setup   []string        `json:"setup"`
	Batches []RenderedBatch `json:"batches"`
}

func Render() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "print the statements a run would issue, without connecting to the warehouse",
		ArgsUsage: "[path to the asset]",
		Flags:     []cli.Flag{startDateFlag, endDateFlag, outputFlag},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			r := &RenderCommand{fs: fs, writer: c.App.Writer, output: c.String("output")}
			return r.Run(c.Context, c.Args().Get(0), c.String("start-date"), c.String("end-date"))
		},
	}
}

type RenderCommand struct {
	fs     afero.Fs
	writer io.Writer
	output string
}

func (r *RenderCommand) Run(ctx context.Context, assetPath, startStr, endStr string) error {
	if assetPath == "" {
		printError(r.writer, errors.New("missing asset path"), r.output, "Please give the path of an asset")
		return cli.Exit("", 1)
	}

	out, err := r.render(ctx, assetPath, startStr, endStr)
	if err != nil {
		printError(r.writer, err, r.output, "Failed to render the asset")
		return cli.Exit("", 1)
	}

	if r.output == "json" {
		js, err := json.Marshal(out)
		if err != nil {
			return errors.Wrap(err, "failed to marshal the output")
		}
		fmt.Fprintln(r.writer, string(js))
		return nil
	}

	fmt.Fprintln(r.writer, batchPlanTable(out.Batches))
	fmt.Fprintln(r.writer)
	for _, s := range out.Setup {
		fmt.Fprintf(r.writer, "%s;\n\n", highlightCode(s, "sql"))
	}
	for _, b := range out.Batches {
		fmt.Fprintln(r.writer, faint(fmt.Sprintf("-- batch %d: %s", b.Index+1, b.Batch)))
		fmt.Fprintf(r.writer, "%s\n\n", highlightCode(b.Statement, "sql"))
	}
	return nil
}

// render runs the asset against a client that only records the statements.
func (r *RenderCommand) render(ctx context.Context, assetPath, startStr, endStr string) (*RenderOutput, error) {
	asset, err := loadAsset(r.fs, assetPath)
	if err != nil {
		return nil, err
	}

	start, end, err := parseDateRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	batches, err := executor.SplitIntervals(start, end, asset.GetSchedule(), asset.Materialization.BatchSize)
	if err != nil {
		return nil, err
	}

	client := &engine.RecordingClient{}
	adapter, err := engine.NewAdapter(asset.GetDialect(), client)
	if err != nil {
		return nil, err
	}

	runner := executor.NewBatchRunner(adapter, zap.NewNop().Sugar())
	runner.Output = nil
	runner.Concurrency = 1

	if _, err := runner.Run(ctx, asset, batches); err != nil {
		return nil, err
	}

	statements := client.Statements()
	setupCount := len(statements) - len(batches)

	out := &RenderOutput{
		Asset:   asset.Name,
		Dialect: adapter.Dialect.Name,
		Setup:   statements[:setupCount],
		Batches: make([]RenderedBatch, len(batches)),
	}
	for i, b := range batches {
		out.Batches[i] = RenderedBatch{Batch: b, Statement: statements[setupCount+i]}
	}

	return out, nil
}

func batchPlanTable(batches []RenderedBatch) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Start", "End (exclusive)", "Duration"})
	for _, b := range batches {
		t.AppendRow(table.Row{
			b.Index + 1,
			b.Start.Format(time.DateTime),
			b.End.Format(time.DateTime),
			b.End.Sub(b.Start).String(),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	return t.Render()
}

func highlightCode(code string, language string) string {
	o, err := os.Stdout.Stat()
	if err != nil {
		return code
	}

	if (o.Mode() & os.ModeCharDevice) != os.ModeCharDevice {
		return code
	}

	b := new(strings.Builder)
	err = quick.Highlight(b, code, language, "terminal16m", "monokai")
	if err != nil {
		errorPrinter.Printf("Failed to highlight the query: %v\n", err.Error())
		return code
	}

	return b.String()
}
