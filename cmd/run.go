package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bruin-data/timerange-merge/pkg/config"
	"github.com/bruin-data/timerange-merge/pkg/engine"
	"github.com/bruin-data/timerange-merge/pkg/executor"
	"github.com/bruin-data/timerange-merge/pkg/helpers"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type RunOptions struct {
	AssetPath   string
	StartDate   string
	EndDate     string
	Environment string
	ConfigFile  string
	Workers     int
	Force       bool
	SummaryFile string
	Output      string
}

func Run(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "merge the batches of an asset into its table for the given date range",
		ArgsUsage: "[path to the asset]",
		Flags: []cli.Flag{
			startDateFlag,
			endDateFlag,
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the environment to use",
			},
			&cli.StringFlag{
				Name:  "config-file",
				Usage: "the path to the .bruin.yml file",
				Value: defaultConfigFile,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of batches to merge in parallel after the first one, overrides batch_concurrency of the asset",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "do not ask for confirmation in a production environment",
			},
			&cli.StringFlag{
				Name:  "summary-file",
				Usage: "write the run summary as JSON to this file",
			},
			outputFlag,
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			r := &RunCommand{
				fs:     fs,
				writer: c.App.Writer,
				stdin:  os.Stdin,
				logger: makeLogger(*isDebug),
			}

			return r.Run(c.Context, RunOptions{
				AssetPath:   c.Args().Get(0),
				StartDate:   c.String("start-date"),
				EndDate:     c.String("end-date"),
				Environment: c.String("environment"),
				ConfigFile:  c.String("config-file"),
				Workers:     c.Int("workers"),
				Force:       c.Bool("force"),
				SummaryFile: c.String("summary-file"),
				Output:      c.String("output"),
			})
		},
	}
}

type RunCommand struct {
	fs     afero.Fs
	writer io.Writer
	stdin  io.ReadCloser
	logger *zap.SugaredLogger
}

func (r *RunCommand) Run(ctx context.Context, opts RunOptions) error {
	if opts.AssetPath == "" {
		printError(r.writer, errors.New("missing asset path"), opts.Output, "Please give the path of an asset")
		return cli.Exit("", 1)
	}

	asset, err := loadAsset(r.fs, opts.AssetPath)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to read the asset")
		return cli.Exit("", 1)
	}

	start, end, err := parseDateRange(opts.StartDate, opts.EndDate)
	if err != nil {
		printError(r.writer, err, opts.Output, "Invalid date range")
		return cli.Exit("", 1)
	}
	r.logger.Debugw("resolved the run window", "start", start, "end", end)

	batches, err := executor.SplitIntervals(start, end, asset.GetSchedule(), asset.Materialization.BatchSize)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to split the date range into batches")
		return cli.Exit("", 1)
	}

	configFile, err := filepath.Abs(opts.ConfigFile)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to resolve the config file path")
		return cli.Exit("", 1)
	}

	if err := config.LoadDotEnv(r.fs, configFile); err != nil {
		printError(r.writer, err, opts.Output, "Failed to load the .env file")
		return cli.Exit("", 1)
	}

	cfg, err := config.LoadOrCreate(r.fs, configFile)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to load the config file at "+configFile)
		return cli.Exit("", 1)
	}

	if err := switchEnvironment(opts.Environment, opts.Force, cfg, r.stdin); err != nil {
		return err
	}

	manager := config.NewManager(cfg)
	defer func() {
		if err := manager.Close(); err != nil {
			r.logger.Debugw("failed to close the connections", "error", err)
		}
	}()

	connName, err := config.GetConnectionNameForAsset(asset)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to find the connection")
		return cli.Exit("", 1)
	}

	conn, err := manager.GetConnection(ctx, connName)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to create the connection")
		return cli.Exit("", 1)
	}

	if err := conn.Ping(ctx); err != nil {
		printError(r.writer, err, opts.Output, fmt.Sprintf("Failed to connect to '%s'", connName))
		return cli.Exit("", 1)
	}

	adapter, err := engine.NewAdapter(asset.GetDialect(), conn)
	if err != nil {
		printError(r.writer, err, opts.Output, "Failed to prepare the engine")
		return cli.Exit("", 1)
	}

	runner := executor.NewBatchRunner(adapter, r.logger)
	runner.Concurrency = opts.Workers
	runner.Output = r.writer
	if opts.Output == "json" {
		runner.Output = nil
	} else {
		infoPrinter.Fprintf(r.writer, "Running '%s' in %d batch(es) on '%s'\n\n", asset.Name, len(batches), connName)
	}

	summary, runErr := runner.Run(ctx, asset, batches)
	if summary == nil {
		printError(r.writer, runErr, opts.Output, "Failed to run the asset")
		return cli.Exit("", 1)
	}

	if opts.SummaryFile != "" {
		if err := helpers.WriteJSONToFile(r.fs, summary, opts.SummaryFile); err != nil {
			printError(r.writer, err, opts.Output, "Failed to write the run summary")
			return cli.Exit("", 1)
		}
	}

	if opts.Output == "json" {
		js, err := json.Marshal(summary)
		if err != nil {
			return errors.Wrap(err, "failed to marshal the output")
		}
		fmt.Fprintln(r.writer, string(js))
	} else {
		fmt.Fprintln(r.writer)
		fmt.Fprintln(r.writer, summary.Table(color.NoColor))
	}

	if runErr != nil {
		if opts.Output != "json" {
			errorPrinter.Fprintf(r.writer, "\n%d of %d batch(es) failed:\n%v\n", len(summary.Failed()), len(summary.Results), runErr)
		}
		return cli.Exit("", 1)
	}

	if opts.Output != "json" {
		r.printRowCount(ctx, conn, adapter, asset.Name)
	}
	return nil
}

func (r *RunCommand) printRowCount(ctx context.Context, conn config.Connection, adapter *engine.Adapter, table string) {
	res, err := conn.Select(ctx, &query.Query{Query: "SELECT COUNT(*) FROM " + adapter.Dialect.QuoteTable(table)})
	if err != nil {
		r.logger.Debugw("failed to count the rows", "table", table, "error", err)
		warningPrinter.Fprintf(r.writer, "\nCould not count the rows of '%s'.\n", table)
		return
	}

	count, err := helpers.CastResultToInteger(res)
	if err != nil {
		r.logger.Debugw("unexpected row count result", "table", table, "error", err)
		return
	}

	successPrinter.Fprintf(r.writer, "\n'%s' has %d row(s).\n", table, count)
}
