package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/materialization"
	"github.com/bruin-data/timerange-merge/pkg/path"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

type ValidationError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type DirectoryValidation struct {
	Assets  []*ValidationResult `json:"assets"`
	Skipped []string            `json:"skipped"`
	Errors  []ValidationError   `json:"errors"`
}

type ValidationResult struct {
	Asset      string   `json:"asset"`
	Dialect    string   `json:"dialect"`
	TimeColumn string   `json:"time_column"`
	TimeFormat string   `json:"time_column_format,omitempty"`
	PrimaryKey []string `json:"primary_key"`
}

func Validate() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check the time_column and primary_key of an incremental by time range asset",
		ArgsUsage: "[path to the asset or a directory of assets]",
		Flags:     []cli.Flag{outputFlag},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			cmd := &ValidateCommand{fs: fs, writer: c.App.Writer}
			return cmd.Run(c.Args().Get(0), c.String("output"))
		},
	}
}

type ValidateCommand struct {
	fs     afero.Fs
	writer io.Writer
}

func (v *ValidateCommand) Run(assetPath, output string) error {
	if assetPath == "" {
		printError(v.writer, errors.New("missing asset path"), output, "Please give the path of an asset")
		return cli.Exit("", 1)
	}

	if path.DirExists(v.fs, assetPath) {
		return v.runDirectory(assetPath, output)
	}

	res, err := validateAsset(v.fs, assetPath)
	if err != nil {
		printError(v.writer, err, output, "Validation failed")
		return cli.Exit("", 1)
	}

	if output == "json" {
		js, err := json.Marshal(res)
		if err != nil {
			return errors.Wrap(err, "failed to marshal the output")
		}
		fmt.Fprintln(v.writer, string(js))
		return nil
	}

	printSuccessForOutput(v.writer, output, fmt.Sprintf("Asset '%s' is valid.", res.Asset))
	fmt.Fprintf(v.writer, "  time column: %s\n", res.TimeColumn)
	if res.TimeFormat != "" {
		fmt.Fprintf(v.writer, "  time column format: %s\n", res.TimeFormat)
	}
	fmt.Fprintf(v.writer, "  primary key: %v\n", res.PrimaryKey)
	return nil
}

func (v *ValidateCommand) runDirectory(dir, output string) error {
	res, err := validateDirectory(v.fs, dir)
	if err != nil {
		printError(v.writer, err, output, "Failed to read the assets")
		return cli.Exit("", 1)
	}

	if output == "json" {
		js, err := json.Marshal(res)
		if err != nil {
			return errors.Wrap(err, "failed to marshal the output")
		}
		fmt.Fprintln(v.writer, string(js))
	} else {
		for _, a := range res.Assets {
			successPrinter.Fprintf(v.writer, "  ✓ %s\n", a.Asset)
		}
		for _, e := range res.Errors {
			errorPrinter.Fprintf(v.writer, "  ✗ %s: %s\n", e.Path, e.Error)
		}
		fmt.Fprintln(v.writer, faint(fmt.Sprintf("\n%d valid, %d invalid, %d skipped", len(res.Assets), len(res.Errors), len(res.Skipped))))
	}

	if len(res.Errors) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// validateDirectory checks every asset under dir that uses the strategy. SQL files that
// serve as the query of a YAML definition are not assets on their own.
func validateDirectory(fs afero.Fs, dir string) (*DirectoryValidation, error) {
	files, err := path.FindFilesWithSuffixes(fs, dir, append([]string{".sql"}, assetDefinitionSuffixes...))
	if err != nil {
		return nil, err
	}

	res := &DirectoryValidation{Assets: []*ValidationResult{}, Skipped: []string{}, Errors: []ValidationError{}}
	assets := make(map[string]*pipeline.Asset, len(files))
	runFiles := map[string]bool{}
	for _, file := range files {
		if !strings.HasSuffix(file, ".sql") {
			asset, err := loadAsset(fs, file)
			if err != nil {
				res.Errors = append(res.Errors, ValidationError{Path: file, Error: err.Error()})
				continue
			}
			assets[file] = asset
			runFiles[asset.ExecutableFile.Path] = true
		}
	}

	for _, file := range files {
		if _, ok := assets[file]; ok || !strings.HasSuffix(file, ".sql") {
			continue
		}
		abs, err := filepath.Abs(file)
		if err == nil && runFiles[abs] {
			continue
		}

		asset, err := loadAsset(fs, file)
		if err != nil {
			res.Errors = append(res.Errors, ValidationError{Path: file, Error: err.Error()})
			continue
		}
		assets[file] = asset
	}

	for _, file := range files {
		asset, ok := assets[file]
		if !ok {
			continue
		}
		if !asset.Materialization.UsesTimeRangeMerge() {
			res.Skipped = append(res.Skipped, file)
			continue
		}

		props, err := materialization.Validate(asset)
		if err == nil {
			var described *ValidationResult
			described, err = describeProperties(asset, props)
			if err == nil {
				res.Assets = append(res.Assets, described)
				continue
			}
		}
		res.Errors = append(res.Errors, ValidationError{Path: file, Error: err.Error()})
	}

	return res, nil
}

func validateAsset(fs afero.Fs, assetPath string) (*ValidationResult, error) {
	asset, err := loadAsset(fs, assetPath)
	if err != nil {
		return nil, err
	}

	if !asset.Materialization.UsesTimeRangeMerge() {
		return nil, fmt.Errorf("asset '%s' is not materialized with the '%s' strategy", asset.Name, materialization.Name)
	}
	if asset.GetDialect() == "" {
		return nil, fmt.Errorf("asset '%s' has the unsupported type '%s'", asset.Name, asset.Type)
	}

	props, err := materialization.Validate(asset)
	if err != nil {
		return nil, err
	}

	return describeProperties(asset, props)
}

func describeProperties(asset *pipeline.Asset, props *materialization.Properties) (*ValidationResult, error) {
	d, err := dialect.Get(asset.GetDialect())
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(props.PrimaryKey))
	for i, k := range props.PrimaryKey {
		keys[i] = sqlexpr.Render(k, d)
	}

	return &ValidationResult{
		Asset:      asset.Name,
		Dialect:    d.Name,
		TimeColumn: sqlexpr.Render(props.TimeColumn.Column, d),
		TimeFormat: props.TimeColumn.Format,
		PrimaryKey: keys,
	}, nil
}
