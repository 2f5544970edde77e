package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/date"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

const defaultConfigFile = ".bruin.yml"

var (
	fs = afero.NewCacheOnReadFs(afero.NewOsFs(), afero.NewMemMapFs(), 0)

	faint          = color.New(color.Faint).SprintFunc()
	infoPrinter    = color.New(color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	warningPrinter = color.New(color.FgYellow, color.Bold)
	successPrinter = color.New(color.FgGreen, color.Bold)

	assetDefinitionSuffixes = []string{".asset.yml", ".asset.yaml"}
)

var (
	yesterday        = time.Now().UTC().AddDate(0, 0, -1)
	defaultStartDate = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
	defaultEndDate   = defaultStartDate.AddDate(0, 0, 1)

	startDateFlag = &cli.StringFlag{
		Name:        "start-date",
		Usage:       "the start of the range to run for in YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or YYYY-MM-DD HH:MM:SS.ffffff format",
		DefaultText: "beginning of yesterday, e.g. " + defaultStartDate.Format("2006-01-02 15:04:05.000000"),
		Value:       defaultStartDate.Format("2006-01-02 15:04:05.000000"),
		EnvVars:     []string{"BRUIN_START_DATE"},
	}
	endDateFlag = &cli.StringFlag{
		Name:        "end-date",
		Usage:       "the exclusive end of the range to run for, in the same formats as --start-date",
		DefaultText: "beginning of today, e.g. " + defaultEndDate.Format("2006-01-02 15:04:05.000000"),
		Value:       defaultEndDate.Format("2006-01-02 15:04:05.000000"),
		EnvVars:     []string{"BRUIN_END_DATE"},
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "the output type, possible values are: plain, json",
	}
)

// loadAsset reads a SQL asset with an embedded definition, or a YAML definition pointing
// at its SQL file.
func loadAsset(fs afero.Fs, assetPath string) (*pipeline.Asset, error) {
	creator := pipeline.CreateTaskFromFileComments(fs)
	for _, suffix := range assetDefinitionSuffixes {
		if strings.HasSuffix(assetPath, suffix) {
			creator = pipeline.CreateTaskFromYamlDefinition(fs)
		}
	}

	asset, err := creator(assetPath)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("'%s' is not an asset, give a .sql file or a file ending with %s", assetPath, strings.Join(assetDefinitionSuffixes, " or "))
	}

	return asset, nil
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := date.ParseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date '%s', use the YYYY-MM-DD or YYYY-MM-DD HH:MM:SS formats", startStr)
	}

	end, err := date.ParseTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date '%s', use the YYYY-MM-DD or YYYY-MM-DD HH:MM:SS formats", endStr)
	}

	return start, end, nil
}
