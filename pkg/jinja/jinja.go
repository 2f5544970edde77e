package jinja

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/date"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/pkg/errors"
)

type Renderer struct {
	context         *exec.Context
	queryRenderLock *sync.Mutex
}

func init() { //nolint: gochecknoinits
	gonja.DefaultConfig.StrictUndefined = true
}

var (
	missingVariableRegex = regexp.MustCompile(`name\s+"([^"]+)"`)
	locationRegex        = regexp.MustCompile(`\(Line: \d+ Col: \d+, near ".*?"\)`)
)

type Context map[string]any

func NewRenderer(context Context) *Renderer {
	return &Renderer{
		context:         exec.NewContext(context),
		queryRenderLock: &sync.Mutex{},
	}
}

// BatchContext describes one batch of a time range run. End is exclusive.
type BatchContext struct {
	Start         time.Time
	End           time.Time
	ExecutionTime time.Time
	RuntimeStage  string
	RunID         string
	AssetName     string
}

// NewRendererForBatch exposes the batch window to the query. end_* variables carry the
// inclusive end of the window, so `ts BETWEEN start_ts AND end_ts` covers it exactly.
func NewRendererForBatch(b BatchContext) *Renderer {
	start := b.Start.UTC()
	_, end := date.MakeInclusive(start, b.End.UTC(), time.Microsecond)
	execTime := b.ExecutionTime.UTC()

	return NewRenderer(Context{
		"start_date":          start.Format("2006-01-02"),
		"start_ds":            date.FormatDS(start),
		"start_date_nodash":   start.Format("20060102"),
		"start_datetime":      start.Format("2006-01-02T15:04:05"),
		"start_timestamp":     start.Format("2006-01-02T15:04:05.000000Z07:00"),
		"start_ts":            date.FormatTS(start),
		"end_date":            end.Format("2006-01-02"),
		"end_ds":              date.FormatDS(end),
		"end_date_nodash":     end.Format("20060102"),
		"end_datetime":        end.Format("2006-01-02T15:04:05"),
		"end_timestamp":       end.Format("2006-01-02T15:04:05.000000Z07:00"),
		"end_ts":              date.FormatTS(end),
		"execution_date":      execTime.Format("2006-01-02"),
		"execution_ts":        date.FormatTS(execTime),
		"execution_timestamp": execTime.Format("2006-01-02T15:04:05.000000Z07:00"),
		"runtime_stage":       b.RuntimeStage,
		"run_id":              b.RunID,
		"this":                b.AssetName,
	})
}

func (r *Renderer) Render(query string) (string, error) {
	r.queryRenderLock.Lock()

	tpl, err := gonja.FromString(query)
	if err != nil {
		r.queryRenderLock.Unlock()
		customError := findParserErrorType(err)
		if customError == "" {
			return "", errors.Wrap(err, "failed to parse the query template")
		}

		return "", errors.New(customError)
	}
	r.queryRenderLock.Unlock()

	out, err := tpl.ExecuteToString(r.context)
	if err != nil {
		customError := findRenderErrorType(err)
		if customError == "" {
			return "", errors.Wrap(err, "failed to render the query template")
		}

		return "", errors.New(customError)
	}

	return out, nil
}

func findRenderErrorType(err error) string {
	message := err.Error()
	errorBits := strings.Split(message, ": ")
	innermostErr := errorBits[len(errorBits)-1]

	if strings.HasPrefix(innermostErr, "filter '") && strings.HasSuffix(innermostErr, "' not found") {
		return innermostErr
	} else if strings.HasPrefix(innermostErr, "Unable to evaluate name ") {
		match := missingVariableRegex.FindStringSubmatch(innermostErr)
		if len(match) == 2 {
			return "missing variable '" + match[1] + "'"
		}

		return innermostErr
	}

	return ""
}

func findParserErrorType(err error) string {
	message := err.Error()

	if strings.Contains(message, "Unexpected EOF, expected tag else or endfor") {
		match := locationRegex.FindString(message)
		return "missing 'endfor' at " + match
	} else if strings.Contains(message, "Unexpected EOF, expected tag elif or else or endif") {
		match := locationRegex.FindString(message)
		return "missing end of the 'if' condition at " + match + ", did you forget to add 'endif'?"
	}

	return ""
}
