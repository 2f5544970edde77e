package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
)

type BatchStatus string

const (
	StatusSucceeded BatchStatus = "succeeded"
	StatusFailed    BatchStatus = "failed"
	StatusSkipped   BatchStatus = "skipped"
)

type BatchResult struct {
	Batch    Batch
	Status   BatchStatus
	Duration time.Duration
	Err      error
}

func (r BatchResult) MarshalJSON() ([]byte, error) {
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}

	return json.Marshal(struct {
		Batch      Batch       `json:"batch"`
		Status     BatchStatus `json:"status"`
		DurationMs int64       `json:"duration_ms"`
		Error      string      `json:"error,omitempty"`
	}{
		Batch:      r.Batch,
		Status:     r.Status,
		DurationMs: r.Duration.Milliseconds(),
		Error:      errMsg,
	})
}

type RunSummary struct {
	RunID         string        `json:"run_id"`
	Asset         string        `json:"asset"`
	ExecutionTime time.Time     `json:"execution_time"`
	Results       []BatchResult `json:"results"`
}

func (s *RunSummary) Failed() []BatchResult {
	return lo.Filter(s.Results, func(r BatchResult, _ int) bool {
		return r.Status == StatusFailed
	})
}

// Err joins the errors of the failed batches, each prefixed with its window.
func (s *RunSummary) Err() error {
	errs := lo.Map(s.Failed(), func(r BatchResult, _ int) error {
		return fmt.Errorf("batch %d [%s]: %w", r.Batch.Index+1, r.Batch, r.Err)
	})
	return errors.Join(errs...)
}

// Table renders the batches of the run, noColor drops the status colors.
func (s *RunSummary) Table(noColor bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{"#", "Start", "End", "Status", "Duration", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 12},
		{Number: 6, WidthMax: 80},
	})

	for _, r := range s.Results {
		status := string(r.Status)
		message := ""
		if r.Err != nil {
			message = r.Err.Error()
		}

		if !noColor {
			switch r.Status {
			case StatusSucceeded:
				status = color.New(color.FgGreen).Sprint(status)
			case StatusFailed:
				status = color.New(color.FgRed).Sprint(status)
				message = color.New(color.FgRed).Sprint(message)
			case StatusSkipped:
				status = color.New(color.Faint).Sprint(status)
			}
		}

		t.AppendRow(table.Row{
			r.Batch.Index + 1,
			r.Batch.Start.Format(time.DateTime),
			r.Batch.End.Format(time.DateTime),
			status,
			formatDuration(r.Duration),
			message,
		})
	}

	return t.Render()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
