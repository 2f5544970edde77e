package executor

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@daily"

var scheduleAliases = map[string]string{
	"hourly":  "@hourly",
	"daily":   "@daily",
	"weekly":  "@weekly",
	"monthly": "@monthly",
	"yearly":  "@yearly",
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Batch is one [Start, End) window of a run.
type Batch struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b Batch) String() string {
	return b.Start.Format(time.DateTime) + " - " + b.End.Format(time.DateTime)
}

// SplitIntervals cuts [start, end) at the ticks of the schedule and groups batchSize
// intervals into one batch. A batchSize of 0 runs the whole range as a single batch.
func SplitIntervals(start, end time.Time, schedule string, batchSize int) ([]Batch, error) {
	if !start.Before(end) {
		return nil, errors.Errorf("start date '%s' must be before end date '%s'", start.Format(time.DateTime), end.Format(time.DateTime))
	}
	if batchSize < 0 {
		return nil, errors.Errorf("batch size cannot be negative, got %d", batchSize)
	}

	sched, err := parseSchedule(schedule)
	if err != nil {
		return nil, err
	}

	if batchSize == 0 {
		return []Batch{{Index: 0, Start: start, End: end}}, nil
	}

	boundaries := []time.Time{start}
	for next := sched.Next(start); !next.IsZero() && next.Before(end); next = sched.Next(next) {
		boundaries = append(boundaries, next)
	}
	boundaries = append(boundaries, end)

	intervals := len(boundaries) - 1
	batches := make([]Batch, 0, (intervals+batchSize-1)/batchSize)
	for i := 0; i < intervals; i += batchSize {
		j := min(i+batchSize, intervals)
		batches = append(batches, Batch{
			Index: len(batches),
			Start: boundaries[i],
			End:   boundaries[j],
		})
	}

	return batches, nil
}

func parseSchedule(schedule string) (cron.Schedule, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if alias, ok := scheduleAliases[strings.ToLower(schedule)]; ok {
		schedule = alias
	}

	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule '%s'", schedule)
	}
	return sched, nil
}
