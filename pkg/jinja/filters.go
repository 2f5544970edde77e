package jinja

import (
	"strconv"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/date"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/pkg/errors"
)

var Filters *exec.FilterSet

func init() { //nolint:gochecknoinits
	Filters = gonja.DefaultEnvironment.Filters

	filters := map[string]exec.FilterFunction{
		"add_days":    shiftBy("add_days", func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }),
		"date_add":    shiftBy("date_add", func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }),
		"add_hours":   shiftBy("add_hours", func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Hour) }),
		"date_format": formatDate,
		// to_ts and to_tstz render a bound the same way the merge window filter does
		"to_ts":   asLiteral("to_ts", date.FormatTS),
		"to_tstz": asLiteral("to_tstz", date.FormatTSTZ),
	}

	for name, fn := range filters {
		if err := Filters.Register(name, fn); err != nil {
			panic(err)
		}
	}
}

// shiftBy moves a date or timestamp by an integer amount and keeps the layout it came in.
func shiftBy(name string, shift func(time.Time, int) time.Time) exec.FilterFunction {
	return func(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
		if in.IsError() {
			return in
		}
		if p := params.ExpectArgs(1); p.IsError() {
			return exec.AsValue(errors.Wrapf(p, "'%s' accepts only a single argument", name))
		}

		parsed, format, err := date.ParseTimeWithFormat(in.String())
		if err != nil {
			return exec.AsValue(errors.Errorf("invalid date format for %s, '%s' given", name, in.String()))
		}

		amount := params.Args[0].String()
		n, err := strconv.Atoi(amount)
		if err != nil {
			return exec.AsValue(errors.Errorf("invalid amount for %s, it must be a valid integer, '%s' given", name, amount))
		}

		return exec.AsValue(shift(parsed, n).Format(format))
	}
}

func asLiteral(name string, format func(time.Time) string) exec.FilterFunction {
	return func(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
		if in.IsError() {
			return in
		}
		if p := params.ExpectNothing(); p.IsError() {
			return exec.AsValue(errors.Wrapf(p, "'%s' does not accept arguments", name))
		}

		parsed, err := date.ParseTime(in.String())
		if err != nil {
			return exec.AsValue(errors.Errorf("invalid date format for %s, '%s' given", name, in.String()))
		}
		return exec.AsValue(format(parsed))
	}
}

func formatDate(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	if in.IsError() {
		return in
	}
	if p := params.ExpectArgs(1); p.IsError() {
		return exec.AsValue(errors.Wrap(p, "'date_format' accepts only a single argument"))
	}

	parsed, err := date.ParseTime(in.String())
	if err != nil {
		return exec.AsValue(errors.Errorf("invalid date format for date_format, '%s' given", in.String()))
	}

	return exec.AsValue(parsed.Format(date.ConvertPythonDateFormatToGolang(params.Args[0].String())))
}
