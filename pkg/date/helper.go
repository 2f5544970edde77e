package date

import (
	"errors"
	"strings"
	"time"
)

const (
	DSLayout   = "2006-01-02"
	TSLayout   = "2006-01-02 15:04:05"
	TSTZLayout = "2006-01-02 15:04:05-07:00"
)

func ParseTime(input string) (time.Time, error) {
	t, _, err := ParseTimeWithFormat(input)
	return t, err
}

func ParseTimeWithFormat(input string) (time.Time, string, error) {
	allowedFormats := []string{
		"2006-01-02 15:04:05.000000Z07:00",
		"2006-01-02T15:04:05.000000Z07:00",
		"2006-01-02 15:04:05.000000",
		"2006-01-02T15:04:05.000000",
		"2006-01-02 15:04:05.000Z07:00",
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02 15:04:05.000",
		"2006-01-02T15:04:05.000",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}

	for _, format := range allowedFormats {
		t, err := time.Parse(format, input)
		if err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", errors.New("invalid datetime format")
}

var pythonToGolang = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%f", "000000",
	"%z", "-0700",
	"%Z", "MST",
	"%a", "Mon",
	"%A", "Monday",
	"%b", "Jan",
	"%B", "January",
	"%%", "%",
)

// ConvertPythonDateFormatToGolang turns a strftime style layout, the way time_column
// formats are written, into a Go reference layout.
func ConvertPythonDateFormatToGolang(pythonFormat string) string {
	return pythonToGolang.Replace(pythonFormat)
}

// MakeInclusive converts the exclusive batch end into the last instant that still belongs
// to the window, one tick below end.
func MakeInclusive(start, end time.Time, tick time.Duration) (time.Time, time.Time) {
	if tick <= 0 {
		tick = time.Microsecond
	}

	return start, end.Add(-tick)
}

// FormatTS renders a naive timestamp, only carrying the fractional part when there is one.
func FormatTS(t time.Time) string {
	return t.UTC().Format(TSLayout) + fraction(t.UTC())
}

// FormatTSTZ renders a UTC timestamp with an explicit offset, e.g. 2020-01-02 23:59:59.999999+00:00.
func FormatTSTZ(t time.Time) string {
	u := t.UTC()
	return u.Format(TSLayout) + fraction(u) + u.Format("-07:00")
}

func FormatDS(t time.Time) string {
	return t.UTC().Format(DSLayout)
}

// HasFraction reports whether t carries sub-second precision.
func HasFraction(t time.Time) bool {
	return t.Nanosecond() != 0
}

func fraction(t time.Time) string {
	ns := t.Nanosecond()
	if ns == 0 {
		return ""
	}
	if ns%1000 == 0 {
		return t.Format(".000000")
	}
	if ns%100 == 0 {
		return t.Format(".0000000")
	}

	return t.Format(".000000000")
}
