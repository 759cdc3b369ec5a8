package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	dayTimePattern     = regexp.MustCompile(`^\D*(\d{2})(\d{2})(\d{2})\D*$`)
	dayHourWindowRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

	errBadDayTime = errors.New("invalid day-time group")
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End minus Start. It is negative for inverted intervals.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Inverted reports whether End falls before Start.
func (i Interval) Inverted() bool { return i.End.Before(i.Start) }

// IsZero reports whether neither bound is set.
func (i Interval) IsZero() bool { return i.Start.IsZero() && i.End.IsZero() }

func (i Interval) String() string {
	return i.Start.Format(time.RFC3339) + "/" + i.End.Format(time.RFC3339)
}

// ParseDayTime resolves a DDhhmm group (surrounding non-digits such as an
// FM prefix or Z suffix are ignored) against reference. A day earlier than
// the reference day rolls into the following month; otherwise the result
// stays in the reference month.
func ParseDayTime(reference time.Time, value string) (time.Time, error) {
	m := dayTimePattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDayTime, value)
	}
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || hour > 24 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDayTime, value)
	}
	return resolveDay(reference, day, hour, minute), nil
}

// ParseDayHourInterval resolves a DDhh/DDhh window against reference. Each
// half is resolved independently, so the result may be inverted; callers
// decide how to treat that.
func ParseDayHourInterval(reference time.Time, value string) (Interval, error) {
	m := dayHourWindowRegex.FindStringSubmatch(value)
	if m == nil {
		return Interval{}, fmt.Errorf("%w: %q", errBadDayTime, value)
	}
	start, err := ParseDayTime(reference, m[1]+"00")
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseDayTime(reference, m[2]+"00")
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

// resolveDay relies on time.Date normalization, so hour 24 becomes midnight
// of the following day and month 13 becomes January of the next year.
func resolveDay(reference time.Time, day, hour, minute int) time.Time {
	ref := reference.UTC()
	month := ref.Month()
	if day < ref.Day() {
		month++
	}
	return time.Date(ref.Year(), month, day, hour, minute, 0, 0, time.UTC)
}
