package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronTask evaluates a restricted 5-field expression
// (minute hour day-of-month month day-of-week).
//
// Each field is either "*" (unconstrained) or a single numeric value; the
// minute field additionally accepts "*/N", meaning "every N seconds".
// The N-seconds reading is a deliberate simplification carried over from the
// system this dialect originates in, not standard cron.
type CronTask struct {
	expr string

	// -1 means unconstrained.
	minuteStep int // seconds; from "*/N" in the minute field
	minute     int
	hour       int
	dom        int
	month      int // 1..12
	weekday    int // 0 = Sunday
}

// NewCronTask parses expr.
func NewCronTask(expr string) (*CronTask, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron: expression %q must have 5 fields, got %d", expr, len(fields))
	}

	c := &CronTask{
		expr:       expr,
		minuteStep: -1,
		minute:     -1,
		hour:       -1,
		dom:        -1,
		month:      -1,
		weekday:    -1,
	}

	if step, ok := strings.CutPrefix(fields[0], "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("cron: invalid step %q in minute field", fields[0])
		}
		c.minuteStep = n
	} else if v, ok, err := numericField("minute", fields[0], 0, 59); err != nil {
		return nil, err
	} else if ok {
		c.minute = v
	}

	var err error
	if c.hour, err = parseField("hour", fields[1], 0, 23); err != nil {
		return nil, err
	}
	if c.dom, err = parseField("day-of-month", fields[2], 1, 31); err != nil {
		return nil, err
	}
	if c.month, err = parseField("month", fields[3], 1, 12); err != nil {
		return nil, err
	}
	if c.weekday, err = parseField("day-of-week", fields[4], 0, 6); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CronTask) String() string { return c.expr }

// NextInterval returns the time until the next fire, measured from now.
func (c *CronTask) NextInterval(now time.Time) time.Duration {
	next := now

	// Apply constraints field-by-field in fixed order. Each carry test compares
	// against the starting instant, not the partially adjusted one, and fields
	// are not re-validated against each other afterward.
	switch {
	case c.minuteStep >= 0:
		next = next.Add(time.Duration(c.minuteStep) * time.Second)
	case c.minute >= 0:
		next = withMinute(next, c.minute)
		if now.Minute() > c.minute {
			next = next.Add(time.Hour)
		}
	}

	if c.hour >= 0 {
		next = withHour(next, c.hour)
		if now.Hour() > c.hour {
			next = next.AddDate(0, 0, 1)
		}
	}

	if c.dom >= 0 {
		next = withDay(next, c.dom)
		if now.Day() > c.dom {
			next = next.AddDate(0, 1, 0)
		}
	}

	if c.month >= 0 {
		next = withMonth(next, time.Month(c.month))
		if int(now.Month()) > c.month {
			next = next.AddDate(1, 0, 0)
		}
	}

	if c.weekday >= 0 {
		// Same carry rule as the other fields: move within the current week,
		// carry one week only when the target weekday is already past.
		next = next.AddDate(0, 0, c.weekday-int(now.Weekday()))
		if int(now.Weekday()) > c.weekday {
			next = next.AddDate(0, 0, 7)
		}
	}

	return next.Sub(now)
}

func parseField(name, raw string, min, max int) (int, error) {
	v, ok, err := numericField(name, raw, min, max)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, nil
	}
	return v, nil
}

func numericField(name, raw string, min, max int) (int, bool, error) {
	if raw == "*" {
		return -1, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1, false, fmt.Errorf("cron: invalid %s field %q", name, raw)
	}
	if v < min || v > max {
		return -1, false, fmt.Errorf("cron: %s field %d out of range [%d,%d]", name, v, min, max)
	}
	return v, true, nil
}

// Component setters. Out-of-range results (e.g. day 31 in a 30-day month)
// are normalized by time.Date, rolling into the following month.

func withMinute(t time.Time, m int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, t.Location())
}

func withHour(t time.Time, h int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), h, t.Minute(), t.Second(), 0, t.Location())
}

func withDay(t time.Time, d int) time.Time {
	return time.Date(t.Year(), t.Month(), d, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func withMonth(t time.Time, m time.Month) time.Time {
	return time.Date(t.Year(), m, t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}
