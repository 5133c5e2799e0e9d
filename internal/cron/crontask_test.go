package cron

import (
	"testing"
	"time"
)

// Tuesday, 2026-03-10 14:30:00 UTC.
var testNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func TestCronTaskNextInterval(t *testing.T) {
	t.Parallel()

	at := func(year int, month time.Month, day, hour, min int) time.Duration {
		return time.Date(year, month, day, hour, min, 0, 0, time.UTC).Sub(testNow)
	}

	tests := []struct {
		name string
		expr string
		want time.Duration
	}{
		// "*/N" in the minute field means every N seconds, regardless of now.
		{name: "step seconds", expr: "*/10 * * * *", want: 10 * time.Second},
		{name: "step seconds odd", expr: "*/7 * * * *", want: 7 * time.Second},

		{name: "minute ahead", expr: "45 * * * *", want: 15 * time.Minute},
		{name: "minute passed carries hour", expr: "15 * * * *", want: 45 * time.Minute},

		{name: "hour ahead", expr: "* 16 * * *", want: at(2026, time.March, 10, 16, 30)},
		{name: "hour passed carries day", expr: "* 10 * * *", want: at(2026, time.March, 11, 10, 30)},

		{name: "day ahead", expr: "* * 20 * *", want: at(2026, time.March, 20, 14, 30)},
		{name: "day passed carries month", expr: "* * 5 * *", want: at(2026, time.April, 5, 14, 30)},

		{name: "month ahead", expr: "* * * 7 *", want: at(2026, time.July, 10, 14, 30)},
		{name: "month passed carries year", expr: "* * * 2 *", want: at(2027, time.February, 10, 14, 30)},

		// Weekday uses the same carry rule as the other fields: move within
		// the current week, carry a week only when the target is already past.
		{name: "weekday ahead", expr: "* * * * 4", want: at(2026, time.March, 12, 14, 30)},
		{name: "weekday passed carries week", expr: "* * * * 1", want: at(2026, time.March, 16, 14, 30)},
		{name: "weekday today", expr: "* * * * 2", want: 0},

		// Fields are applied in order without re-validation: day 31 set before
		// month 2 lands on Feb 31, which time.Date normalizes into March.
		{name: "day month boundary normalizes", expr: "0 0 31 2 *", want: time.Date(2027, time.March, 3, 0, 0, 0, 0, time.UTC).Sub(testNow)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCronTask(tt.expr)
			if err != nil {
				t.Fatalf("NewCronTask(%q) error: %v", tt.expr, err)
			}
			if got := c.NextInterval(testNow); got != tt.want {
				t.Fatalf("NextInterval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCronTaskStepIgnoresCurrentTime(t *testing.T) {
	t.Parallel()
	c, err := NewCronTask("*/10 * * * *")
	if err != nil {
		t.Fatalf("NewCronTask error: %v", err)
	}
	for _, now := range []time.Time{
		testNow,
		time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2030, time.June, 1, 0, 0, 0, 500, time.UTC),
	} {
		if got := c.NextInterval(now); got != 10*time.Second {
			t.Fatalf("NextInterval at %v = %v, want 10s", now, got)
		}
	}
}

func TestNewCronTaskInvalid(t *testing.T) {
	t.Parallel()
	for _, expr := range []string{
		"",
		"* * * *",
		"* * * * * *",
		"61 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"*/0 * * * *",
		"x * * * *",
	} {
		if _, err := NewCronTask(expr); err == nil {
			t.Fatalf("NewCronTask(%q) expected error", expr)
		}
	}
}

func TestParseScheduleDialects(t *testing.T) {
	t.Parallel()

	s, err := ParseSchedule("*/10 * * * *")
	if err != nil {
		t.Fatalf("ParseSchedule error: %v", err)
	}
	if _, ok := s.(*CronTask); !ok {
		t.Fatalf("default dialect = %T, want *CronTask", s)
	}

	s, err = ParseSchedule("@every 90s")
	if err != nil {
		t.Fatalf("ParseSchedule(@every) error: %v", err)
	}
	if got := s.NextInterval(testNow); got != 90*time.Second {
		t.Fatalf("NextInterval(@every 90s) = %v, want 90s", got)
	}

	s, err = ParseSchedule("cron:30 12 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule(cron:) error: %v", err)
	}
	want := time.Date(2026, time.March, 11, 12, 30, 0, 0, time.UTC).Sub(testNow)
	if got := s.NextInterval(testNow); got != want {
		t.Fatalf("NextInterval(cron:30 12 * * *) = %v, want %v", got, want)
	}

	for _, raw := range []string{"", "cron:", "cron:not a spec"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) expected error", raw)
		}
	}
}
