package cron

import (
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Schedule yields the delay until the next fire, computed fresh from now.
// Implementations must be safe for repeated calls; the scheduler re-arms
// from "now" after every tick (drift-free, no catch-up on missed ticks).
type Schedule interface {
	NextInterval(now time.Time) time.Duration
}

// standardParser accepts crontab.guru-style specs plus descriptors
// like "@hourly" and "@every 55m".
var standardParser = robfig.NewParser(
	robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor,
)

type standardSchedule struct {
	spec  string
	sched robfig.Schedule
}

func (s *standardSchedule) NextInterval(now time.Time) time.Duration {
	return s.sched.Next(now).Sub(now)
}

func (s *standardSchedule) String() string { return s.spec }

// ParseSchedule parses a schedule string into a Schedule.
//
// Supported forms:
//   - restricted 5-field dialect (default): "*/10 * * * *", "30 4 * * *"
//   - standard cron, forced with a "cron:" prefix or a leading "@":
//     "cron:0 0 * * 1-5", "@hourly", "@every 90s"
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("cron: schedule required")
	}

	if expr, ok := strings.CutPrefix(s, "cron:"); ok {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			return nil, fmt.Errorf("cron: schedule required after 'cron:'")
		}
		return parseStandard(expr)
	}
	if strings.HasPrefix(s, "@") {
		return parseStandard(s)
	}

	return NewCronTask(s)
}

func parseStandard(expr string) (Schedule, error) {
	sched, err := standardParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return &standardSchedule{spec: expr, sched: sched}, nil
}
