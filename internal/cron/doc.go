// Package cron computes the interval until a schedule's next fire time.
//
// Two dialects are supported behind the Schedule interface:
//   - the restricted 5-field dialect (CronTask), where the minute field also
//     accepts a "*/N" step meaning "every N seconds"
//   - standard cron via robfig/cron (forced with a "cron:" prefix or a
//     leading "@" descriptor such as "@hourly" / "@every 55m")
package cron
