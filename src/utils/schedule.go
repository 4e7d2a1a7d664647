package utils

import (
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule validates a five-field cron expression (minute, hour,
// day-of-month, month, day-of-week) with the standard range/step extensions.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}

// NextOccurrence computes the earliest instant strictly after ref that
// satisfies the expression. The underlying parser advances field-wise with
// carry, so sparse expressions (yearly schedules) stay bounded.
func NextOccurrence(expr string, ref time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(ref), nil
}
