package utils

import (
	"fmt"
	"time"
)

// DefaultPeriod is applied when a filter set carries no period token.
const DefaultPeriod = "1M"

var periodDurations = map[string]time.Duration{
	"1d": 24 * time.Hour,
	"7d": 7 * 24 * time.Hour,
	"1M": 30 * 24 * time.Hour,
	"3M": 90 * 24 * time.Hour,
	"1y": 365 * 24 * time.Hour,
}

// ValidPeriod reports whether token is one of the supported relative-time tokens.
func ValidPeriod(token string) bool {
	_, ok := periodDurations[token]
	return ok
}

// PeriodWindow returns the start of the relative window ending at ref.
func PeriodWindow(token string, ref time.Time) (time.Time, error) {
	d, ok := periodDurations[token]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown period token: %s", token)
	}
	return ref.Add(-d), nil
}
