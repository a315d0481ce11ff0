package queue

import (
	"fmt"
	"time"
)

// DefaultConsultationMinutes is the fallback average when a doctor has no
// configured consultation time.
const DefaultConsultationMinutes = 15

// Estimator derives wait-time estimates from queue positions. It holds no
// mutable state; Now is injectable for tests and defaults to time.Now.
type Estimator struct {
	DefaultMinutes int
	Now            func() time.Time
}

// NewEstimator builds an estimator with the given default average
// consultation time in minutes.
func NewEstimator(defaultMinutes int) *Estimator {
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultConsultationMinutes
	}
	return &Estimator{DefaultMinutes: defaultMinutes, Now: time.Now}
}

// Estimate maps a 1-based WAITING position and an optional average
// consultation time to estimated wait minutes and the estimated call time.
// A nil or non-positive average falls back to the configured default.
func (e *Estimator) Estimate(position int, avgMinutes *int) (int, time.Time) {
	effective := e.DefaultMinutes
	if avgMinutes != nil && *avgMinutes > 0 {
		effective = *avgMinutes
	}
	wait := (position - 1) * effective
	if wait < 0 {
		wait = 0
	}
	return wait, e.Now().Add(time.Duration(wait) * time.Minute)
}

// FormatWaitTime renders a minute count for display ("45 minutes",
// "1 hour 5 minutes").
func FormatWaitTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	unit := "hours"
	if hours == 1 {
		unit = "hour"
	}
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d minutes", hours, unit, mins)
}
