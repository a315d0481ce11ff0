package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateFrontOfLine(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	est := NewEstimator(15)
	est.Now = func() time.Time { return now }

	wait, callTime := est.Estimate(1, nil)
	assert.Equal(t, 0, wait)
	assert.Equal(t, now, callTime)
}

func TestEstimateScalesWithPosition(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	est := NewEstimator(15)
	est.Now = func() time.Time { return now }

	avg := 20
	wait, callTime := est.Estimate(4, &avg)
	assert.Equal(t, 60, wait)
	assert.Equal(t, now.Add(60*time.Minute), callTime)
}

func TestEstimateFallsBackToDefault(t *testing.T) {
	est := NewEstimator(15)

	wait, _ := est.Estimate(3, nil)
	assert.Equal(t, 30, wait)

	zero := 0
	wait, _ = est.Estimate(3, &zero)
	assert.Equal(t, 30, wait)
}

func TestEstimateNeverNegative(t *testing.T) {
	est := NewEstimator(15)
	wait, _ := est.Estimate(0, nil)
	assert.Equal(t, 0, wait)
}

func TestNewEstimatorDefault(t *testing.T) {
	est := NewEstimator(0)
	require.Equal(t, DefaultConsultationMinutes, est.DefaultMinutes)
}

func TestFormatWaitTime(t *testing.T) {
	assert.Equal(t, "0 minutes", FormatWaitTime(0))
	assert.Equal(t, "45 minutes", FormatWaitTime(45))
	assert.Equal(t, "1 hour", FormatWaitTime(60))
	assert.Equal(t, "1 hour 5 minutes", FormatWaitTime(65))
	assert.Equal(t, "2 hours", FormatWaitTime(120))
	assert.Equal(t, "2 hours 30 minutes", FormatWaitTime(150))
}
