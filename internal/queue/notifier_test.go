package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

func waitingLine(n int) []*domain.QueueEntry {
	line := make([]*domain.QueueEntry, 0, n)
	for i := 1; i <= n; i++ {
		line = append(line, &domain.QueueEntry{
			ID:        fmt.Sprintf("e%d", i),
			PatientID: fmt.Sprintf("patient-%d", i),
			Status:    domain.VisitWaiting,
			Position:  i,
		})
	}
	return line
}

func TestSweepMarksEntriesAtOrBelowThreshold(t *testing.T) {
	notifier := NewNotifier(3)
	line := waitingLine(5)

	notified := notifier.Sweep(line)
	require.Len(t, notified, 3)
	assert.Equal(t, "e1", notified[0].ID)
	assert.Equal(t, "e2", notified[1].ID)
	assert.Equal(t, "e3", notified[2].ID)

	for i, entry := range line {
		if i < 3 {
			assert.True(t, entry.NotificationSent)
			assert.NotNil(t, entry.NotificationSentAt)
		} else {
			assert.False(t, entry.NotificationSent)
			assert.Nil(t, entry.NotificationSentAt)
		}
	}
}

func TestSweepIsMonotonic(t *testing.T) {
	notifier := NewNotifier(3)
	line := waitingLine(5)

	require.Len(t, notifier.Sweep(line), 3)
	assert.Empty(t, notifier.Sweep(line))

	// A new entry crossing the band gets marked exactly once.
	line[3].Position = 3
	notified := notifier.Sweep(line)
	require.Len(t, notified, 1)
	assert.Equal(t, "e4", notified[0].ID)
	assert.Empty(t, notifier.Sweep(line))
}

func TestSweepIgnoresUnpositionedEntries(t *testing.T) {
	notifier := NewNotifier(3)
	entry := &domain.QueueEntry{ID: "e1", Status: domain.VisitWaiting, Position: 0}

	assert.Empty(t, notifier.Sweep([]*domain.QueueEntry{entry}))
	assert.False(t, entry.NotificationSent)
}

func TestNewNotifierDefaultThreshold(t *testing.T) {
	notifier := NewNotifier(0)
	assert.Equal(t, DefaultNotificationThreshold, notifier.Threshold)
}
