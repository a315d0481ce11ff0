package queue

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// DefaultNotificationThreshold is the position at or below which a
// patient is told they are almost up.
const DefaultNotificationThreshold = 3

// Notifier decides, after a ledger mutation, which WAITING entries
// crossed the almost-up threshold and should be signaled. The sent flag
// is monotonic: an entry is marked exactly once, no matter how many
// later mutations re-evaluate it.
type Notifier struct {
	Threshold int
	Now       func() time.Time
}

// NewNotifier builds a notifier with the given position threshold.
func NewNotifier(threshold int) *Notifier {
	if threshold <= 0 {
		threshold = DefaultNotificationThreshold
	}
	return &Notifier{Threshold: threshold, Now: time.Now}
}

// Sweep marks unsent entries at or below the threshold and returns
// snapshots of the entries to signal. It mutates the live entries, so the
// caller must hold the owning scope's lock.
func (n *Notifier) Sweep(waiting []*domain.QueueEntry) []domain.QueueEntry {
	var toNotify []domain.QueueEntry
	for _, entry := range waiting {
		if entry.Position == 0 || entry.Position > n.Threshold {
			continue
		}
		if entry.NotificationSent {
			continue
		}
		now := n.Now()
		entry.NotificationSent = true
		entry.NotificationSentAt = &now
		toNotify = append(toNotify, *entry)
	}
	return toNotify
}
