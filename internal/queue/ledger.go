package queue

import (
	"github.com/mediconnect/clinic-queue/internal/domain"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// Ledger owns the ordered set of active entries for one dispensary and is
// the only authority allowed to assign or renumber positions. It performs
// no synchronization of its own: the coordinator's per-scope serialization
// point is the sole writer.
//
// WAITING entries hold contiguous positions 1..N in queue order. CALLED
// and IN_CONSULTATION entries stay in the active set for display and
// duplicate-join checks but are excluded from position numbering.
type Ledger struct {
	dispensaryID string
	capacity     int
	entries      []*domain.QueueEntry
	// avgMinutes pins the effective consultation average captured for
	// each entry at join time, keyed by entry id.
	avgMinutes map[string]*int
}

// NewLedger builds an empty ledger. A non-positive capacity means the
// line is unbounded.
func NewLedger(dispensaryID string, capacity int) *Ledger {
	return &Ledger{
		dispensaryID: dispensaryID,
		capacity:     capacity,
		avgMinutes:   make(map[string]*int),
	}
}

// Append admits an entry at the back of the WAITING line and returns its
// assigned position. Fails with CAPACITY_EXCEEDED when the line is full.
func (l *Ledger) Append(entry *domain.QueueEntry, avgMinutes *int) (int, error) {
	if l.capacity > 0 && l.waitingCount() >= l.capacity {
		return 0, apperrors.NewCapacityExceeded(l.dispensaryID, l.capacity)
	}
	l.entries = append(l.entries, entry)
	l.avgMinutes[entry.ID] = avgMinutes
	l.repack()
	return entry.Position, nil
}

// Remove takes an entry out of the active set and re-packs the remaining
// WAITING positions so they stay contiguous.
func (l *Ledger) Remove(entryID string) (*domain.QueueEntry, bool) {
	for i, entry := range l.entries {
		if entry.ID == entryID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			delete(l.avgMinutes, entryID)
			entry.Position = 0
			entry.DoctorPosition = 0
			l.repack()
			return entry, true
		}
	}
	return nil, false
}

// Reorder moves the WAITING entry at fromPosition to toPosition, shifting
// the intervening entries by one. Used for priority escalation.
func (l *Ledger) Reorder(fromPosition, toPosition int) error {
	waiting := l.waitingIndices()
	n := len(waiting)
	if fromPosition < 1 || fromPosition > n || toPosition < 1 || toPosition > n {
		return apperrors.NewValidationError("reorder position out of range", map[string]any{
			"from": fromPosition, "to": toPosition, "waiting": n,
		})
	}
	if fromPosition == toPosition {
		return nil
	}

	src := waiting[fromPosition-1]
	moved := l.entries[src]
	l.entries = append(l.entries[:src], l.entries[src+1:]...)

	// Index of the target slot among the remaining WAITING entries.
	waiting = l.waitingIndices()
	var dst int
	if toPosition-1 < len(waiting) {
		dst = waiting[toPosition-1]
	} else {
		dst = len(l.entries)
	}
	l.entries = append(l.entries[:dst], append([]*domain.QueueEntry{moved}, l.entries[dst:]...)...)
	l.repack()
	return nil
}

// Resequence renumbers positions after an in-place status change, such
// as a WAITING entry being CALLED out of the position count.
func (l *Ledger) Resequence() {
	l.repack()
}

// IndexOf returns the entry's index in the active ordering, or -1.
func (l *Ledger) IndexOf(entryID string) int {
	for i, entry := range l.entries {
		if entry.ID == entryID {
			return i
		}
	}
	return -1
}

// AvgFor returns the consultation average captured for an entry.
func (l *Ledger) AvgFor(entryID string) *int {
	return l.avgMinutes[entryID]
}

// InsertAt re-inserts an entry at a specific slot in the active
// ordering. Used to unwind a removal whose persistence failed.
func (l *Ledger) InsertAt(at int, entry *domain.QueueEntry, avgMinutes *int) {
	if at < 0 || at > len(l.entries) {
		at = len(l.entries)
	}
	l.entries = append(l.entries[:at], append([]*domain.QueueEntry{entry}, l.entries[at:]...)...)
	l.avgMinutes[entry.ID] = avgMinutes
	l.repack()
}

// Get returns the live active entry with the given id, if present.
func (l *Ledger) Get(entryID string) (*domain.QueueEntry, bool) {
	for _, entry := range l.entries {
		if entry.ID == entryID {
			return entry, true
		}
	}
	return nil, false
}

// FindActiveByPatient returns the patient's active entry, if any. A
// patient may hold at most one WAITING/CALLED/IN_CONSULTATION entry per
// dispensary.
func (l *Ledger) FindActiveByPatient(patientID string) (*domain.QueueEntry, bool) {
	for _, entry := range l.entries {
		if entry.PatientID == patientID && entry.Status.IsActive() {
			return entry, true
		}
	}
	return nil, false
}

// SnapshotOrdered returns copies of the WAITING entries in position order.
func (l *Ledger) SnapshotOrdered() []domain.QueueEntry {
	out := make([]domain.QueueEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if entry.Status == domain.VisitWaiting {
			out = append(out, *entry)
		}
	}
	return out
}

// SnapshotDoctor returns copies of the WAITING entries assigned to the
// doctor, in doctor-scope position order.
func (l *Ledger) SnapshotDoctor(doctorID string) []domain.QueueEntry {
	out := make([]domain.QueueEntry, 0)
	for _, entry := range l.entries {
		if entry.Status == domain.VisitWaiting && entry.DoctorID != nil && *entry.DoctorID == doctorID {
			out = append(out, *entry)
		}
	}
	return out
}

// SnapshotActive returns copies of every active entry in queue order,
// including CALLED and IN_CONSULTATION entries.
func (l *Ledger) SnapshotActive() []domain.QueueEntry {
	out := make([]domain.QueueEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, *entry)
	}
	return out
}

// Waiting exposes the live WAITING entries in position order for
// in-place flag updates by the notifier. Caller must hold the scope lock.
func (l *Ledger) Waiting() []*domain.QueueEntry {
	out := make([]*domain.QueueEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if entry.Status == domain.VisitWaiting {
			out = append(out, entry)
		}
	}
	return out
}

// Refresh recomputes wait estimates for every WAITING entry. Every
// position-relative wait depends on everyone ahead, so the whole scope is
// recomputed after any ordering change.
func (l *Ledger) Refresh(estimator *Estimator) {
	for _, entry := range l.entries {
		if entry.Status != domain.VisitWaiting {
			continue
		}
		wait, callTime := estimator.Estimate(entry.Position, l.avgMinutes[entry.ID])
		entry.EstimatedWaitMinutes = wait
		entry.EstimatedCallTime = callTime
	}
}

// StampRevisions marks every active entry with the scope's current write
// sequence. Storage discards saves carrying an older revision than the
// stored row, so snapshots persisted after the lock is released cannot
// clobber a later mutation.
func (l *Ledger) StampRevisions(rev int64) {
	for _, entry := range l.entries {
		entry.Revision = rev
	}
}

// Hydrate seeds the ledger with active entries recovered from storage,
// in stored position order.
func (l *Ledger) Hydrate(entries []*domain.QueueEntry, avgMinutes map[string]*int) {
	l.entries = append(l.entries, entries...)
	for id, avg := range avgMinutes {
		l.avgMinutes[id] = avg
	}
	l.repack()
}

// WaitingCount reports the current WAITING line length.
func (l *Ledger) WaitingCount() int {
	return l.waitingCount()
}

func (l *Ledger) waitingCount() int {
	count := 0
	for _, entry := range l.entries {
		if entry.Status == domain.VisitWaiting {
			count++
		}
	}
	return count
}

func (l *Ledger) waitingIndices() []int {
	idx := make([]int, 0, len(l.entries))
	for i, entry := range l.entries {
		if entry.Status == domain.VisitWaiting {
			idx = append(idx, i)
		}
	}
	return idx
}

// repack renumbers dispensary and doctor scope positions so WAITING
// entries hold contiguous ranks starting at 1.
func (l *Ledger) repack() {
	position := 0
	doctorPositions := make(map[string]int)
	for _, entry := range l.entries {
		if entry.Status != domain.VisitWaiting {
			entry.Position = 0
			entry.DoctorPosition = 0
			continue
		}
		position++
		entry.Position = position
		if entry.DoctorID != nil {
			doctorPositions[*entry.DoctorID]++
			entry.DoctorPosition = doctorPositions[*entry.DoctorID]
		} else {
			entry.DoctorPosition = 0
		}
	}
}
