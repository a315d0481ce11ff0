package domain

import "time"

// VisitStatus enumerates lifecycle states for a queue entry.
type VisitStatus string

const (
	VisitWaiting        VisitStatus = "WAITING"
	VisitCalled         VisitStatus = "CALLED"
	VisitInConsultation VisitStatus = "IN_CONSULTATION"
	VisitCompleted      VisitStatus = "COMPLETED"
	VisitCancelled      VisitStatus = "CANCELLED"
	VisitNoShow         VisitStatus = "NO_SHOW"
)

// IsTerminal reports whether no further transitions are permitted.
func (s VisitStatus) IsTerminal() bool {
	return s == VisitCompleted || s == VisitCancelled || s == VisitNoShow
}

// IsActive reports whether the entry still occupies the dispensary's
// active set.
func (s VisitStatus) IsActive() bool {
	return s == VisitWaiting || s == VisitCalled || s == VisitInConsultation
}

// QueueEntry is one patient's presence in one dispensary's line.
//
// QueueNumber is the daily display ticket, monotonic within a
// dispensary-day and never reused. Position is the authoritative 1-based
// rank among WAITING entries of the dispensary; it is zero while the
// entry is not WAITING. DoctorPosition is the derived rank among WAITING
// entries sharing the same doctor.
type QueueEntry struct {
	ID           string
	PatientID    string
	DispensaryID string
	DoctorID     *string

	QueueNumber    int
	Position       int
	DoctorPosition int

	// Revision is the per-entry write sequence, assigned under the scope
	// lock. Storage keeps only the newest revision of a row, so snapshots
	// persisted after the lock is released cannot clobber a later
	// mutation's write.
	Revision int64

	Status VisitStatus

	ChiefComplaint string
	Notes          string

	JoinedAt              time.Time
	CalledAt              *time.Time
	ConsultationStartedAt *time.Time
	CompletedAt           *time.Time
	CancelledAt           *time.Time

	EstimatedWaitMinutes int
	EstimatedCallTime    time.Time

	NotificationSent   bool
	NotificationSentAt *time.Time

	CancellationReason string
	CancelledBy        string

	CreatedAt time.Time
	UpdatedAt time.Time
}
