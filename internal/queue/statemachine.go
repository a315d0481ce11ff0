package queue

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

var allowedTransitions = map[domain.VisitStatus][]domain.VisitStatus{
	domain.VisitWaiting:        {domain.VisitCalled, domain.VisitCancelled, domain.VisitNoShow},
	domain.VisitCalled:         {domain.VisitInConsultation, domain.VisitCancelled, domain.VisitNoShow},
	domain.VisitInConsultation: {domain.VisitCompleted},
	domain.VisitCompleted:      {},
	domain.VisitCancelled:      {},
	domain.VisitNoShow:         {},
}

// CanTransition reports whether the visit state machine permits the edge.
func CanTransition(current, next domain.VisitStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ApplyTransition validates and applies a state-machine edge to the entry,
// stamping the timestamp that matches the target state. Timestamps are set
// exactly once; an illegal edge leaves the entry untouched and returns
// INVALID_TRANSITION.
func ApplyTransition(entry *domain.QueueEntry, target domain.VisitStatus, actor, reason string, now time.Time) error {
	if !CanTransition(entry.Status, target) {
		return apperrors.NewInvalidTransition(entry.ID, string(entry.Status), string(target))
	}

	entry.Status = target
	switch target {
	case domain.VisitCalled:
		if entry.CalledAt == nil {
			entry.CalledAt = &now
		}
	case domain.VisitInConsultation:
		if entry.ConsultationStartedAt == nil {
			entry.ConsultationStartedAt = &now
		}
	case domain.VisitCompleted:
		if entry.CompletedAt == nil {
			entry.CompletedAt = &now
		}
	case domain.VisitCancelled:
		if entry.CancelledAt == nil {
			entry.CancelledAt = &now
		}
		entry.CancellationReason = reason
		entry.CancelledBy = actor
	case domain.VisitNoShow:
		if entry.CompletedAt == nil {
			entry.CompletedAt = &now
		}
	}
	return nil
}
