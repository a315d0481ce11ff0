package events

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQueueJoined        EventType = "queue_joined"
	EventQueueStatusChanged EventType = "queue_status_changed"
	EventQueueUpdated       EventType = "queue_updated"
	EventPatientNotified    EventType = "patient_notified"
)

// Event represents a domain event emitted by the queue coordinator.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	DispensaryID string      `json:"dispensary_id"`
	Actor        string      `json:"actor,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// QueueJoinedPayload payload.
type QueueJoinedPayload struct {
	Entry domain.QueueEntry `json:"entry"`
}

// QueueStatusChangedPayload payload.
type QueueStatusChangedPayload struct {
	Entry     domain.QueueEntry  `json:"entry"`
	OldStatus domain.VisitStatus `json:"old_status"`
	NewStatus domain.VisitStatus `json:"new_status"`
	Reason    string             `json:"reason,omitempty"`
}

// QueueUpdatedPayload carries an ordered snapshot of a scope after a
// ledger mutation; consumed by the broadcast gateway.
type QueueUpdatedPayload struct {
	ScopeKind string              `json:"scope_kind"`
	ScopeID   string              `json:"scope_id"`
	Entries   []domain.QueueEntry `json:"entries"`
}

// PatientNotifiedPayload payload for almost-up signals.
type PatientNotifiedPayload struct {
	PatientID string            `json:"patient_id"`
	Entry     domain.QueueEntry `json:"entry"`
}
