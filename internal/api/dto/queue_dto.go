package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/queue"
)

// JoinQueueRequest payload.
type JoinQueueRequest struct {
	DispensaryID   string  `json:"dispensary_id"`
	DoctorID       *string `json:"doctor_id"`
	ChiefComplaint string  `json:"chief_complaint"`
	Notes          string  `json:"notes"`
}

// UpdateVisitStatusRequest payload.
type UpdateVisitStatusRequest struct {
	Status domain.VisitStatus `json:"status"`
	Reason string             `json:"reason"`
}

// CancelVisitRequest payload.
type CancelVisitRequest struct {
	Reason string `json:"reason"`
}

// PromoteRequest moves a waiting entry to an earlier position.
type PromoteRequest struct {
	FromPosition int `json:"from_position"`
	ToPosition   int `json:"to_position"`
}

// QueueEntryResponse represents one visit in a queue.
type QueueEntryResponse struct {
	ID             string             `json:"id"`
	PatientID      string             `json:"patient_id"`
	DispensaryID   string             `json:"dispensary_id"`
	DoctorID       *string            `json:"doctor_id"`
	QueueNumber    int                `json:"queue_number"`
	Position       int                `json:"position"`
	DoctorPosition int                `json:"doctor_position,omitempty"`
	Status         domain.VisitStatus `json:"status"`
	ChiefComplaint string             `json:"chief_complaint,omitempty"`

	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	EstimatedWaitDisplay string    `json:"estimated_wait_display"`
	EstimatedCallTime    time.Time `json:"estimated_call_time"`

	NotificationSent bool `json:"notification_sent"`

	JoinedAt              time.Time  `json:"joined_at"`
	CalledAt              *time.Time `json:"called_at,omitempty"`
	ConsultationStartedAt *time.Time `json:"consultation_started_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason    string     `json:"cancellation_reason,omitempty"`
}

// QueueSnapshotResponse is an ordered view of one queue scope.
type QueueSnapshotResponse struct {
	ScopeKind string               `json:"scope_kind"`
	ScopeID   string               `json:"scope_id"`
	Length    int                  `json:"length"`
	Entries   []QueueEntryResponse `json:"entries"`
}

// NewQueueEntryResponse maps a domain entry.
func NewQueueEntryResponse(entry *domain.QueueEntry) QueueEntryResponse {
	return QueueEntryResponse{
		ID:                    entry.ID,
		PatientID:             entry.PatientID,
		DispensaryID:          entry.DispensaryID,
		DoctorID:              entry.DoctorID,
		QueueNumber:           entry.QueueNumber,
		Position:              entry.Position,
		DoctorPosition:        entry.DoctorPosition,
		Status:                entry.Status,
		ChiefComplaint:        entry.ChiefComplaint,
		EstimatedWaitMinutes:  entry.EstimatedWaitMinutes,
		EstimatedWaitDisplay:  queue.FormatWaitTime(entry.EstimatedWaitMinutes),
		EstimatedCallTime:     entry.EstimatedCallTime,
		NotificationSent:      entry.NotificationSent,
		JoinedAt:              entry.JoinedAt,
		CalledAt:              entry.CalledAt,
		ConsultationStartedAt: entry.ConsultationStartedAt,
		CompletedAt:           entry.CompletedAt,
		CancelledAt:           entry.CancelledAt,
		CancellationReason:    entry.CancellationReason,
	}
}

// NewQueueSnapshotResponse maps an ordered scope snapshot.
func NewQueueSnapshotResponse(scopeKind, scopeID string, entries []domain.QueueEntry) QueueSnapshotResponse {
	out := make([]QueueEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewQueueEntryResponse(&entries[i]))
	}
	return QueueSnapshotResponse{
		ScopeKind: scopeKind,
		ScopeID:   scopeID,
		Length:    len(out),
		Entries:   out,
	}
}
