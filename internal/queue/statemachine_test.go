package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/clinic-queue/internal/domain"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

func TestCanTransitionMatrix(t *testing.T) {
	allowed := []struct {
		from, to domain.VisitStatus
	}{
		{domain.VisitWaiting, domain.VisitCalled},
		{domain.VisitWaiting, domain.VisitCancelled},
		{domain.VisitWaiting, domain.VisitNoShow},
		{domain.VisitCalled, domain.VisitInConsultation},
		{domain.VisitCalled, domain.VisitCancelled},
		{domain.VisitCalled, domain.VisitNoShow},
		{domain.VisitInConsultation, domain.VisitCompleted},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge.from, edge.to), "%s -> %s should be allowed", edge.from, edge.to)
	}

	denied := []struct {
		from, to domain.VisitStatus
	}{
		{domain.VisitWaiting, domain.VisitInConsultation},
		{domain.VisitWaiting, domain.VisitCompleted},
		{domain.VisitCalled, domain.VisitWaiting},
		{domain.VisitInConsultation, domain.VisitCancelled},
		{domain.VisitInConsultation, domain.VisitNoShow},
		{domain.VisitCompleted, domain.VisitWaiting},
		{domain.VisitCompleted, domain.VisitCalled},
		{domain.VisitCancelled, domain.VisitWaiting},
		{domain.VisitNoShow, domain.VisitCalled},
	}
	for _, edge := range denied {
		assert.False(t, CanTransition(edge.from, edge.to), "%s -> %s should be denied", edge.from, edge.to)
	}
}

func TestApplyTransitionStampsTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	entry := &domain.QueueEntry{ID: "e1", Status: domain.VisitWaiting}

	require.NoError(t, ApplyTransition(entry, domain.VisitCalled, "staff-1", "", now))
	require.NotNil(t, entry.CalledAt)
	assert.Equal(t, now, *entry.CalledAt)

	later := now.Add(5 * time.Minute)
	require.NoError(t, ApplyTransition(entry, domain.VisitInConsultation, "staff-1", "", later))
	require.NotNil(t, entry.ConsultationStartedAt)
	assert.Equal(t, later, *entry.ConsultationStartedAt)

	end := later.Add(12 * time.Minute)
	require.NoError(t, ApplyTransition(entry, domain.VisitCompleted, "staff-1", "", end))
	require.NotNil(t, entry.CompletedAt)
	assert.Equal(t, end, *entry.CompletedAt)
}

func TestApplyTransitionCancelRecordsActorAndReason(t *testing.T) {
	now := time.Now()
	entry := &domain.QueueEntry{ID: "e1", Status: domain.VisitWaiting}

	require.NoError(t, ApplyTransition(entry, domain.VisitCancelled, "patient-1", "feeling better", now))
	assert.Equal(t, domain.VisitCancelled, entry.Status)
	assert.Equal(t, "patient-1", entry.CancelledBy)
	assert.Equal(t, "feeling better", entry.CancellationReason)
	require.NotNil(t, entry.CancelledAt)
}

func TestApplyTransitionRejectsIllegalEdge(t *testing.T) {
	entry := &domain.QueueEntry{ID: "e1", Status: domain.VisitWaiting}

	err := ApplyTransition(entry, domain.VisitInConsultation, "staff-1", "", time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
	assert.Equal(t, domain.VisitWaiting, entry.Status)
	assert.Nil(t, entry.ConsultationStartedAt)
}

func TestApplyTransitionTerminalIsImmutable(t *testing.T) {
	entry := &domain.QueueEntry{ID: "e1", Status: domain.VisitCompleted}

	for _, target := range []domain.VisitStatus{
		domain.VisitWaiting, domain.VisitCalled, domain.VisitInConsultation,
		domain.VisitCancelled, domain.VisitNoShow,
	} {
		err := ApplyTransition(entry, target, "staff-1", "", time.Now())
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
	}
	assert.Equal(t, domain.VisitCompleted, entry.Status)
}
