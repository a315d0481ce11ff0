package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/clinic-queue/internal/domain"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

func waitingEntry(id string) *domain.QueueEntry {
	return &domain.QueueEntry{
		ID:        id,
		PatientID: "patient-" + id,
		Status:    domain.VisitWaiting,
	}
}

func TestLedgerAppendAssignsContiguousPositions(t *testing.T) {
	ledger := NewLedger("disp-1", 0)

	for i := 1; i <= 4; i++ {
		pos, err := ledger.Append(waitingEntry(fmt.Sprintf("e%d", i)), nil)
		require.NoError(t, err)
		assert.Equal(t, i, pos)
	}
	assert.Equal(t, 4, ledger.WaitingCount())
}

func TestLedgerAppendCapacity(t *testing.T) {
	ledger := NewLedger("disp-1", 2)

	_, err := ledger.Append(waitingEntry("e1"), nil)
	require.NoError(t, err)
	_, err = ledger.Append(waitingEntry("e2"), nil)
	require.NoError(t, err)

	_, err = ledger.Append(waitingEntry("e3"), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CAPACITY_EXCEEDED"))
	assert.Equal(t, 2, ledger.WaitingCount())
}

func TestLedgerRemoveRepacks(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	for i := 1; i <= 4; i++ {
		_, err := ledger.Append(waitingEntry(fmt.Sprintf("e%d", i)), nil)
		require.NoError(t, err)
	}

	removed, ok := ledger.Remove("e2")
	require.True(t, ok)
	assert.Equal(t, 0, removed.Position)

	snapshot := ledger.SnapshotOrdered()
	require.Len(t, snapshot, 3)
	assert.Equal(t, []string{"e1", "e3", "e4"}, []string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID})
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestLedgerRemoveMissing(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	_, ok := ledger.Remove("absent")
	assert.False(t, ok)
}

func TestLedgerCalledEntryLeavesPositionCount(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	for i := 1; i <= 3; i++ {
		_, err := ledger.Append(waitingEntry(fmt.Sprintf("e%d", i)), nil)
		require.NoError(t, err)
	}

	first, ok := ledger.Get("e1")
	require.True(t, ok)
	first.Status = domain.VisitCalled
	ledger.Resequence()

	assert.Equal(t, 0, first.Position)
	snapshot := ledger.SnapshotOrdered()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "e2", snapshot[0].ID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, "e3", snapshot[1].ID)
	assert.Equal(t, 2, snapshot[1].Position)

	// Still active for duplicate-join checks.
	_, active := ledger.FindActiveByPatient("patient-e1")
	assert.True(t, active)
}

func TestLedgerDoctorPositions(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	d1, d2 := "doc-1", "doc-2"

	entries := []*domain.QueueEntry{
		waitingEntry("e1"), waitingEntry("e2"), waitingEntry("e3"), waitingEntry("e4"),
	}
	entries[0].DoctorID = &d1
	entries[1].DoctorID = &d2
	entries[2].DoctorID = &d1
	for _, entry := range entries {
		_, err := ledger.Append(entry, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, entries[0].DoctorPosition)
	assert.Equal(t, 1, entries[1].DoctorPosition)
	assert.Equal(t, 2, entries[2].DoctorPosition)
	assert.Equal(t, 0, entries[3].DoctorPosition)

	doctorQueue := ledger.SnapshotDoctor(d1)
	require.Len(t, doctorQueue, 2)
	assert.Equal(t, "e1", doctorQueue[0].ID)
	assert.Equal(t, "e3", doctorQueue[1].ID)
}

func TestLedgerReorder(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	for i := 1; i <= 4; i++ {
		_, err := ledger.Append(waitingEntry(fmt.Sprintf("e%d", i)), nil)
		require.NoError(t, err)
	}

	require.NoError(t, ledger.Reorder(4, 1))

	snapshot := ledger.SnapshotOrdered()
	assert.Equal(t, []string{"e4", "e1", "e2", "e3"},
		[]string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID, snapshot[3].ID})
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestLedgerReorderOutOfRange(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	_, err := ledger.Append(waitingEntry("e1"), nil)
	require.NoError(t, err)

	err = ledger.Reorder(1, 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestLedgerRefreshUsesCapturedAverage(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	est := NewEstimator(15)

	avg := 30
	e1, e2 := waitingEntry("e1"), waitingEntry("e2")
	_, err := ledger.Append(e1, nil)
	require.NoError(t, err)
	_, err = ledger.Append(e2, &avg)
	require.NoError(t, err)

	ledger.Refresh(est)
	assert.Equal(t, 0, e1.EstimatedWaitMinutes)
	assert.Equal(t, 30, e2.EstimatedWaitMinutes)
}

func TestLedgerHydrate(t *testing.T) {
	ledger := NewLedger("disp-1", 0)
	avg := 20
	entries := []*domain.QueueEntry{waitingEntry("e1"), waitingEntry("e2")}

	ledger.Hydrate(entries, map[string]*int{"e2": &avg})
	ledger.Refresh(NewEstimator(15))

	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, 20, entries[1].EstimatedWaitMinutes)
}
