package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/events"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// memStorage is an in-memory Storage for coordinator tests. It enforces
// the same revision contract as the Postgres implementation: a save that
// is not newer than the stored row is discarded.
type memStorage struct {
	mu           sync.Mutex
	patients     map[string]*domain.Patient
	doctors      map[string]*domain.Doctor
	dispensaries map[string]*domain.Dispensary
	entries      map[string]domain.QueueEntry
	saveErr      error
	listErr      error
	// beforeSave runs outside the storage mutex, so a test can park a
	// particular write mid-flight.
	beforeSave func(*domain.QueueEntry)
}

func newMemStorage() *memStorage {
	return &memStorage{
		patients:     make(map[string]*domain.Patient),
		doctors:      make(map[string]*domain.Doctor),
		dispensaries: make(map[string]*domain.Dispensary),
		entries:      make(map[string]domain.QueueEntry),
	}
}

func (s *memStorage) GetDispensary(_ context.Context, id string) (*domain.Dispensary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispensary, ok := s.dispensaries[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *dispensary
	return &copied, nil
}

func (s *memStorage) GetDoctor(_ context.Context, id string) (*domain.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doctor, ok := s.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doctor
	return &copied, nil
}

func (s *memStorage) GetPatient(_ context.Context, id string) (*domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patient, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *patient
	return &copied, nil
}

func (s *memStorage) GetQueueEntry(_ context.Context, id string) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *memStorage) SaveQueueEntry(_ context.Context, entry *domain.QueueEntry) error {
	s.mu.Lock()
	hook := s.beforeSave
	s.mu.Unlock()
	if hook != nil {
		hook(entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if existing, ok := s.entries[entry.ID]; ok && entry.Revision <= existing.Revision {
		return nil
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *memStorage) FindActiveEntry(_ context.Context, patientID, dispensaryID string) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.PatientID == patientID && entry.DispensaryID == dispensaryID && entry.Status.IsActive() {
			copied := entry
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStorage) ListActiveEntries(_ context.Context, dispensaryID string) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.QueueEntry
	for _, entry := range s.entries {
		if entry.DispensaryID == dispensaryID && entry.Status.IsActive() {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out, nil
}

func (s *memStorage) ListEntriesByPatient(_ context.Context, patientID string, limit int) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, entry := range s.entries {
		if entry.PatientID == patientID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStorage) CountWaiting(_ context.Context, dispensaryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, entry := range s.entries {
		if entry.DispensaryID == dispensaryID && entry.Status == domain.VisitWaiting {
			count++
		}
	}
	return count, nil
}

func (s *memStorage) setSaveErr(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *memStorage) setListErr(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

func (s *memStorage) setBeforeSave(hook func(*domain.QueueEntry)) {
	s.mu.Lock()
	s.beforeSave = hook
	s.mu.Unlock()
}

func (s *memStorage) stored(id string) (domain.QueueEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	storage     *memStorage
	dispatcher  *recordingDispatcher
	coordinator *Coordinator
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	storage := newMemStorage()
	dispatcher := &recordingDispatcher{}
	coordinator := NewCoordinator(cfg, Dependencies{
		Storage:    storage,
		Numbers:    NewMemoryAllocator(),
		Dispatcher: dispatcher,
	})
	return &fixture{storage: storage, dispatcher: dispatcher, coordinator: coordinator}
}

func (f *fixture) seedDispensary(id string, capacity int) {
	f.storage.dispensaries[id] = &domain.Dispensary{
		ID: id, Name: "Clinic " + id, IsOpen: true, MaxQueueCapacity: capacity,
	}
}

func (f *fixture) seedPatients(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("patient-%d", i)
		f.storage.patients[id] = &domain.Patient{ID: id, UserID: "user-" + id}
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) seedStoredEntry(id, patientID, dispensaryID string, queueNumber int) {
	f.storage.entries[id] = domain.QueueEntry{
		ID: id, PatientID: patientID, DispensaryID: dispensaryID,
		QueueNumber: queueNumber, Position: queueNumber,
		Status: domain.VisitWaiting, JoinedAt: time.Now(), Revision: 1,
	}
}

func (f *fixture) seedDoctor(id, dispensaryID string, avgMinutes *int) {
	f.storage.doctors[id] = &domain.Doctor{
		ID: id, DispensaryID: &dispensaryID, AvgConsultationMinutes: avgMinutes,
		Availability: domain.DoctorAvailable,
	}
}

func TestJoinAssignsPositionsAndEstimates(t *testing.T) {
	f := newFixture(t, Config{DefaultConsultationMinutes: 15})
	f.seedDispensary("disp-1", 0)
	patients := f.seedPatients(3)
	ctx := context.Background()

	for i, patientID := range patients {
		entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: patientID, DispensaryID: "disp-1"})
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Position)
		assert.Equal(t, i+1, entry.QueueNumber)
		assert.Equal(t, domain.VisitWaiting, entry.Status)
		assert.Equal(t, i*15, entry.EstimatedWaitMinutes)

		stored, ok := f.storage.stored(entry.ID)
		require.True(t, ok)
		assert.Equal(t, entry.Position, stored.Position)
	}
}

func TestJoinRejectsDuplicateActivePatient(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)

	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "ALREADY_QUEUED"))
}

func TestJoinEnforcesCapacity(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 2)
	patients := f.seedPatients(3)
	ctx := context.Background()

	for _, patientID := range patients[:2] {
		_, err := f.coordinator.Join(ctx, JoinInput{PatientID: patientID, DispensaryID: "disp-1"})
		require.NoError(t, err)
	}

	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: patients[2], DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CAPACITY_EXCEEDED"))
}

func TestJoinUnknownReferences(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "ghost", DispensaryID: "disp-1"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "ghost"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	ghostDoc := "ghost-doc"
	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1", DoctorID: &ghostDoc})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestJoinRejectsClosedDispensary(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.storage.dispensaries["disp-1"].IsOpen = false
	f.seedPatients(1)

	_, err := f.coordinator.Join(context.Background(), JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestJoinUsesDoctorAverage(t *testing.T) {
	f := newFixture(t, Config{DefaultConsultationMinutes: 15})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	avg := 20
	f.seedDoctor("doc-1", "disp-1", &avg)
	ctx := context.Background()
	doctorID := "doc-1"

	first, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1", DoctorID: &doctorID})
	require.NoError(t, err)
	assert.Equal(t, 0, first.EstimatedWaitMinutes)
	assert.Equal(t, 1, first.DoctorPosition)

	second, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1", DoctorID: &doctorID})
	require.NoError(t, err)
	assert.Equal(t, 20, second.EstimatedWaitMinutes)
	assert.Equal(t, 2, second.DoctorPosition)
}

func TestAdvanceStatusCallRepacksPositions(t *testing.T) {
	f := newFixture(t, Config{DefaultConsultationMinutes: 15})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	ctx := context.Background()

	first, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)

	called, err := f.coordinator.AdvanceStatus(ctx, first.ID, domain.VisitCalled, "staff-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCalled, called.Status)
	assert.Equal(t, 0, called.Position)
	require.NotNil(t, called.CalledAt)

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "patient-2", snapshot[0].PatientID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, 0, snapshot[0].EstimatedWaitMinutes)
}

func TestCancelRepacksAndRecordsReason(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	patients := f.seedPatients(3)
	ctx := context.Background()

	var ids []string
	for _, patientID := range patients {
		entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: patientID, DispensaryID: "disp-1"})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	cancelled, err := f.coordinator.Cancel(ctx, ids[1], "left early", "patient-2")
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCancelled, cancelled.Status)
	assert.Equal(t, "left early", cancelled.CancellationReason)
	assert.Equal(t, "patient-2", cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "patient-1", snapshot[0].PatientID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, "patient-3", snapshot[1].PatientID)
	assert.Equal(t, 2, snapshot[1].Position)

	history, err := f.coordinator.PatientHistory(ctx, "patient-2", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.VisitCancelled, history[0].Status)
}

func TestAdvanceStatusFullVisitLifecycle(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)

	for _, target := range []domain.VisitStatus{
		domain.VisitCalled, domain.VisitInConsultation, domain.VisitCompleted,
	} {
		updated, err := f.coordinator.AdvanceStatus(ctx, entry.ID, target, "staff-1", "")
		require.NoError(t, err)
		assert.Equal(t, target, updated.Status)
	}

	stored, ok := f.storage.stored(entry.ID)
	require.True(t, ok)
	require.NotNil(t, stored.CalledAt)
	require.NotNil(t, stored.ConsultationStartedAt)
	require.NotNil(t, stored.CompletedAt)

	// Terminal entries reject further transitions, including repeats.
	_, err = f.coordinator.AdvanceStatus(ctx, entry.ID, domain.VisitCompleted, "staff-1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestAdvanceStatusRejectsIllegalEdge(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)

	_, err = f.coordinator.AdvanceStatus(ctx, entry.ID, domain.VisitInConsultation, "staff-1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	// The failed transition leaves the queue untouched.
	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, domain.VisitWaiting, snapshot[0].Status)
}

func TestAdvanceStatusUnknownEntry(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	ctx := context.Background()

	_, err := f.coordinator.AdvanceStatus(ctx, "ghost", domain.VisitCalled, "staff-1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestConcurrentJoinsStayContiguous(t *testing.T) {
	const joiners = 16
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	patients := f.seedPatients(joiners)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, patientID := range patients {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.coordinator.Join(ctx, JoinInput{PatientID: id, DispensaryID: "disp-1"})
			assert.NoError(t, err)
		}(patientID)
	}
	wg.Wait()

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, joiners)

	positions := make([]int, 0, joiners)
	numbers := make(map[int]bool, joiners)
	for _, entry := range snapshot {
		positions = append(positions, entry.Position)
		assert.False(t, numbers[entry.QueueNumber], "queue number %d reused", entry.QueueNumber)
		numbers[entry.QueueNumber] = true
	}
	sort.Ints(positions)
	for i, position := range positions {
		assert.Equal(t, i+1, position)
	}
}

func TestNotificationThresholdFlow(t *testing.T) {
	f := newFixture(t, Config{NotificationThreshold: 3})
	f.seedDispensary("disp-1", 0)
	patients := f.seedPatients(5)
	ctx := context.Background()

	var ids []string
	for _, patientID := range patients {
		entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: patientID, DispensaryID: "disp-1"})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	notifiedEvents := f.dispatcher.byType(events.EventPatientNotified)
	require.Len(t, notifiedEvents, 3)

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	for _, entry := range snapshot {
		assert.Equal(t, entry.Position <= 3, entry.NotificationSent,
			"position %d sent=%v", entry.Position, entry.NotificationSent)
	}

	// The head leaving promotes position 4 into the band; only that
	// entry is newly signaled.
	_, err = f.coordinator.Cancel(ctx, ids[0], "", "patient-1")
	require.NoError(t, err)

	notifiedEvents = f.dispatcher.byType(events.EventPatientNotified)
	require.Len(t, notifiedEvents, 4)
	payload, ok := notifiedEvents[3].Payload.(events.PatientNotifiedPayload)
	require.True(t, ok)
	assert.Equal(t, "patient-4", payload.PatientID)

	stored, ok := f.storage.stored(ids[3])
	require.True(t, ok)
	assert.True(t, stored.NotificationSent)
}

func TestPromoteReordersWaitingLine(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	patients := f.seedPatients(4)
	ctx := context.Background()

	for _, patientID := range patients {
		_, err := f.coordinator.Join(ctx, JoinInput{PatientID: patientID, DispensaryID: "disp-1"})
		require.NoError(t, err)
	}

	require.NoError(t, f.coordinator.Promote(ctx, "disp-1", 4, 1))

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 4)
	assert.Equal(t, "patient-4", snapshot[0].PatientID)
	assert.Equal(t, "patient-1", snapshot[1].PatientID)
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestQueueByDoctorRosteredScope(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(3)
	f.seedDoctor("doc-1", "disp-1", nil)
	ctx := context.Background()
	doctorID := "doc-1"

	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1", DoctorID: &doctorID})
	require.NoError(t, err)
	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)
	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-3", DispensaryID: "disp-1", DoctorID: &doctorID})
	require.NoError(t, err)

	doctorQueue, err := f.coordinator.QueueByDoctor(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, doctorQueue, 2)
	assert.Equal(t, "patient-1", doctorQueue[0].PatientID)
	assert.Equal(t, 1, doctorQueue[0].DoctorPosition)
	assert.Equal(t, "patient-3", doctorQueue[1].PatientID)
	assert.Equal(t, 2, doctorQueue[1].DoctorPosition)
}

func TestJoinStorageFailureRollsBack(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	f.storage.setSaveErr(fmt.Errorf("connection refused"))
	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAVAILABLE"))

	// The unpersisted entry was evicted; the patient can retry.
	f.storage.setSaveErr(nil)
	entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)
}

func TestHydrateRebuildsLedgerFromStorage(t *testing.T) {
	f := newFixture(t, Config{DefaultConsultationMinutes: 15})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	ctx := context.Background()

	first, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)

	// Fresh coordinator over the same storage simulates a restart.
	restarted := NewCoordinator(Config{DefaultConsultationMinutes: 15}, Dependencies{
		Storage: f.storage,
		Numbers: NewMemoryAllocator(),
	})
	snapshot, err := restarted.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "patient-1", snapshot[0].PatientID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, 2, snapshot[1].Position)

	// Recovered entries stay transitionable.
	called, err := restarted.AdvanceStatus(ctx, first.ID, domain.VisitCalled, "staff-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCalled, called.Status)
}

func TestGetEntryFallsBackToStorageForTerminal(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	entry, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	_, err = f.coordinator.Cancel(ctx, entry.ID, "", "patient-1")
	require.NoError(t, err)

	fetched, err := f.coordinator.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCancelled, fetched.Status)
}

func TestTwoPatientVisitScenario(t *testing.T) {
	f := newFixture(t, Config{DefaultConsultationMinutes: 15})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	ctx := context.Background()

	a, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.QueueNumber)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 0, a.EstimatedWaitMinutes)

	b, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, b.QueueNumber)
	assert.Equal(t, 2, b.Position)
	assert.Equal(t, 15, b.EstimatedWaitMinutes)

	for _, target := range []domain.VisitStatus{
		domain.VisitCalled, domain.VisitInConsultation, domain.VisitCompleted,
	} {
		_, err := f.coordinator.AdvanceStatus(ctx, a.ID, target, "staff-1", "")
		require.NoError(t, err)
	}

	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "patient-2", snapshot[0].PatientID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, 0, snapshot[0].EstimatedWaitMinutes)
	assert.Equal(t, 2, snapshot[0].QueueNumber)
}

func TestStaleSnapshotCannotRevertTerminalWrite(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	ctx := context.Background()

	first, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)
	second, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)

	// Calling patient 1 re-packs patient 2 to position 1 and persists that
	// snapshot after the scope lock is released. Park that write in flight
	// while patient 2 cancels, then let it land late: the stale WAITING
	// snapshot must not overwrite the CANCELLED row.
	parked := make(chan struct{})
	releaseGate := make(chan struct{})
	f.storage.setBeforeSave(func(entry *domain.QueueEntry) {
		if entry.ID != second.ID || entry.Status != domain.VisitWaiting {
			return
		}
		f.storage.setBeforeSave(nil)
		close(parked)
		<-releaseGate
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.coordinator.AdvanceStatus(ctx, first.ID, domain.VisitCalled, "staff-1", "")
		assert.NoError(t, err)
	}()

	<-parked
	cancelled, err := f.coordinator.Cancel(ctx, second.ID, "changed plans", "patient-2")
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCancelled, cancelled.Status)

	close(releaseGate)
	<-done

	stored, ok := f.storage.stored(second.ID)
	require.True(t, ok)
	assert.Equal(t, domain.VisitCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, "changed plans", stored.CancellationReason)

	// A restart must not resurrect the cancelled patient.
	restarted := NewCoordinator(Config{}, Dependencies{
		Storage: f.storage,
		Numbers: NewMemoryAllocator(),
	})
	snapshot, err := restarted.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestHydrationRetriesAfterStorageFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	f.seedStoredEntry("entry-1", "patient-1", "disp-1", 1)
	ctx := context.Background()

	f.storage.setListErr(fmt.Errorf("connection reset"))
	_, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAVAILABLE"))

	// A failed load leaves the scope unhydrated; the next touch retries
	// instead of serving an empty line.
	f.storage.setListErr(nil)
	snapshot, err := f.coordinator.QueueByDispensary(ctx, "disp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "patient-1", snapshot[0].PatientID)
	assert.Equal(t, 1, snapshot[0].Position)

	joined, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Position)
}

func TestJoinDuplicateCheckConsultsStorage(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(2)
	f.seedStoredEntry("entry-1", "patient-1", "disp-1", 1)
	ctx := context.Background()

	// Even with the ledger unable to hydrate, a patient whose active entry
	// survives in storage is not re-admitted.
	f.storage.setListErr(fmt.Errorf("connection reset"))
	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "ALREADY_QUEUED"))

	_, err = f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAVAILABLE"))

	f.storage.setListErr(nil)
	joined, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-2", DispensaryID: "disp-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Position)
}

func TestJoinPublishesEvents(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDispensary("disp-1", 0)
	f.seedPatients(1)
	ctx := context.Background()

	_, err := f.coordinator.Join(ctx, JoinInput{PatientID: "patient-1", DispensaryID: "disp-1"})
	require.NoError(t, err)

	joined := f.dispatcher.byType(events.EventQueueJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "disp-1", joined[0].DispensaryID)

	updated := f.dispatcher.byType(events.EventQueueUpdated)
	require.NotEmpty(t, updated)
	payload, ok := updated[0].Payload.(events.QueueUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, "dispensary", payload.ScopeKind)
	require.Len(t, payload.Entries, 1)
}
