package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/events"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// Config tunes coordinator behavior.
type Config struct {
	// AcquireTimeout bounds how long a caller may wait for a scope's
	// serialization point before failing with BUSY.
	AcquireTimeout time.Duration
	// DefaultCapacity applies when a dispensary has no configured max
	// queue length.
	DefaultCapacity int
	// NotificationThreshold is the almost-up position band.
	NotificationThreshold int
	// DefaultConsultationMinutes is the estimator fallback average.
	DefaultConsultationMinutes int
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	Storage    Storage
	Numbers    NumberAllocator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Coordinator is the public write path into the queue ledgers. All
// mutating operations on a dispensary are serialized through that scope's
// lock; independent dispensaries do not contend. Storage and broadcast
// collaborators are never called while a scope lock is held.
type Coordinator struct {
	storage    Storage
	numbers    NumberAllocator
	estimator  *Estimator
	notifier   *Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger

	acquireTimeout  time.Duration
	defaultCapacity int

	mu         sync.Mutex
	scopes     map[string]*scopeState
	entryIndex map[string]string // active entry id -> dispensary id
}

type scopeState struct {
	lock   chan struct{}
	ledger *Ledger

	// rev is the scope's write sequence; bumped and stamped onto active
	// entries under the scope lock before snapshots are taken.
	rev int64

	// hydrated flips only after a successful load, so a transient storage
	// failure on first touch is retried on the next one.
	hydrateMu sync.Mutex
	hydrated  bool
}

// JoinInput describes a queue join request.
type JoinInput struct {
	PatientID      string
	DispensaryID   string
	DoctorID       *string
	ChiefComplaint string
	Notes          string
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(cfg Config, deps Dependencies) *Coordinator {
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 2 * time.Second
	}
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = 50
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		storage:         deps.Storage,
		numbers:         deps.Numbers,
		estimator:       NewEstimator(cfg.DefaultConsultationMinutes),
		notifier:        NewNotifier(cfg.NotificationThreshold),
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		acquireTimeout:  cfg.AcquireTimeout,
		defaultCapacity: cfg.DefaultCapacity,
		scopes:          make(map[string]*scopeState),
		entryIndex:      make(map[string]string),
	}
}

// Join admits a patient to a dispensary's waiting line and returns the
// created entry with its assigned position and wait estimate.
func (c *Coordinator) Join(ctx context.Context, input JoinInput) (*domain.QueueEntry, error) {
	patient, err := c.storage.GetPatient(ctx, input.PatientID)
	if err != nil {
		return nil, mapStorageErr(err, "patient", input.PatientID)
	}
	dispensary, err := c.storage.GetDispensary(ctx, input.DispensaryID)
	if err != nil {
		return nil, mapStorageErr(err, "dispensary", input.DispensaryID)
	}
	if !dispensary.IsOpen {
		return nil, apperrors.NewConflict("dispensary is closed", map[string]any{
			"dispensary_id": dispensary.ID,
		})
	}

	// Durable duplicate check. The ledger check below covers the common
	// case, but a ledger that could not hydrate yet must not re-admit a
	// patient whose active entry survives in storage.
	if _, err := c.storage.FindActiveEntry(ctx, input.PatientID, input.DispensaryID); err == nil {
		return nil, apperrors.NewAlreadyQueued(input.PatientID, input.DispensaryID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewUnavailable("storage", err)
	}

	var avgMinutes *int
	if input.DoctorID != nil {
		doctor, err := c.storage.GetDoctor(ctx, *input.DoctorID)
		if err != nil {
			return nil, mapStorageErr(err, "doctor", *input.DoctorID)
		}
		avgMinutes = doctor.AvgConsultationMinutes
	}

	now := c.estimator.Now()
	number, err := c.numbers.Next(ctx, dispensary.ID, now)
	if err != nil {
		return nil, apperrors.NewUnavailable("queue number allocator", err)
	}

	scope, err := c.ensureScope(ctx, dispensary)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(ctx, scope, dispensary.ID); err != nil {
		return nil, err
	}

	if _, exists := scope.ledger.FindActiveByPatient(patient.ID); exists {
		c.release(scope)
		return nil, apperrors.NewAlreadyQueued(patient.ID, dispensary.ID)
	}

	entry := &domain.QueueEntry{
		ID:             uuid.NewString(),
		PatientID:      patient.ID,
		DispensaryID:   dispensary.ID,
		DoctorID:       input.DoctorID,
		QueueNumber:    number,
		Status:         domain.VisitWaiting,
		ChiefComplaint: input.ChiefComplaint,
		Notes:          input.Notes,
		JoinedAt:       now,
	}
	if _, err := scope.ledger.Append(entry, avgMinutes); err != nil {
		c.release(scope)
		return nil, err
	}
	scope.ledger.Refresh(c.estimator)
	c.stampRevision(scope)
	notified := c.notifier.Sweep(scope.ledger.Waiting())

	snapshot := *entry
	dispSnapshot := scope.ledger.SnapshotOrdered()
	var doctorSnapshot []domain.QueueEntry
	if input.DoctorID != nil {
		doctorSnapshot = scope.ledger.SnapshotDoctor(*input.DoctorID)
	}
	c.release(scope)

	if err := c.storage.SaveQueueEntry(ctx, &snapshot); err != nil {
		c.evict(scope, entry.ID)
		return nil, apperrors.NewUnavailable("storage", err)
	}
	c.indexEntry(entry.ID, dispensary.ID)
	c.persistBestEffort(ctx, notified)

	c.publish(ctx, events.Event{
		Type:         events.EventQueueJoined,
		DispensaryID: dispensary.ID,
		Actor:        patient.ID,
		Payload:      events.QueueJoinedPayload{Entry: snapshot},
	})
	c.publishScopeUpdates(ctx, dispensary.ID, input.DoctorID, dispSnapshot, doctorSnapshot)
	c.publishNotifications(ctx, dispensary.ID, notified)

	return &snapshot, nil
}

// AdvanceStatus applies a state-machine transition to an entry. Terminal
// targets remove the entry from the active ordering; WAITING positions of
// the remaining entries are re-packed and their estimates recomputed in
// the same serialized unit.
func (c *Coordinator) AdvanceStatus(ctx context.Context, entryID string, target domain.VisitStatus, actor, reason string) (*domain.QueueEntry, error) {
	dispensaryID, indexed := c.lookupEntry(entryID)
	if !indexed {
		stored, err := c.storage.GetQueueEntry(ctx, entryID)
		if err != nil {
			return nil, mapStorageErr(err, "queue entry", entryID)
		}
		if !CanTransition(stored.Status, target) {
			return nil, apperrors.NewInvalidTransition(entryID, string(stored.Status), string(target))
		}
		dispensaryID = stored.DispensaryID
	}
	dispensary, err := c.storage.GetDispensary(ctx, dispensaryID)
	if err != nil {
		return nil, mapStorageErr(err, "dispensary", dispensaryID)
	}

	scope, err := c.ensureScope(ctx, dispensary)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(ctx, scope, dispensary.ID); err != nil {
		return nil, err
	}

	entry, ok := scope.ledger.Get(entryID)
	if !ok {
		c.release(scope)
		stored, err := c.storage.GetQueueEntry(ctx, entryID)
		if err != nil {
			return nil, mapStorageErr(err, "queue entry", entryID)
		}
		return nil, apperrors.NewInvalidTransition(entryID, string(stored.Status), string(target))
	}

	before := *entry
	restoreAt := scope.ledger.IndexOf(entryID)
	avgMinutes := scope.ledger.AvgFor(entryID)
	oldStatus := entry.Status

	if err := ApplyTransition(entry, target, actor, reason, c.estimator.Now()); err != nil {
		c.release(scope)
		return nil, err
	}
	removed := false
	if entry.Status.IsTerminal() {
		scope.ledger.Remove(entryID)
		removed = true
	} else {
		scope.ledger.Resequence()
	}
	scope.ledger.Refresh(c.estimator)
	// Removed entries are no longer in the ledger; stamp them explicitly so
	// the terminal write outranks every snapshot taken before it.
	c.stampRevision(scope, entry)
	notified := c.notifier.Sweep(scope.ledger.Waiting())

	snapshot := *entry
	dispSnapshot := scope.ledger.SnapshotOrdered()
	var doctorSnapshot []domain.QueueEntry
	if snapshot.DoctorID != nil {
		doctorSnapshot = scope.ledger.SnapshotDoctor(*snapshot.DoctorID)
	}
	c.release(scope)

	if err := c.storage.SaveQueueEntry(ctx, &snapshot); err != nil {
		c.restore(scope, entry, before, removed, restoreAt, avgMinutes)
		return nil, apperrors.NewUnavailable("storage", err)
	}
	if removed {
		c.unindexEntry(entryID)
	}
	// Positions of the surviving WAITING entries changed with the
	// mutation; persist them and the freshly marked notifications.
	c.persistBestEffort(ctx, dispSnapshot)
	c.persistBestEffort(ctx, notified)

	c.publish(ctx, events.Event{
		Type:         events.EventQueueStatusChanged,
		DispensaryID: dispensary.ID,
		Actor:        actor,
		Payload: events.QueueStatusChangedPayload{
			Entry:     snapshot,
			OldStatus: oldStatus,
			NewStatus: snapshot.Status,
			Reason:    reason,
		},
	})
	c.publishScopeUpdates(ctx, dispensary.ID, snapshot.DoctorID, dispSnapshot, doctorSnapshot)
	c.publishNotifications(ctx, dispensary.ID, notified)

	return &snapshot, nil
}

// Cancel is a convenience wrapper for the CANCELLED transition.
func (c *Coordinator) Cancel(ctx context.Context, entryID, reason, actor string) (*domain.QueueEntry, error) {
	return c.AdvanceStatus(ctx, entryID, domain.VisitCancelled, actor, reason)
}

// Promote moves the WAITING entry at fromPosition to toPosition within a
// dispensary's line, shifting the intervening entries. Emergency
// escalation path.
func (c *Coordinator) Promote(ctx context.Context, dispensaryID string, fromPosition, toPosition int) error {
	dispensary, err := c.storage.GetDispensary(ctx, dispensaryID)
	if err != nil {
		return mapStorageErr(err, "dispensary", dispensaryID)
	}
	scope, err := c.ensureScope(ctx, dispensary)
	if err != nil {
		return err
	}
	if err := c.acquire(ctx, scope, dispensary.ID); err != nil {
		return err
	}
	if err := scope.ledger.Reorder(fromPosition, toPosition); err != nil {
		c.release(scope)
		return err
	}
	scope.ledger.Refresh(c.estimator)
	c.stampRevision(scope)
	notified := c.notifier.Sweep(scope.ledger.Waiting())
	dispSnapshot := scope.ledger.SnapshotOrdered()
	c.release(scope)

	c.persistBestEffort(ctx, dispSnapshot)
	c.persistBestEffort(ctx, notified)
	c.publishScopeUpdates(ctx, dispensary.ID, nil, dispSnapshot, nil)
	c.publishNotifications(ctx, dispensary.ID, notified)
	return nil
}

// QueueByDispensary returns the WAITING entries of a dispensary in
// position order. Read-only.
func (c *Coordinator) QueueByDispensary(ctx context.Context, dispensaryID string) ([]domain.QueueEntry, error) {
	dispensary, err := c.storage.GetDispensary(ctx, dispensaryID)
	if err != nil {
		return nil, mapStorageErr(err, "dispensary", dispensaryID)
	}
	scope, err := c.ensureScope(ctx, dispensary)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(ctx, scope, dispensary.ID); err != nil {
		return nil, err
	}
	snapshot := scope.ledger.SnapshotOrdered()
	c.release(scope)
	return snapshot, nil
}

// QueueByDoctor returns the WAITING entries assigned to a doctor in
// doctor-scope order. A doctor's queue is a subset of their dispensary's,
// so the snapshot is taken under that dispensary's lock.
func (c *Coordinator) QueueByDoctor(ctx context.Context, doctorID string) ([]domain.QueueEntry, error) {
	doctor, err := c.storage.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, mapStorageErr(err, "doctor", doctorID)
	}
	if doctor.DispensaryID != nil {
		dispensary, err := c.storage.GetDispensary(ctx, *doctor.DispensaryID)
		if err != nil {
			return nil, mapStorageErr(err, "dispensary", *doctor.DispensaryID)
		}
		scope, err := c.ensureScope(ctx, dispensary)
		if err != nil {
			return nil, err
		}
		if err := c.acquire(ctx, scope, dispensary.ID); err != nil {
			return nil, err
		}
		snapshot := scope.ledger.SnapshotDoctor(doctorID)
		c.release(scope)
		return snapshot, nil
	}

	// Unrostered doctor: collect across every loaded scope.
	var out []domain.QueueEntry
	for _, scope := range c.loadedScopes() {
		if err := c.acquire(ctx, scope, doctorID); err != nil {
			return nil, err
		}
		out = append(out, scope.ledger.SnapshotDoctor(doctorID)...)
		c.release(scope)
	}
	return out, nil
}

// PatientHistory returns a patient's past and present entries, newest
// first. Terminal entries persist as history in storage.
func (c *Coordinator) PatientHistory(ctx context.Context, patientID string, limit int) ([]domain.QueueEntry, error) {
	entries, err := c.storage.ListEntriesByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, mapStorageErr(err, "patient", patientID)
	}
	return entries, nil
}

// GetEntry resolves a single entry, live from the ledger when active.
func (c *Coordinator) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	if dispensaryID, ok := c.lookupEntry(entryID); ok {
		if dispensary, err := c.storage.GetDispensary(ctx, dispensaryID); err == nil {
			scope, err := c.ensureScope(ctx, dispensary)
			if err != nil {
				return nil, err
			}
			if err := c.acquire(ctx, scope, dispensaryID); err != nil {
				return nil, err
			}
			if entry, ok := scope.ledger.Get(entryID); ok {
				snapshot := *entry
				c.release(scope)
				return &snapshot, nil
			}
			c.release(scope)
		}
	}
	entry, err := c.storage.GetQueueEntry(ctx, entryID)
	if err != nil {
		return nil, mapStorageErr(err, "queue entry", entryID)
	}
	return entry, nil
}

func (c *Coordinator) ensureScope(ctx context.Context, dispensary *domain.Dispensary) (*scopeState, error) {
	c.mu.Lock()
	scope, ok := c.scopes[dispensary.ID]
	if !ok {
		capacity := dispensary.MaxQueueCapacity
		if capacity <= 0 {
			capacity = c.defaultCapacity
		}
		scope = &scopeState{
			lock:   make(chan struct{}, 1),
			ledger: NewLedger(dispensary.ID, capacity),
		}
		c.scopes[dispensary.ID] = scope
	}
	c.mu.Unlock()

	scope.hydrateMu.Lock()
	defer scope.hydrateMu.Unlock()
	if scope.hydrated {
		return scope, nil
	}
	if err := c.hydrateScope(ctx, dispensary.ID, scope); err != nil {
		return nil, err
	}
	scope.hydrated = true
	return scope, nil
}

// hydrateScope rebuilds a ledger from persisted active entries after a
// restart. A failed load leaves the scope unhydrated so the next touch
// retries instead of serving an empty line.
func (c *Coordinator) hydrateScope(ctx context.Context, dispensaryID string, scope *scopeState) error {
	stored, err := c.storage.ListActiveEntries(ctx, dispensaryID)
	if err != nil {
		c.logger.Warn("ledger hydration failed",
			zap.String("dispensary_id", dispensaryID), zap.Error(err))
		return apperrors.NewUnavailable("storage", err)
	}
	if len(stored) == 0 {
		return nil
	}

	avgByDoctor := make(map[string]*int)
	entries := make([]*domain.QueueEntry, 0, len(stored))
	avgMinutes := make(map[string]*int, len(stored))
	var maxRev int64
	for i := range stored {
		entry := stored[i]
		if entry.Revision > maxRev {
			maxRev = entry.Revision
		}
		if entry.DoctorID != nil {
			avg, ok := avgByDoctor[*entry.DoctorID]
			if !ok {
				if doctor, err := c.storage.GetDoctor(ctx, *entry.DoctorID); err == nil {
					avg = doctor.AvgConsultationMinutes
				}
				avgByDoctor[*entry.DoctorID] = avg
			}
			avgMinutes[entry.ID] = avg
		}
		entries = append(entries, &entry)
	}

	if err := c.acquire(ctx, scope, dispensaryID); err != nil {
		return err
	}
	scope.ledger.Hydrate(entries, avgMinutes)
	scope.ledger.Refresh(c.estimator)
	// Resume the write sequence where the stored rows left off.
	if maxRev > scope.rev {
		scope.rev = maxRev
	}
	c.release(scope)

	c.mu.Lock()
	for _, entry := range entries {
		c.entryIndex[entry.ID] = dispensaryID
	}
	c.mu.Unlock()
	c.logger.Info("ledger hydrated",
		zap.String("dispensary_id", dispensaryID), zap.Int("entries", len(entries)))
	return nil
}

// stampRevision bumps the scope's write sequence and stamps it onto every
// active entry plus any extras no longer held by the ledger. Must be
// called with the scope lock held, after the mutation and before
// snapshots are taken, so out-of-order saves cannot clobber newer rows.
func (c *Coordinator) stampRevision(scope *scopeState, extras ...*domain.QueueEntry) {
	scope.rev++
	scope.ledger.StampRevisions(scope.rev)
	for _, extra := range extras {
		extra.Revision = scope.rev
	}
}

func (c *Coordinator) acquire(ctx context.Context, scope *scopeState, scopeID string) error {
	timer := time.NewTimer(c.acquireTimeout)
	defer timer.Stop()
	select {
	case scope.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return apperrors.NewBusy(scopeID)
	case <-ctx.Done():
		return apperrors.NewBusy(scopeID)
	}
}

func (c *Coordinator) release(scope *scopeState) {
	<-scope.lock
}

// evict unwinds a join whose persistence failed.
func (c *Coordinator) evict(scope *scopeState, entryID string) {
	if err := c.acquire(context.Background(), scope, entryID); err != nil {
		c.logger.Error("failed to unwind unpersisted entry", zap.String("entry_id", entryID))
		return
	}
	scope.ledger.Remove(entryID)
	scope.ledger.Refresh(c.estimator)
	c.release(scope)
}

// restore unwinds a status transition whose persistence failed.
func (c *Coordinator) restore(scope *scopeState, entry *domain.QueueEntry, before domain.QueueEntry, removed bool, at int, avgMinutes *int) {
	if err := c.acquire(context.Background(), scope, entry.ID); err != nil {
		c.logger.Error("failed to unwind unpersisted transition", zap.String("entry_id", entry.ID))
		return
	}
	*entry = before
	if removed {
		scope.ledger.InsertAt(at, entry, avgMinutes)
	}
	scope.ledger.Resequence()
	scope.ledger.Refresh(c.estimator)
	c.release(scope)
}

func (c *Coordinator) lookupEntry(entryID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dispensaryID, ok := c.entryIndex[entryID]
	return dispensaryID, ok
}

func (c *Coordinator) indexEntry(entryID, dispensaryID string) {
	c.mu.Lock()
	c.entryIndex[entryID] = dispensaryID
	c.mu.Unlock()
}

func (c *Coordinator) unindexEntry(entryID string) {
	c.mu.Lock()
	delete(c.entryIndex, entryID)
	c.mu.Unlock()
}

func (c *Coordinator) loadedScopes() []*scopeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*scopeState, 0, len(c.scopes))
	for _, scope := range c.scopes {
		out = append(out, scope)
	}
	return out
}

// persistBestEffort writes derived updates (re-packed positions,
// notification flags) outside the scope lock. Failures are logged, not
// surfaced: the ledger remains the ordering authority.
func (c *Coordinator) persistBestEffort(ctx context.Context, entries []domain.QueueEntry) {
	for i := range entries {
		if err := c.storage.SaveQueueEntry(ctx, &entries[i]); err != nil {
			c.logger.Warn("failed to persist derived entry state",
				zap.String("entry_id", entries[i].ID), zap.Error(err))
		}
	}
}

func (c *Coordinator) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.estimator.Now()
	}
	_ = c.dispatcher.Publish(ctx, event)
}

func (c *Coordinator) publishScopeUpdates(ctx context.Context, dispensaryID string, doctorID *string, dispEntries, doctorEntries []domain.QueueEntry) {
	c.publish(ctx, events.Event{
		Type:         events.EventQueueUpdated,
		DispensaryID: dispensaryID,
		Payload: events.QueueUpdatedPayload{
			ScopeKind: string(ScopeDispensary),
			ScopeID:   dispensaryID,
			Entries:   dispEntries,
		},
	})
	if doctorID != nil {
		c.publish(ctx, events.Event{
			Type:         events.EventQueueUpdated,
			DispensaryID: dispensaryID,
			Payload: events.QueueUpdatedPayload{
				ScopeKind: string(ScopeDoctor),
				ScopeID:   *doctorID,
				Entries:   doctorEntries,
			},
		})
	}
}

func (c *Coordinator) publishNotifications(ctx context.Context, dispensaryID string, notified []domain.QueueEntry) {
	for _, entry := range notified {
		c.publish(ctx, events.Event{
			Type:         events.EventPatientNotified,
			DispensaryID: dispensaryID,
			Payload: events.PatientNotifiedPayload{
				PatientID: entry.PatientID,
				Entry:     entry,
			},
		})
	}
}

func mapStorageErr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewUnavailable("storage", err)
}
