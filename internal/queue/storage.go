package queue

import (
	"context"
	"errors"
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// ErrNotFound is returned by Storage implementations when an id does not
// resolve. The coordinator maps it onto the caller-facing NOT_FOUND error
// with scope context attached.
var ErrNotFound = errors.New("not found")

// Storage is the persistence collaborator consumed by the coordinator.
// The coordinator never performs Storage calls while holding a scope
// lock; durability is the implementation's concern.
//
// SaveQueueEntry writes carry Entry.Revision, assigned under the scope
// lock. Because saves happen after the lock is released, they can arrive
// out of order; implementations must discard a write whose revision is
// not newer than the stored row's.
type Storage interface {
	GetDispensary(ctx context.Context, id string) (*domain.Dispensary, error)
	GetDoctor(ctx context.Context, id string) (*domain.Doctor, error)
	GetPatient(ctx context.Context, id string) (*domain.Patient, error)
	GetQueueEntry(ctx context.Context, id string) (*domain.QueueEntry, error)
	SaveQueueEntry(ctx context.Context, entry *domain.QueueEntry) error
	FindActiveEntry(ctx context.Context, patientID, dispensaryID string) (*domain.QueueEntry, error)
	ListActiveEntries(ctx context.Context, dispensaryID string) ([]domain.QueueEntry, error)
	ListEntriesByPatient(ctx context.Context, patientID string, limit int) ([]domain.QueueEntry, error)
	CountWaiting(ctx context.Context, dispensaryID string) (int, error)
}

// NumberAllocator issues daily display ticket numbers, monotonically
// increasing within a dispensary-day and never reused.
type NumberAllocator interface {
	Next(ctx context.Context, dispensaryID string, day time.Time) (int, error)
}
