package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/queue"
)

// queueStorage adapts the repository layer to the coordinator's Storage
// contract, translating pgx.ErrNoRows into queue.ErrNotFound.
type queueStorage struct {
	dispensaries DispensaryRepository
	doctors      DoctorRepository
	patients     PatientRepository
	entries      QueueRepository
}

// NewQueueStorage wires the repositories into a queue.Storage.
func NewQueueStorage(
	dispensaries DispensaryRepository,
	doctors DoctorRepository,
	patients PatientRepository,
	entries QueueRepository,
) queue.Storage {
	return &queueStorage{
		dispensaries: dispensaries,
		doctors:      doctors,
		patients:     patients,
		entries:      entries,
	}
}

func (s *queueStorage) GetDispensary(ctx context.Context, id string) (*domain.Dispensary, error) {
	dispensary, err := s.dispensaries.GetByID(ctx, id)
	return dispensary, translateErr(err)
}

func (s *queueStorage) GetDoctor(ctx context.Context, id string) (*domain.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, id)
	return doctor, translateErr(err)
}

func (s *queueStorage) GetPatient(ctx context.Context, id string) (*domain.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	return patient, translateErr(err)
}

func (s *queueStorage) GetQueueEntry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	return entry, translateErr(err)
}

func (s *queueStorage) SaveQueueEntry(ctx context.Context, entry *domain.QueueEntry) error {
	return translateErr(s.entries.Save(ctx, entry))
}

func (s *queueStorage) FindActiveEntry(ctx context.Context, patientID, dispensaryID string) (*domain.QueueEntry, error) {
	entry, err := s.entries.FindActiveByPatient(ctx, patientID, dispensaryID)
	return entry, translateErr(err)
}

func (s *queueStorage) ListActiveEntries(ctx context.Context, dispensaryID string) ([]domain.QueueEntry, error) {
	entries, err := s.entries.ListActiveByDispensary(ctx, dispensaryID)
	return entries, translateErr(err)
}

func (s *queueStorage) ListEntriesByPatient(ctx context.Context, patientID string, limit int) ([]domain.QueueEntry, error) {
	entries, err := s.entries.ListByPatient(ctx, patientID, limit)
	return entries, translateErr(err)
}

func (s *queueStorage) CountWaiting(ctx context.Context, dispensaryID string) (int, error) {
	count, err := s.entries.CountWaiting(ctx, dispensaryID)
	return count, translateErr(err)
}

func translateErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.ErrNotFound
	}
	return err
}
