package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/repository"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// CreateMedicalRecordInput carries fields for recording a consultation.
type CreateMedicalRecordInput struct {
	PatientID     string
	DoctorID      string
	DispensaryID  string
	QueueEntryID  *string
	Diagnosis     string
	Prescriptions []string
	Notes         string
	VisitDate     time.Time
}

// MedicalRecordService manages consultation records.
type MedicalRecordService struct {
	records repository.MedicalRecordRepository
	entries repository.QueueRepository
}

// NewMedicalRecordService builds the service.
func NewMedicalRecordService(records repository.MedicalRecordRepository, entries repository.QueueRepository) *MedicalRecordService {
	return &MedicalRecordService{records: records, entries: entries}
}

// Create records a consultation outcome. When a queue entry is
// referenced it must exist and belong to the same patient.
func (s *MedicalRecordService) Create(ctx context.Context, input CreateMedicalRecordInput) (*domain.MedicalRecord, error) {
	if input.Diagnosis == "" {
		return nil, apperrors.NewValidationError("diagnosis is required", nil)
	}
	if input.VisitDate.IsZero() {
		input.VisitDate = time.Now().UTC()
	}

	if input.QueueEntryID != nil {
		entry, err := s.entries.GetByID(ctx, *input.QueueEntryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("queue entry", map[string]any{"id": *input.QueueEntryID})
			}
			return nil, err
		}
		if entry.PatientID != input.PatientID {
			return nil, apperrors.NewValidationError("queue entry belongs to another patient", map[string]any{
				"queue_entry_id": *input.QueueEntryID,
			})
		}
	}

	record := &domain.MedicalRecord{
		PatientID:     input.PatientID,
		DoctorID:      input.DoctorID,
		DispensaryID:  input.DispensaryID,
		QueueEntryID:  input.QueueEntryID,
		Diagnosis:     input.Diagnosis,
		Prescriptions: input.Prescriptions,
		Notes:         input.Notes,
		VisitDate:     input.VisitDate,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get loads one record.
func (s *MedicalRecordService) Get(ctx context.Context, id string) (*domain.MedicalRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("medical record", map[string]any{"id": id})
		}
		return nil, err
	}
	return record, nil
}

// ListByPatient returns a patient's records, newest visit first.
func (s *MedicalRecordService) ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// ListByDoctor returns records authored by a doctor, newest visit first.
func (s *MedicalRecordService) ListByDoctor(ctx context.Context, doctorID string) ([]domain.MedicalRecord, error) {
	return s.records.ListByDoctor(ctx, doctorID)
}
