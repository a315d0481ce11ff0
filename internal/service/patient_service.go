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

// UpdatePatientInput carries updatable profile fields; nil pointers and
// nil slices leave the stored value unchanged.
type UpdatePatientInput struct {
	DateOfBirth           *time.Time
	Gender                *string
	BloodGroup            *string
	Address               *string
	City                  *string
	Allergies             []string
	ChronicConditions     []string
	CurrentMedications    []string
	EmergencyContactName  *string
	EmergencyContactPhone *string
}

// PatientService manages patient profiles.
type PatientService struct {
	patients repository.PatientRepository
	users    repository.UserRepository
}

// NewPatientService builds the service.
func NewPatientService(patients repository.PatientRepository, users repository.UserRepository) *PatientService {
	return &PatientService{patients: patients, users: users}
}

// Get loads one patient profile.
func (s *PatientService) Get(ctx context.Context, id string) (*domain.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient", map[string]any{"id": id})
		}
		return nil, err
	}
	return patient, nil
}

// GetWithUser loads a patient profile along with its account record.
func (s *PatientService) GetWithUser(ctx context.Context, id string) (*domain.Patient, *domain.User, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetByID(ctx, patient.UserID)
	if err != nil {
		return nil, nil, err
	}
	return patient, user, nil
}

// Update applies partial changes to a patient profile.
func (s *PatientService) Update(ctx context.Context, id string, input UpdatePatientInput) (*domain.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DateOfBirth != nil {
		patient.DateOfBirth = input.DateOfBirth
	}
	if input.Gender != nil {
		patient.Gender = *input.Gender
	}
	if input.BloodGroup != nil {
		patient.BloodGroup = *input.BloodGroup
	}
	if input.Address != nil {
		patient.Address = *input.Address
	}
	if input.City != nil {
		patient.City = *input.City
	}
	if input.Allergies != nil {
		patient.Allergies = input.Allergies
	}
	if input.ChronicConditions != nil {
		patient.ChronicConditions = input.ChronicConditions
	}
	if input.CurrentMedications != nil {
		patient.CurrentMedications = input.CurrentMedications
	}
	if input.EmergencyContactName != nil {
		patient.EmergencyContactName = *input.EmergencyContactName
	}
	if input.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = *input.EmergencyContactPhone
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}
