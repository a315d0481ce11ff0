package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/repository"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// UpdateDoctorInput carries updatable profile fields; nil pointers leave
// the stored value unchanged.
type UpdateDoctorInput struct {
	DispensaryID    *string
	Qualification   *string
	Specialization  *string
	Bio             *string
	YearsExperience *int
}

// DoctorService manages doctor profiles and availability.
type DoctorService struct {
	doctors repository.DoctorRepository
}

// NewDoctorService builds the service.
func NewDoctorService(doctors repository.DoctorRepository) *DoctorService {
	return &DoctorService{doctors: doctors}
}

// Get loads one doctor profile.
func (s *DoctorService) Get(ctx context.Context, id string) (*domain.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("doctor", map[string]any{"id": id})
		}
		return nil, err
	}
	return doctor, nil
}

// Update applies partial changes to a doctor profile.
func (s *DoctorService) Update(ctx context.Context, id string, input UpdateDoctorInput) (*domain.Doctor, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DispensaryID != nil {
		doctor.DispensaryID = input.DispensaryID
	}
	if input.Qualification != nil {
		doctor.Qualification = *input.Qualification
	}
	if input.Specialization != nil {
		doctor.Specialization = *input.Specialization
	}
	if input.Bio != nil {
		doctor.Bio = *input.Bio
	}
	if input.YearsExperience != nil {
		doctor.YearsExperience = *input.YearsExperience
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// SetAvailability updates the doctor's working state.
func (s *DoctorService) SetAvailability(ctx context.Context, id string, availability domain.DoctorAvailability) error {
	switch availability {
	case domain.DoctorAvailable, domain.DoctorBusy, domain.DoctorOnBreak, domain.DoctorNotAvailable:
	default:
		return apperrors.NewValidationError("unknown availability", map[string]any{"availability": availability})
	}
	if err := s.doctors.UpdateAvailability(ctx, id, availability); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("doctor", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

// ListBySpecialization finds doctors by specialty.
func (s *DoctorService) ListBySpecialization(ctx context.Context, specialization string) ([]domain.Doctor, error) {
	if specialization == "" {
		return nil, apperrors.NewValidationError("specialization is required", nil)
	}
	return s.doctors.ListBySpecialization(ctx, specialization)
}

// RefreshAverageConsultation recomputes the doctor's average consultation
// duration from completed visit history and stores it on the profile.
// New joins pick up the refreshed value; existing entries keep the
// average captured when they joined.
func (s *DoctorService) RefreshAverageConsultation(ctx context.Context, id string) (*domain.Doctor, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	avg, err := s.doctors.AverageConsultationMinutes(ctx, id)
	if err != nil {
		return nil, err
	}
	if avg != nil && *avg > 0 {
		doctor.AvgConsultationMinutes = avg
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}
