package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/repository"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// CreateDispensaryInput carries fields for registering a clinic.
type CreateDispensaryInput struct {
	Name             string
	LicenseNumber    string
	AdminUserID      string
	Address          string
	City             string
	PhoneNumber      string
	Email            string
	Latitude         *float64
	Longitude        *float64
	Services         []string
	OperatingHours   string
	MaxQueueCapacity int
}

// UpdateDispensaryInput carries updatable clinic fields; nil pointers
// leave the stored value unchanged.
type UpdateDispensaryInput struct {
	Name             *string
	Address          *string
	City             *string
	PhoneNumber      *string
	Email            *string
	Latitude         *float64
	Longitude        *float64
	Services         []string
	OperatingHours   *string
	MaxQueueCapacity *int
}

// DispensarySummary pairs a clinic with its live queue length.
type DispensarySummary struct {
	Dispensary   domain.Dispensary
	WaitingCount int
}

// DispensaryService manages clinic locations and their rosters.
type DispensaryService struct {
	dispensaries repository.DispensaryRepository
	doctors      repository.DoctorRepository
	entries      repository.QueueRepository
}

// DispensaryDependencies encapsulates repo requirements.
type DispensaryDependencies struct {
	DispensaryRepo repository.DispensaryRepository
	DoctorRepo     repository.DoctorRepository
	QueueRepo      repository.QueueRepository
}

// NewDispensaryService builds the service.
func NewDispensaryService(deps DispensaryDependencies) *DispensaryService {
	return &DispensaryService{
		dispensaries: deps.DispensaryRepo,
		doctors:      deps.DoctorRepo,
		entries:      deps.QueueRepo,
	}
}

// Create registers a new dispensary.
func (s *DispensaryService) Create(ctx context.Context, input CreateDispensaryInput) (*domain.Dispensary, error) {
	if input.Name == "" || input.LicenseNumber == "" {
		return nil, apperrors.NewValidationError("name and license number are required", nil)
	}
	dispensary := &domain.Dispensary{
		Name:             input.Name,
		LicenseNumber:    input.LicenseNumber,
		AdminUserID:      input.AdminUserID,
		Address:          input.Address,
		City:             input.City,
		PhoneNumber:      input.PhoneNumber,
		Email:            input.Email,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		Services:         input.Services,
		OperatingHours:   input.OperatingHours,
		IsOpen:           false,
		MaxQueueCapacity: input.MaxQueueCapacity,
	}
	if err := s.dispensaries.Create(ctx, dispensary); err != nil {
		return nil, err
	}
	return dispensary, nil
}

// Get loads one dispensary.
func (s *DispensaryService) Get(ctx context.Context, id string) (*domain.Dispensary, error) {
	dispensary, err := s.dispensaries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("dispensary", map[string]any{"id": id})
		}
		return nil, err
	}
	return dispensary, nil
}

// GetForAdmin loads the dispensary administered by the given user.
func (s *DispensaryService) GetForAdmin(ctx context.Context, adminUserID string) (*domain.Dispensary, error) {
	dispensary, err := s.dispensaries.GetByAdminUserID(ctx, adminUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("dispensary", map[string]any{"admin_user_id": adminUserID})
		}
		return nil, err
	}
	return dispensary, nil
}

// Update applies partial changes to a dispensary.
func (s *DispensaryService) Update(ctx context.Context, id string, input UpdateDispensaryInput) (*domain.Dispensary, error) {
	dispensary, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		dispensary.Name = *input.Name
	}
	if input.Address != nil {
		dispensary.Address = *input.Address
	}
	if input.City != nil {
		dispensary.City = *input.City
	}
	if input.PhoneNumber != nil {
		dispensary.PhoneNumber = *input.PhoneNumber
	}
	if input.Email != nil {
		dispensary.Email = *input.Email
	}
	if input.Latitude != nil {
		dispensary.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		dispensary.Longitude = input.Longitude
	}
	if input.Services != nil {
		dispensary.Services = input.Services
	}
	if input.OperatingHours != nil {
		dispensary.OperatingHours = *input.OperatingHours
	}
	if input.MaxQueueCapacity != nil {
		dispensary.MaxQueueCapacity = *input.MaxQueueCapacity
	}

	if err := s.dispensaries.Update(ctx, dispensary); err != nil {
		return nil, err
	}
	return dispensary, nil
}

// SetOpen toggles whether the dispensary accepts queue joins.
func (s *DispensaryService) SetOpen(ctx context.Context, id string, open bool) error {
	if err := s.dispensaries.SetOpen(ctx, id, open); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("dispensary", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

// List returns all dispensaries with their live queue lengths.
func (s *DispensaryService) List(ctx context.Context) ([]DispensarySummary, error) {
	dispensaries, err := s.dispensaries.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, dispensaries)
}

// SearchByCity returns dispensaries in a city with queue lengths.
func (s *DispensaryService) SearchByCity(ctx context.Context, city string) ([]DispensarySummary, error) {
	if city == "" {
		return nil, apperrors.NewValidationError("city is required", nil)
	}
	dispensaries, err := s.dispensaries.SearchByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, dispensaries)
}

// FindNearby returns dispensaries within radiusKm of the point, closest
// first, with queue lengths.
func (s *DispensaryService) FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]DispensarySummary, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperrors.NewValidationError("invalid coordinates", map[string]any{"lat": lat, "lon": lon})
	}
	if radiusKm <= 0 {
		radiusKm = 10
	}
	dispensaries, err := s.dispensaries.FindNearby(ctx, lat, lon, radiusKm)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, dispensaries)
}

// Doctors returns the doctor roster of a dispensary.
func (s *DispensaryService) Doctors(ctx context.Context, dispensaryID string) ([]domain.Doctor, error) {
	if _, err := s.Get(ctx, dispensaryID); err != nil {
		return nil, err
	}
	return s.doctors.ListByDispensary(ctx, dispensaryID)
}

// AddDoctor rosters a doctor at the dispensary.
func (s *DispensaryService) AddDoctor(ctx context.Context, dispensaryID, doctorID string) error {
	if _, err := s.Get(ctx, dispensaryID); err != nil {
		return err
	}
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("doctor", map[string]any{"id": doctorID})
		}
		return err
	}
	if doctor.DispensaryID != nil && *doctor.DispensaryID != dispensaryID {
		return apperrors.NewConflict("doctor is rostered at another dispensary",
			map[string]any{"doctor_id": doctorID})
	}
	return s.doctors.AssignDispensary(ctx, doctorID, &dispensaryID)
}

// RemoveDoctor takes a doctor off the dispensary's roster.
func (s *DispensaryService) RemoveDoctor(ctx context.Context, dispensaryID, doctorID string) error {
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("doctor", map[string]any{"id": doctorID})
		}
		return err
	}
	if doctor.DispensaryID == nil || *doctor.DispensaryID != dispensaryID {
		return apperrors.NewNotFound("doctor", map[string]any{
			"id":            doctorID,
			"dispensary_id": dispensaryID,
		})
	}
	return s.doctors.AssignDispensary(ctx, doctorID, nil)
}

func (s *DispensaryService) summarize(ctx context.Context, dispensaries []domain.Dispensary) ([]DispensarySummary, error) {
	summaries := make([]DispensarySummary, 0, len(dispensaries))
	for _, dispensary := range dispensaries {
		waiting, err := s.entries.CountWaiting(ctx, dispensary.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, DispensarySummary{Dispensary: dispensary, WaitingCount: waiting})
	}
	return summaries, nil
}
