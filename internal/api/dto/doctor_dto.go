package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// UpdateDoctorRequest payload; omitted fields stay unchanged.
type UpdateDoctorRequest struct {
	DispensaryID    *string `json:"dispensary_id"`
	Qualification   *string `json:"qualification"`
	Specialization  *string `json:"specialization"`
	Bio             *string `json:"bio"`
	YearsExperience *int    `json:"years_experience"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Availability domain.DoctorAvailability `json:"availability"`
}

// DoctorResponse represents a doctor profile.
type DoctorResponse struct {
	ID                     string                    `json:"id"`
	UserID                 string                    `json:"user_id"`
	DispensaryID           *string                   `json:"dispensary_id,omitempty"`
	Qualification          string                    `json:"qualification"`
	Specialization         string                    `json:"specialization"`
	LicenseNumber          string                    `json:"license_number"`
	YearsExperience        int                       `json:"years_experience"`
	Bio                    string                    `json:"bio,omitempty"`
	Availability           domain.DoctorAvailability `json:"availability"`
	AvgConsultationMinutes *int                      `json:"avg_consultation_minutes,omitempty"`
	TotalConsultations     int                       `json:"total_consultations"`
	CreatedAt              time.Time                 `json:"created_at"`
}

// NewDoctorResponse maps a domain doctor.
func NewDoctorResponse(doctor *domain.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                     doctor.ID,
		UserID:                 doctor.UserID,
		DispensaryID:           doctor.DispensaryID,
		Qualification:          doctor.Qualification,
		Specialization:         doctor.Specialization,
		LicenseNumber:          doctor.LicenseNumber,
		YearsExperience:        doctor.YearsExperience,
		Bio:                    doctor.Bio,
		Availability:           doctor.Availability,
		AvgConsultationMinutes: doctor.AvgConsultationMinutes,
		TotalConsultations:     doctor.TotalConsultations,
		CreatedAt:              doctor.CreatedAt,
	}
}

// NewDoctorResponses maps a slice of doctors.
func NewDoctorResponses(doctors []domain.Doctor) []DoctorResponse {
	out := make([]DoctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, NewDoctorResponse(&doctors[i]))
	}
	return out
}
