package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// UpdatePatientRequest payload; omitted fields stay unchanged.
type UpdatePatientRequest struct {
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Gender                *string    `json:"gender"`
	BloodGroup            *string    `json:"blood_group"`
	Address               *string    `json:"address"`
	City                  *string    `json:"city"`
	Allergies             []string   `json:"allergies"`
	ChronicConditions     []string   `json:"chronic_conditions"`
	CurrentMedications    []string   `json:"current_medications"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone"`
}

// PatientResponse represents a patient profile.
type PatientResponse struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                string     `json:"gender,omitempty"`
	BloodGroup            string     `json:"blood_group,omitempty"`
	Address               string     `json:"address,omitempty"`
	City                  string     `json:"city,omitempty"`
	Allergies             []string   `json:"allergies,omitempty"`
	ChronicConditions     []string   `json:"chronic_conditions,omitempty"`
	CurrentMedications    []string   `json:"current_medications,omitempty"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// NewPatientResponse maps a domain patient.
func NewPatientResponse(patient *domain.Patient) PatientResponse {
	return PatientResponse{
		ID:                    patient.ID,
		UserID:                patient.UserID,
		DateOfBirth:           patient.DateOfBirth,
		Gender:                patient.Gender,
		BloodGroup:            patient.BloodGroup,
		Address:               patient.Address,
		City:                  patient.City,
		Allergies:             patient.Allergies,
		ChronicConditions:     patient.ChronicConditions,
		CurrentMedications:    patient.CurrentMedications,
		EmergencyContactName:  patient.EmergencyContactName,
		EmergencyContactPhone: patient.EmergencyContactPhone,
		CreatedAt:             patient.CreatedAt,
	}
}
