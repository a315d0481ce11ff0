package domain

import "time"

// DoctorAvailability enumerates a doctor's current working state.
type DoctorAvailability string

const (
	DoctorAvailable    DoctorAvailability = "AVAILABLE"
	DoctorBusy         DoctorAvailability = "BUSY"
	DoctorOnBreak      DoctorAvailability = "ON_BREAK"
	DoctorNotAvailable DoctorAvailability = "NOT_AVAILABLE"
)

// Doctor holds the professional profile linked to a DOCTOR user.
type Doctor struct {
	ID             string
	UserID         string
	DispensaryID   *string
	Qualification  string
	Specialization string
	LicenseNumber  string
	YearsExperience int
	Bio            string
	Availability   DoctorAvailability
	// AvgConsultationMinutes feeds wait estimates; nil or non-positive
	// values fall back to the configured default.
	AvgConsultationMinutes *int
	TotalConsultations     int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
