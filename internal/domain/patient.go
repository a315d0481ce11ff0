package domain

import "time"

// Patient holds the clinical profile linked to a PATIENT user.
type Patient struct {
	ID                    string
	UserID                string
	DateOfBirth           *time.Time
	Gender                string
	BloodGroup            string
	Address               string
	City                  string
	Allergies             []string
	ChronicConditions     []string
	CurrentMedications    []string
	EmergencyContactName  string
	EmergencyContactPhone string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
