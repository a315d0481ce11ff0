package domain

import "time"

// MedicalRecord captures the outcome of a completed consultation.
type MedicalRecord struct {
	ID            string
	PatientID     string
	DoctorID      string
	DispensaryID  string
	QueueEntryID  *string
	Diagnosis     string
	Prescriptions []string
	Notes         string
	VisitDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
