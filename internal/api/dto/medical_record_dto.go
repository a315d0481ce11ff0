package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// CreateMedicalRecordRequest payload.
type CreateMedicalRecordRequest struct {
	PatientID     string   `json:"patient_id"`
	DispensaryID  string   `json:"dispensary_id"`
	QueueEntryID  *string  `json:"queue_entry_id"`
	Diagnosis     string   `json:"diagnosis"`
	Prescriptions []string `json:"prescriptions"`
	Notes         string   `json:"notes"`
}

// MedicalRecordResponse represents a consultation record.
type MedicalRecordResponse struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	DispensaryID  string    `json:"dispensary_id"`
	QueueEntryID  *string   `json:"queue_entry_id,omitempty"`
	Diagnosis     string    `json:"diagnosis"`
	Prescriptions []string  `json:"prescriptions,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	VisitDate     time.Time `json:"visit_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewMedicalRecordResponse maps a domain record.
func NewMedicalRecordResponse(record *domain.MedicalRecord) MedicalRecordResponse {
	return MedicalRecordResponse{
		ID:            record.ID,
		PatientID:     record.PatientID,
		DoctorID:      record.DoctorID,
		DispensaryID:  record.DispensaryID,
		QueueEntryID:  record.QueueEntryID,
		Diagnosis:     record.Diagnosis,
		Prescriptions: record.Prescriptions,
		Notes:         record.Notes,
		VisitDate:     record.VisitDate,
		CreatedAt:     record.CreatedAt,
	}
}

// NewMedicalRecordResponses maps a slice of records.
func NewMedicalRecordResponses(records []domain.MedicalRecord) []MedicalRecordResponse {
	out := make([]MedicalRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, NewMedicalRecordResponse(&records[i]))
	}
	return out
}
