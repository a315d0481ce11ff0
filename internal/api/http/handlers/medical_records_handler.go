package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/dto"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/service"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// MedicalRecordsHandler manages consultation record endpoints.
type MedicalRecordsHandler struct {
	service *service.MedicalRecordService
}

// NewMedicalRecordsHandler constructs handler.
func NewMedicalRecordsHandler(recordService *service.MedicalRecordService) *MedicalRecordsHandler {
	return &MedicalRecordsHandler{service: recordService}
}

// Create POST /medical-records.
func (h *MedicalRecordsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Doctor == nil {
		return apperrors.NewUnauthorized("doctor required")
	}
	var req dto.CreateMedicalRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PatientID == "" || req.DispensaryID == "" {
		return apperrors.NewValidationError("patient_id and dispensary_id required", nil)
	}

	record, err := h.service.Create(c.Context(), service.CreateMedicalRecordInput{
		PatientID:     req.PatientID,
		DoctorID:      principal.Doctor.ID,
		DispensaryID:  req.DispensaryID,
		QueueEntryID:  req.QueueEntryID,
		Diagnosis:     req.Diagnosis,
		Prescriptions: req.Prescriptions,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMedicalRecordResponse(record)})
}

// Get GET /medical-records/:id.
func (h *MedicalRecordsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	record, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !h.canAccess(principal, record) {
		return apperrors.NewForbidden("record belongs to another patient")
	}
	return c.JSON(fiber.Map{"data": dto.NewMedicalRecordResponse(record)})
}

// ListMine GET /medical-records. Patients see their own history;
// doctors see records they authored.
func (h *MedicalRecordsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	switch {
	case principal.Patient != nil:
		records, err := h.service.ListByPatient(c.Context(), principal.Patient.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewMedicalRecordResponses(records)})
	case principal.Doctor != nil:
		records, err := h.service.ListByDoctor(c.Context(), principal.Doctor.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewMedicalRecordResponses(records)})
	default:
		return apperrors.NewForbidden("patient or doctor account required")
	}
}

// ListByPatient GET /patients/:id/medical-records.
func (h *MedicalRecordsHandler) ListByPatient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.Role != domain.RoleDoctor && principal.User.Role != domain.RoleDispensaryAdmin {
		return apperrors.NewForbidden("staff role required")
	}
	records, err := h.service.ListByPatient(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMedicalRecordResponses(records)})
}

func (h *MedicalRecordsHandler) canAccess(principal *auth.Principal, record *domain.MedicalRecord) bool {
	switch {
	case principal.Patient != nil:
		return record.PatientID == principal.Patient.ID
	case principal.Doctor != nil:
		return record.DoctorID == principal.Doctor.ID
	case principal.User.Role == domain.RoleDispensaryAdmin:
		return true
	}
	return false
}
