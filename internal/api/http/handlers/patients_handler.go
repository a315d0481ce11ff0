package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/dto"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/service"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// PatientsHandler manages patient profile endpoints.
type PatientsHandler struct {
	service *service.PatientService
}

// NewPatientsHandler constructs handler.
func NewPatientsHandler(patientService *service.PatientService) *PatientsHandler {
	return &PatientsHandler{service: patientService}
}

// Me GET /patients/me.
func (h *PatientsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Patient == nil {
		return apperrors.NewUnauthorized("patient required")
	}
	return c.JSON(fiber.Map{"data": dto.NewPatientResponse(principal.Patient)})
}

// UpdateSelf PATCH /patients/me.
func (h *PatientsHandler) UpdateSelf(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Patient == nil {
		return apperrors.NewUnauthorized("patient required")
	}
	var req dto.UpdatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patient, err := h.service.Update(c.Context(), principal.Patient.ID, service.UpdatePatientInput{
		DateOfBirth:           req.DateOfBirth,
		Gender:                req.Gender,
		BloodGroup:            req.BloodGroup,
		Address:               req.Address,
		City:                  req.City,
		Allergies:             req.Allergies,
		ChronicConditions:     req.ChronicConditions,
		CurrentMedications:    req.CurrentMedications,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPatientResponse(patient)})
}

// Get GET /patients/:id. Doctors and admins can look up any profile.
func (h *PatientsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.Role != domain.RoleDoctor && principal.User.Role != domain.RoleDispensaryAdmin {
		return apperrors.NewForbidden("staff role required")
	}
	patient, user, err := h.service.GetWithUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"patient": dto.NewPatientResponse(patient),
		"user":    dto.NewUserResponse(user),
	}})
}
