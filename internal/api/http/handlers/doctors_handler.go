package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/dto"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/service"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// DoctorsHandler manages doctor profile endpoints.
type DoctorsHandler struct {
	service *service.DoctorService
}

// NewDoctorsHandler constructs handler.
func NewDoctorsHandler(doctorService *service.DoctorService) *DoctorsHandler {
	return &DoctorsHandler{service: doctorService}
}

// Get GET /doctors/:id.
func (h *DoctorsHandler) Get(c *fiber.Ctx) error {
	doctor, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDoctorResponse(doctor)})
}

// List GET /doctors?specialization=.
func (h *DoctorsHandler) List(c *fiber.Ctx) error {
	doctors, err := h.service.ListBySpecialization(c.Context(), c.Query("specialization"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDoctorResponses(doctors)})
}

// UpdateSelf PATCH /doctors/me.
func (h *DoctorsHandler) UpdateSelf(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Doctor == nil {
		return apperrors.NewUnauthorized("doctor required")
	}
	var req dto.UpdateDoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	doctor, err := h.service.Update(c.Context(), principal.Doctor.ID, service.UpdateDoctorInput{
		DispensaryID:    req.DispensaryID,
		Qualification:   req.Qualification,
		Specialization:  req.Specialization,
		Bio:             req.Bio,
		YearsExperience: req.YearsExperience,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDoctorResponse(doctor)})
}

// SetAvailability POST /doctors/me/availability.
func (h *DoctorsHandler) SetAvailability(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Doctor == nil {
		return apperrors.NewUnauthorized("doctor required")
	}
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetAvailability(c.Context(), principal.Doctor.ID, req.Availability); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"availability": req.Availability}})
}

// RefreshAverage POST /doctors/me/average/refresh.
func (h *DoctorsHandler) RefreshAverage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Doctor == nil {
		return apperrors.NewUnauthorized("doctor required")
	}
	doctor, err := h.service.RefreshAverageConsultation(c.Context(), principal.Doctor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDoctorResponse(doctor)})
}
