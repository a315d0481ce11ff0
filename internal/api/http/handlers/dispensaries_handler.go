package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/dto"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/service"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// DispensariesHandler manages clinic endpoints.
type DispensariesHandler struct {
	service *service.DispensaryService
}

// NewDispensariesHandler constructs handler.
func NewDispensariesHandler(dispensaryService *service.DispensaryService) *DispensariesHandler {
	return &DispensariesHandler{service: dispensaryService}
}

// Create POST /dispensaries.
func (h *DispensariesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateDispensaryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	dispensary, err := h.service.Create(c.Context(), service.CreateDispensaryInput{
		Name:             req.Name,
		LicenseNumber:    req.LicenseNumber,
		AdminUserID:      principal.User.ID,
		Address:          req.Address,
		City:             req.City,
		PhoneNumber:      req.PhoneNumber,
		Email:            req.Email,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Services:         req.Services,
		OperatingHours:   req.OperatingHours,
		MaxQueueCapacity: req.MaxQueueCapacity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDispensaryResponse(dispensary)})
}

// List GET /dispensaries.
func (h *DispensariesHandler) List(c *fiber.Ctx) error {
	if city := c.Query("city"); city != "" {
		summaries, err := h.service.SearchByCity(c.Context(), city)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewDispensarySummaryResponses(summaries)})
	}
	summaries, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDispensarySummaryResponses(summaries)})
}

// Nearby GET /dispensaries/nearby?lat=&lon=&radius_km=.
func (h *DispensariesHandler) Nearby(c *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		return apperrors.NewValidationError("lat and lon query params required", nil)
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km", "10"), 64)

	summaries, err := h.service.FindNearby(c.Context(), lat, lon, radius)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDispensarySummaryResponses(summaries)})
}

// Get GET /dispensaries/:id.
func (h *DispensariesHandler) Get(c *fiber.Ctx) error {
	dispensary, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDispensaryResponse(dispensary)})
}

// Update PATCH /dispensaries/:id.
func (h *DispensariesHandler) Update(c *fiber.Ctx) error {
	if err := h.requireAdminOf(c, c.Params("id")); err != nil {
		return err
	}
	var req dto.UpdateDispensaryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	dispensary, err := h.service.Update(c.Context(), c.Params("id"), service.UpdateDispensaryInput{
		Name:             req.Name,
		Address:          req.Address,
		City:             req.City,
		PhoneNumber:      req.PhoneNumber,
		Email:            req.Email,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Services:         req.Services,
		OperatingHours:   req.OperatingHours,
		MaxQueueCapacity: req.MaxQueueCapacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDispensaryResponse(dispensary)})
}

// SetOpen POST /dispensaries/:id/open.
func (h *DispensariesHandler) SetOpen(c *fiber.Ctx) error {
	if err := h.requireAdminOf(c, c.Params("id")); err != nil {
		return err
	}
	var req dto.SetOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetOpen(c.Context(), c.Params("id"), req.Open); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"open": req.Open}})
}

// Doctors GET /dispensaries/:id/doctors.
func (h *DispensariesHandler) Doctors(c *fiber.Ctx) error {
	doctors, err := h.service.Doctors(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDoctorResponses(doctors)})
}

// AddDoctor POST /dispensaries/:id/doctors/:doctorID.
func (h *DispensariesHandler) AddDoctor(c *fiber.Ctx) error {
	if err := h.requireAdminOf(c, c.Params("id")); err != nil {
		return err
	}
	if err := h.service.AddDoctor(c.Context(), c.Params("id"), c.Params("doctorID")); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"rostered": true}})
}

// RemoveDoctor DELETE /dispensaries/:id/doctors/:doctorID.
func (h *DispensariesHandler) RemoveDoctor(c *fiber.Ctx) error {
	if err := h.requireAdminOf(c, c.Params("id")); err != nil {
		return err
	}
	if err := h.service.RemoveDoctor(c.Context(), c.Params("id"), c.Params("doctorID")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"rostered": false}})
}

func (h *DispensariesHandler) requireAdminOf(c *fiber.Ctx, dispensaryID string) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	dispensary, err := h.service.Get(c.Context(), dispensaryID)
	if err != nil {
		return err
	}
	if dispensary.AdminUserID != principal.User.ID {
		return apperrors.NewForbidden("not the dispensary administrator")
	}
	return nil
}
