package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/dto"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/queue"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// QueueHandler exposes the live queue operations.
type QueueHandler struct {
	coordinator *queue.Coordinator
}

// NewQueueHandler constructs handler.
func NewQueueHandler(coordinator *queue.Coordinator) *QueueHandler {
	return &QueueHandler{coordinator: coordinator}
}

// Join POST /queue/join.
func (h *QueueHandler) Join(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Patient == nil {
		return apperrors.NewUnauthorized("patient required")
	}
	var req dto.JoinQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DispensaryID == "" {
		return apperrors.NewValidationError("dispensary_id required", nil)
	}

	entry, err := h.coordinator.Join(c.UserContext(), queue.JoinInput{
		PatientID:      principal.Patient.ID,
		DispensaryID:   req.DispensaryID,
		DoctorID:       req.DoctorID,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewQueueEntryResponse(entry)})
}

// DispensaryQueue GET /queue/dispensaries/:id.
func (h *QueueHandler) DispensaryQueue(c *fiber.Ctx) error {
	dispensaryID := c.Params("id")
	entries, err := h.coordinator.QueueByDispensary(c.UserContext(), dispensaryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueSnapshotResponse("dispensary", dispensaryID, entries)})
}

// DoctorQueue GET /queue/doctors/:id.
func (h *QueueHandler) DoctorQueue(c *fiber.Ctx) error {
	doctorID := c.Params("id")
	entries, err := h.coordinator.QueueByDoctor(c.UserContext(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueSnapshotResponse("doctor", doctorID, entries)})
}

// GetEntry GET /queue/entries/:id.
func (h *QueueHandler) GetEntry(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	entry, err := h.coordinator.GetEntry(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if principal.Patient != nil && entry.PatientID != principal.Patient.ID {
		return apperrors.NewForbidden("entry belongs to another patient")
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueEntryResponse(entry)})
}

// UpdateStatus PATCH /queue/entries/:id/status.
func (h *QueueHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.Role != domain.RoleDoctor && principal.User.Role != domain.RoleDispensaryAdmin {
		return apperrors.NewForbidden("staff role required")
	}
	var req dto.UpdateVisitStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	entry, err := h.coordinator.AdvanceStatus(c.UserContext(), c.Params("id"), req.Status, principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueEntryResponse(entry)})
}

// Cancel POST /queue/entries/:id/cancel.
func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CancelVisitRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entryID := c.Params("id")
	if principal.Patient != nil {
		current, err := h.coordinator.GetEntry(c.UserContext(), entryID)
		if err != nil {
			return err
		}
		if current.PatientID != principal.Patient.ID {
			return apperrors.NewForbidden("entry belongs to another patient")
		}
	}

	entry, err := h.coordinator.Cancel(c.UserContext(), entryID, req.Reason, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueEntryResponse(entry)})
}

// Promote POST /queue/dispensaries/:id/promote.
func (h *QueueHandler) Promote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil || principal.User.Role != domain.RoleDispensaryAdmin {
		return apperrors.NewForbidden("dispensary admin required")
	}
	var req dto.PromoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.FromPosition < 1 || req.ToPosition < 1 {
		return apperrors.NewValidationError("positions are 1-based", nil)
	}

	if err := h.coordinator.Promote(c.UserContext(), c.Params("id"), req.FromPosition, req.ToPosition); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"promoted": true}})
}

// History GET /queue/history.
func (h *QueueHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Patient == nil {
		return apperrors.NewUnauthorized("patient required")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	entries, err := h.coordinator.PatientHistory(c.UserContext(), principal.Patient.ID, limit)
	if err != nil {
		return err
	}
	items := make([]dto.QueueEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewQueueEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
