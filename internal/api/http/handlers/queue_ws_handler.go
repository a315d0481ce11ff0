package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mediconnect/clinic-queue/internal/broadcast"
)

// QueueWSHandler upgrades connections into live queue subscriptions.
type QueueWSHandler struct {
	hub *broadcast.Hub
}

// NewQueueWSHandler constructs handler.
func NewQueueWSHandler(hub *broadcast.Hub) *QueueWSHandler {
	return &QueueWSHandler{hub: hub}
}

// Upgrade gates the route to websocket requests.
func (h *QueueWSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// DispensaryStream GET /ws/dispensaries/:id.
func (h *QueueWSHandler) DispensaryStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.hub.Subscribe(conn, "dispensary:"+conn.Params("id"))
	})
}

// DoctorStream GET /ws/doctors/:id.
func (h *QueueWSHandler) DoctorStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.hub.Subscribe(conn, "doctor:"+conn.Params("id"))
	})
}

// PatientStream GET /ws/patients/:id.
func (h *QueueWSHandler) PatientStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.hub.Subscribe(conn, "patient:"+conn.Params("id"))
	})
}
