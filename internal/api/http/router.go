package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/api/http/handlers"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Queue          *handlers.QueueHandler
	QueueWS        *handlers.QueueWSHandler
	Dispensaries   *handlers.DispensariesHandler
	Doctors        *handlers.DoctorsHandler
	Patients       *handlers.PatientsHandler
	MedicalRecords *handlers.MedicalRecordsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/patients/register", cfg.Users.RegisterPatient)
	authGroup.Post("/doctors/register", cfg.Users.RegisterDoctor)
	authGroup.Post("/admins/register", cfg.Users.RegisterAdmin)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	authProtected.Get("/me", cfg.Users.Me)
	authProtected.Post("/password/change", cfg.Users.ChangePassword)

	dispensaries := app.Group("/dispensaries")
	dispensaries.Get("/", cfg.Dispensaries.List)
	dispensaries.Get("/nearby", cfg.Dispensaries.Nearby)
	dispensaries.Get("/:id", cfg.Dispensaries.Get)
	dispensaries.Get("/:id/doctors", cfg.Dispensaries.Doctors)
	dispensaries.Post("/", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDispensaryAdmin), cfg.Dispensaries.Create)
	dispensaries.Patch("/:id", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDispensaryAdmin), cfg.Dispensaries.Update)
	dispensaries.Post("/:id/open", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDispensaryAdmin), cfg.Dispensaries.SetOpen)
	dispensaries.Post("/:id/doctors/:doctorID", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDispensaryAdmin), cfg.Dispensaries.AddDoctor)
	dispensaries.Delete("/:id/doctors/:doctorID", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDispensaryAdmin), cfg.Dispensaries.RemoveDoctor)

	doctors := app.Group("/doctors")
	doctors.Get("/", cfg.Doctors.List)
	doctors.Patch("/me", cfg.AuthMiddleware.Handle, auth.RequireDoctor(), cfg.Doctors.UpdateSelf)
	doctors.Post("/me/availability", cfg.AuthMiddleware.Handle, auth.RequireDoctor(), cfg.Doctors.SetAvailability)
	doctors.Post("/me/average/refresh", cfg.AuthMiddleware.Handle, auth.RequireDoctor(), cfg.Doctors.RefreshAverage)
	doctors.Get("/:id", cfg.Doctors.Get)

	patients := app.Group("/patients", cfg.AuthMiddleware.Handle)
	patients.Get("/me", auth.RequirePatient(), cfg.Patients.Me)
	patients.Patch("/me", auth.RequirePatient(), cfg.Patients.UpdateSelf)
	patients.Get("/:id", cfg.Patients.Get)
	patients.Get("/:id/medical-records", cfg.MedicalRecords.ListByPatient)

	queueGroup := app.Group("/queue", cfg.AuthMiddleware.Handle)
	queueGroup.Post("/join", auth.RequirePatient(), cfg.Queue.Join)
	queueGroup.Get("/history", auth.RequirePatient(), cfg.Queue.History)
	queueGroup.Get("/dispensaries/:id", cfg.Queue.DispensaryQueue)
	queueGroup.Get("/doctors/:id", cfg.Queue.DoctorQueue)
	queueGroup.Post("/dispensaries/:id/promote", cfg.Queue.Promote)
	queueGroup.Get("/entries/:id", cfg.Queue.GetEntry)
	queueGroup.Patch("/entries/:id/status", cfg.Queue.UpdateStatus)
	queueGroup.Post("/entries/:id/cancel", cfg.Queue.Cancel)

	records := app.Group("/medical-records", cfg.AuthMiddleware.Handle)
	records.Post("/", cfg.MedicalRecords.Create)
	records.Get("/", cfg.MedicalRecords.ListMine)
	records.Get("/:id", cfg.MedicalRecords.Get)

	ws := app.Group("/ws", cfg.QueueWS.Upgrade)
	ws.Get("/dispensaries/:id", cfg.QueueWS.DispensaryStream())
	ws.Get("/doctors/:id", cfg.QueueWS.DoctorStream())
	ws.Get("/patients/:id", cfg.QueueWS.PatientStream())
}
