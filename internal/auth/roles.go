package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// RequireRole ensures the authenticated user holds one of the allowed
// roles. With no arguments it only requires authentication.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequirePatient ensures a PATIENT with a profile is authenticated.
func RequirePatient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil || principal.User.Role != domain.RolePatient || principal.Patient == nil {
			return fiber.NewError(http.StatusForbidden, "patient account required")
		}
		return c.Next()
	}
}

// RequireDoctor ensures a DOCTOR with a profile is authenticated.
func RequireDoctor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil || principal.User.Role != domain.RoleDoctor || principal.Doctor == nil {
			return fiber.NewError(http.StatusForbidden, "doctor account required")
		}
		return c.Next()
	}
}
