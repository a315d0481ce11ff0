package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/repository"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Patient and Doctor are
// populated when the user holds that role and the profile exists.
type Principal struct {
	User    *domain.User
	Patient *domain.Patient
	Doctor  *domain.Doctor
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(
	tokens *TokenManager,
	users repository.UserRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, patients: patients, doctors: doctors}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewForbidden("account suspended")
	}

	principal := &Principal{User: user}

	switch user.Role {
	case domain.RolePatient:
		patient, err := m.patients.GetByUserID(c.Context(), user.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
		principal.Patient = patient
	case domain.RoleDoctor:
		doctor, err := m.doctors.GetByUserID(c.Context(), user.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
		principal.Doctor = doctor
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
