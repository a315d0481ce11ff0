package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// RegisterPatientRequest payload.
type RegisterPatientRequest struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Password    string     `json:"password"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	City        string     `json:"city"`
	Address     string     `json:"address"`
}

// RegisterDoctorRequest payload.
type RegisterDoctorRequest struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	PhoneNumber     string  `json:"phone_number"`
	Password        string  `json:"password"`
	DispensaryID    *string `json:"dispensary_id"`
	Qualification   string  `json:"qualification"`
	Specialization  string  `json:"specialization"`
	LicenseNumber   string  `json:"license_number"`
	YearsExperience int     `json:"years_experience"`
}

// RegisterAdminRequest payload.
type RegisterAdminRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the issued token with its subject.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse represents an account.
type UserResponse struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Email       string            `json:"email"`
	PhoneNumber string            `json:"phone_number"`
	Role        domain.UserRole   `json:"role"`
	Status      domain.UserStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role,
		Status:      user.Status,
		CreatedAt:   user.CreatedAt,
	}
}
