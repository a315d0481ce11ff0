package domain

import "time"

// UserRole enumerates platform roles.
type UserRole string

const (
	RolePatient         UserRole = "PATIENT"
	RoleDoctor          UserRole = "DOCTOR"
	RoleDispensaryAdmin UserRole = "DISPENSARY_ADMIN"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the account record behind every patient, doctor and admin.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
