package domain

import "time"

// Dispensary is a walk-in clinic location with its own waiting line.
type Dispensary struct {
	ID            string
	Name          string
	LicenseNumber string
	AdminUserID   string
	Address       string
	City          string
	PhoneNumber   string
	Email         string
	Latitude      *float64
	Longitude     *float64
	Services      []string
	// OperatingHours is a display string such as "08:00-20:00".
	OperatingHours string
	IsOpen         bool
	// MaxQueueCapacity bounds the WAITING line; zero means the
	// service-wide default applies.
	MaxQueueCapacity int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
