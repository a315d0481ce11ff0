package dto

import (
	"time"

	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/service"
)

// CreateDispensaryRequest payload.
type CreateDispensaryRequest struct {
	Name             string   `json:"name"`
	LicenseNumber    string   `json:"license_number"`
	Address          string   `json:"address"`
	City             string   `json:"city"`
	PhoneNumber      string   `json:"phone_number"`
	Email            string   `json:"email"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Services         []string `json:"services"`
	OperatingHours   string   `json:"operating_hours"`
	MaxQueueCapacity int      `json:"max_queue_capacity"`
}

// UpdateDispensaryRequest payload; omitted fields stay unchanged.
type UpdateDispensaryRequest struct {
	Name             *string  `json:"name"`
	Address          *string  `json:"address"`
	City             *string  `json:"city"`
	PhoneNumber      *string  `json:"phone_number"`
	Email            *string  `json:"email"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Services         []string `json:"services"`
	OperatingHours   *string  `json:"operating_hours"`
	MaxQueueCapacity *int     `json:"max_queue_capacity"`
}

// SetOpenRequest payload.
type SetOpenRequest struct {
	Open bool `json:"open"`
}

// DispensaryResponse represents a clinic location.
type DispensaryResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	LicenseNumber    string    `json:"license_number"`
	Address          string    `json:"address"`
	City             string    `json:"city"`
	PhoneNumber      string    `json:"phone_number"`
	Email            string    `json:"email"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Services         []string  `json:"services"`
	OperatingHours   string    `json:"operating_hours"`
	IsOpen           bool      `json:"is_open"`
	MaxQueueCapacity int       `json:"max_queue_capacity"`
	WaitingCount     *int      `json:"waiting_count,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewDispensaryResponse maps a domain dispensary.
func NewDispensaryResponse(dispensary *domain.Dispensary) DispensaryResponse {
	return DispensaryResponse{
		ID:               dispensary.ID,
		Name:             dispensary.Name,
		LicenseNumber:    dispensary.LicenseNumber,
		Address:          dispensary.Address,
		City:             dispensary.City,
		PhoneNumber:      dispensary.PhoneNumber,
		Email:            dispensary.Email,
		Latitude:         dispensary.Latitude,
		Longitude:        dispensary.Longitude,
		Services:         dispensary.Services,
		OperatingHours:   dispensary.OperatingHours,
		IsOpen:           dispensary.IsOpen,
		MaxQueueCapacity: dispensary.MaxQueueCapacity,
		CreatedAt:        dispensary.CreatedAt,
	}
}

// NewDispensarySummaryResponse maps a dispensary with queue length.
func NewDispensarySummaryResponse(summary service.DispensarySummary) DispensaryResponse {
	resp := NewDispensaryResponse(&summary.Dispensary)
	waiting := summary.WaitingCount
	resp.WaitingCount = &waiting
	return resp
}

// NewDispensarySummaryResponses maps a slice of summaries.
func NewDispensarySummaryResponses(summaries []service.DispensarySummary) []DispensaryResponse {
	out := make([]DispensaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, NewDispensarySummaryResponse(summary))
	}
	return out
}
