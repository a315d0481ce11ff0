package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewAlreadyQueued signals a duplicate active join for the same dispensary.
func NewAlreadyQueued(patientID, dispensaryID string) error {
	return NewDomainError("ALREADY_QUEUED", "patient already has an active queue entry",
		http.StatusConflict, map[string]any{
			"patient_id":    patientID,
			"dispensary_id": dispensaryID,
		})
}

// NewInvalidTransition signals an illegal state-machine edge.
func NewInvalidTransition(entryID string, from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", from, to),
		http.StatusConflict, map[string]any{
			"entry_id": entryID,
			"from":     from,
			"to":       to,
		})
}

// NewCapacityExceeded signals that a dispensary's queue is full.
func NewCapacityExceeded(dispensaryID string, capacity int) error {
	return NewDomainError("CAPACITY_EXCEEDED", "queue is at maximum capacity",
		http.StatusConflict, map[string]any{
			"dispensary_id": dispensaryID,
			"capacity":      capacity,
		})
}

// NewBusy signals the scope's serialization point could not be acquired
// within the deadline. Retryable.
func NewBusy(scopeID string) error {
	return NewDomainError("BUSY", "queue is busy, retry shortly",
		http.StatusServiceUnavailable, map[string]any{"scope_id": scopeID})
}

// NewUnavailable signals a storage or broadcast collaborator failure.
func NewUnavailable(collaborator string, err error) error {
	return &DomainError{
		Code:       "UNAVAILABLE",
		Message:    fmt.Sprintf("%s unavailable", collaborator),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
