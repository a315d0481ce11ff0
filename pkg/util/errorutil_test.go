package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorCodesAndStatuses(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad input", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewNotFound("patient", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("no token"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewForbidden("wrong role"), "FORBIDDEN", http.StatusForbidden},
		{NewConflict("duplicate email", nil), "CONFLICT", http.StatusConflict},
		{NewAlreadyQueued("p1", "d1"), "ALREADY_QUEUED", http.StatusConflict},
		{NewInvalidTransition("e1", "WAITING", "COMPLETED"), "INVALID_TRANSITION", http.StatusConflict},
		{NewCapacityExceeded("d1", 50), "CAPACITY_EXCEEDED", http.StatusConflict},
		{NewBusy("d1"), "BUSY", http.StatusServiceUnavailable},
		{NewUnavailable("storage", errors.New("down")), "UNAVAILABLE", http.StatusServiceUnavailable},
		{NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		var domainErr *DomainError
		require.ErrorAs(t, tc.err, &domainErr, tc.code)
		assert.Equal(t, tc.code, domainErr.Code)
		assert.Equal(t, tc.status, domainErr.HTTPStatus)
		assert.True(t, IsCode(tc.err, tc.code))
	}
}

func TestToDomainErrorPassesDomainErrorsThrough(t *testing.T) {
	original := NewAlreadyQueued("p1", "d1")
	wrapped := fmt.Errorf("joining: %w", original)

	converted := ToDomainError(wrapped)
	assert.Equal(t, "ALREADY_QUEUED", converted.Code)
	assert.Equal(t, "p1", converted.Details["patient_id"])
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	converted := ToDomainError(sql.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", converted.Code)
	assert.Equal(t, http.StatusNotFound, converted.HTTPStatus)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("connection reset")
	converted := ToDomainError(cause)
	assert.Equal(t, "INTERNAL_ERROR", converted.Code)
	assert.ErrorIs(t, converted, cause)

	assert.Nil(t, ToDomainError(nil))
}

func TestInvalidTransitionMessageNamesStates(t *testing.T) {
	err := NewInvalidTransition("e1", "COMPLETED", "CALLED")
	assert.Contains(t, err.Error(), "COMPLETED")
	assert.Contains(t, err.Error(), "CALLED")
}

func TestIsCodeRejectsForeignErrors(t *testing.T) {
	assert.False(t, IsCode(errors.New("plain"), "NOT_FOUND"))
	assert.False(t, IsCode(nil, "NOT_FOUND"))
	assert.False(t, IsCode(NewBusy("d1"), "NOT_FOUND"))
}
