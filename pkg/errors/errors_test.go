package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: NewValidationError("Name", "is required"), want: http.StatusBadRequest},
		{name: "not found", err: NewNotFoundError("user", "User not found"), want: http.StatusNotFound},
		{name: "already exists", err: NewAlreadyExistsError("user", "email already exists"), want: http.StatusConflict},
		{name: "rule violation", err: NewRuleViolationError("has_clients", "blocked"), want: http.StatusConflict},
		{name: "internal", err: NewInternalError("failed", errors.New("boom")), want: http.StatusInternalServerError},
		{name: "wrapped not found", err: fmt.Errorf("get: %w", NewNotFoundError("user", "")), want: http.StatusNotFound},
		{name: "plain error", err: errors.New("plain"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "failed to create user", PublicMessage(NewInternalError("failed to create user", errors.New("pq: connection refused"))))
	assert.Equal(t, "Consultant not found", PublicMessage(NewNotFoundError("consultant", "Consultant not found")))
	assert.Equal(t, "validation failed: Name - is required", PublicMessage(NewValidationError("Name", "is required")))
	assert.Equal(t, "An internal error occurred", PublicMessage(errors.New("raw driver error")))
}

func TestNotFoundError_DefaultMessage(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewInternalError("wrapped", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wrapped: cause", err.Error())
}
