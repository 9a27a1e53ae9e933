package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Invalid("title", "too short"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create risk: %w", Invalid("impact", "bad")), http.StatusBadRequest},
		{"not found", NotFound("risk"), http.StatusNotFound},
		{"conflict", Conflict("RISK-0001"), http.StatusConflict},
		{"unavailable", Unavailable(errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"locked", ErrLocked, http.StatusLocked},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "title", Message: "required"},
		{Field: "impact", Message: "must be between 1 and 5"},
	}}
	assert.Equal(t, "validation failed: title: required; impact: must be between 1 and 5", err.Error())
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", err)))
	assert.False(t, IsValidation(ErrConflict))
}
