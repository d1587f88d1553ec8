package errors

import (
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
		{"validation", NewValidationError("email", "must be a valid email"), http.StatusUnprocessableEntity},
		{"not found", NewNotFoundError("user", "user is not found"), http.StatusNotFound},
		{"already exists", NewAlreadyExistsError("user", "email already registered"), http.StatusConflict},
		{"unauthorized", NewUnauthorizedError(""), http.StatusUnauthorized},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("get user: %w", NewNotFoundError("user", "")), http.StatusNotFound},
		{"plain error", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation failed: email - bad", NewValidationError("email", "bad").Error())
	assert.Equal(t, "validation failed: bad", NewValidationError("", "bad").Error())
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
	assert.Equal(t, "user already exists", NewAlreadyExistsError("user", "").Error())
	assert.Equal(t, "invalid credentials", NewUnauthorizedError("").Error())
	assert.Equal(t, "query failed: timeout", NewInternalError("query failed", fmt.Errorf("timeout")).Error())
}

func TestClassifiers(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewAlreadyExistsError("user", ""))
	assert.True(t, IsAlreadyExists(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("")))
	assert.True(t, IsValidation(NewValidationError("id", "bad")))
}
