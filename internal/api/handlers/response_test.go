package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	domain "training-enrollment/internal/domain/enrollment"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.NewNotFoundError("session"), http.StatusNotFound},
		{"invalid argument", domain.NewInvalidArgumentError("rating"), http.StatusBadRequest},
		{"conflict", domain.NewConflictError("duplicate"), http.StatusConflict},
		{"capacity", domain.NewCapacityExceededError("full"), http.StatusConflict},
		{"invalid state", domain.NewInvalidStateError("past"), http.StatusUnprocessableEntity},
		{"prerequisites", &domain.PrerequisitesNotMetError{Missing: []string{"Go"}}, http.StatusUnprocessableEntity},
		{"forbidden", domain.NewForbiddenError("owner"), http.StatusForbidden},
		{"transient storage", domain.NewInfrastructureError("create booking", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"storage", domain.NewInfrastructureError("create booking", errors.New("disk full")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRetryTransient(t *testing.T) {
	calls := 0
	got, err := retryTransient("op", func() (int, error) {
		calls++
		if calls == 1 {
			return 0, domain.NewInfrastructureError("op", context.DeadlineExceeded)
		}
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)

	calls = 0
	_, err = retryTransient("op", func() (int, error) {
		calls++
		return 0, domain.NewConflictError("dup")
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, calls, "non transient errors are not retried")

	calls = 0
	_, err = retryTransient("op", func() (int, error) {
		calls++
		return 0, fmt.Errorf("query: %w", context.DeadlineExceeded)
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "retried only once")
}
