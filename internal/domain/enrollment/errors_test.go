package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{NewNotFoundError("session %d", 1), ErrNotFound},
		{NewInvalidArgumentError("bad"), ErrInvalidArgument},
		{NewConflictError("dup"), ErrConflict},
		{NewInvalidStateError("past"), ErrInvalidState},
		{NewCapacityExceededError("full"), ErrCapacityExceeded},
		{NewForbiddenError("no"), ErrForbidden},
		{&PrerequisitesNotMetError{Missing: []string{"Go"}}, ErrPrerequisitesNotMet},
		{fmt.Errorf("wrapped: %w", NewConflictError("dup")), ErrConflict},
		{errors.New("plain"), nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), tt.err.Error())
	}
}

func TestInfrastructureErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInfrastructureError("create booking", cause)

	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create booking: connection reset", err.Error())
}

func TestPrerequisitesNotMetError(t *testing.T) {
	err := error(&PrerequisitesNotMetError{Missing: []string{"Go Basics", "SQL"}})

	var target *PrerequisitesNotMetError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, []string{"Go Basics", "SQL"}, target.Missing)
	assert.Contains(t, err.Error(), "Go Basics, SQL")
}

func TestSessionSeats(t *testing.T) {
	s := &Session{Capacity: 3, CurrentAttendees: 2}
	assert.Equal(t, 1, s.AvailableSeats())
	assert.False(t, s.IsFull())

	s.CurrentAttendees = 3
	assert.Equal(t, 0, s.AvailableSeats())
	assert.True(t, s.IsFull())

	assert.True(t, SessionActive.Bookable())
	assert.False(t, SessionCancelled.Bookable())
	assert.False(t, SessionStatus("archived").Valid())
}
