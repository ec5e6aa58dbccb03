package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillSeats books n distinct students so the counter matches the rows
func (f *fixture) fillSeats(session *domain.Session, n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
		require.NoError(f.t, err)
	}
}

// race fires one CreateBooking per student concurrently and returns the errors
func (f *fixture) race(sessionID uuid.UUID, students []uuid.UUID) []error {
	errs := make([]error, len(students))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, id := range students {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.CreateBooking(f.ctx, sessionID, id)
		}(i, id)
	}
	close(start)
	wg.Wait()

	return errs
}

func TestBookingService_CreateBooking(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Go Basics"), 3, 0)
	studentID := uuid.New()

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, studentID)
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, session.SessionID, booking.SessionID)
	assert.Equal(t, studentID, booking.StudentID)
	assert.False(t, booking.Attended)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)

	events := f.dispatcher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotificationBookingCreated, events[0].Type)
	assert.Equal(t, studentID, events[0].UserID)
	assert.Contains(t, events[0].Message, session.Title)
	assert.Equal(t, testNow, events[0].Timestamp)
}

func TestBookingService_CreateBooking_LastSeatUnderContention(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Kubernetes"), 10, 0)
	f.fillSeats(session, 9)

	students := make([]uuid.UUID, 50)
	for i := range students {
		students[i] = uuid.New()
	}

	errs := f.race(session.SessionID, students)

	var succeeded, full int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrCapacityExceeded):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 49, full)
	assert.Equal(t, 10, f.reload(session.SessionID).CurrentAttendees)
	assert.Equal(t, 10, f.bookingCount(session.SessionID))
}

func TestBookingService_CreateBooking_ConcurrentFillsExactlyCapacity(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Terraform"), 5, 0)

	students := make([]uuid.UUID, 20)
	for i := range students {
		students[i] = uuid.New()
	}

	errs := f.race(session.SessionID, students)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, f.reload(session.SessionID).CurrentAttendees)
	assert.Equal(t, 5, f.bookingCount(session.SessionID))
	assert.Len(t, f.dispatcher.Events(), 5)
}

func TestBookingService_CreateBooking_SameStudentConcurrently(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Rust"), 10, 0)
	studentID := uuid.New()

	students := make([]uuid.UUID, 8)
	for i := range students {
		students[i] = studentID
	}

	errs := f.race(session.SessionID, students)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CreateBooking_DoubleBooking(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("SQL"), 5, 0)
	studentID := uuid.New()

	_, err := f.bookings.CreateBooking(f.ctx, session.SessionID, studentID)
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, studentID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CreateBooking_MissingPrerequisites(t *testing.T) {
	f := newFixture(t)
	basics := f.topic("Go Basics")
	concurrency := f.topic("Go Concurrency")
	f.edge(concurrency, basics)
	session := f.session(concurrency, 5, 0)
	studentID := uuid.New()

	_, err := f.bookings.CreateBooking(f.ctx, session.SessionID, studentID)
	require.ErrorIs(t, err, domain.ErrPrerequisitesNotMet)

	var notMet *domain.PrerequisitesNotMetError
	require.True(t, errors.As(err, &notMet))
	assert.Equal(t, []string{"Go Basics"}, notMet.Missing)
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)
	assert.Empty(t, f.dispatcher.Events())

	f.complete(studentID, basics)

	_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, studentID)
	assert.NoError(t, err)
}

func TestBookingService_CreateBooking_RejectsUnbookableSessions(t *testing.T) {
	f := newFixture(t)
	topic := f.topic("Docker")

	past := f.session(topic, 5, 0)
	past.StartTime = testNow.Add(-time.Hour)
	require.NoError(t, f.repos.Sessions.Update(f.ctx, past))

	startingNow := f.session(topic, 5, 0)
	startingNow.StartTime = testNow
	require.NoError(t, f.repos.Sessions.Update(f.ctx, startingNow))

	cancelled := f.session(topic, 5, 0)
	cancelled.Status = domain.SessionCancelled
	require.NoError(t, f.repos.Sessions.Update(f.ctx, cancelled))

	completed := f.session(topic, 5, 0)
	completed.Status = domain.SessionCompleted
	require.NoError(t, f.repos.Sessions.Update(f.ctx, completed))

	for name, id := range map[string]uuid.UUID{
		"past":      past.SessionID,
		"now":       startingNow.SessionID,
		"cancelled": cancelled.SessionID,
		"completed": completed.SessionID,
	} {
		_, err := f.bookings.CreateBooking(f.ctx, id, uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidState, name)
	}

	_, err := f.bookings.CreateBooking(f.ctx, past.SessionID, uuid.New())
	assert.Contains(t, err.Error(), "cannot book past session")
}

func TestBookingService_CreateBooking_ActiveSessionIsBookable(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Linux"), 5, 0)
	session.Status = domain.SessionActive
	require.NoError(t, f.repos.Sessions.Update(f.ctx, session))

	_, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	assert.NoError(t, err)
}

func TestBookingService_CreateBooking_SessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.bookings.CreateBooking(f.ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted := f.session(f.topic("Perl"), 5, 0)
	require.NoError(t, f.repos.Sessions.SoftDelete(f.ctx, deleted.SessionID))

	_, err = f.bookings.CreateBooking(f.ctx, deleted.SessionID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_CreateBooking_InvalidArguments(t *testing.T) {
	f := newFixture(t)

	_, err := f.bookings.CreateBooking(f.ctx, uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.bookings.CreateBooking(f.ctx, uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBookingService_CreateBooking_DispatchFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errDispatch
	session := f.session(f.topic("Ansible"), 2, 0)

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

// stalledDispatcher blocks until its context ends, like a queue whose
// backend stopped answering
type stalledDispatcher struct {
	calls int
}

func (d *stalledDispatcher) Dispatch(ctx context.Context, _ domain.NotificationEvent) error {
	d.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestBookingService_CreateBooking_StalledDispatchIsBounded(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Redis"), 2, 0)
	dispatcher := &stalledDispatcher{}
	svc := NewBookingService(f.store, dispatcher, BookingOptions{
		Now:             fixedClock,
		DispatchTimeout: 20 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.CreateBooking(f.ctx, session.SessionID, uuid.New())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("booking waited on a stalled dispatcher")
	}
	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CancelBooking(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Python"), 1, 0)
	owner := student()

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
	require.NoError(t, err)

	require.NoError(t, f.bookings.CancelBooking(f.ctx, booking.BookingID, owner))
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)
	assert.Equal(t, 0, f.bookingCount(session.SessionID))

	events := f.dispatcher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.NotificationBookingCancelled, events[1].Type)

	// second cancel is NotFound and leaves the counter alone
	err = f.bookings.CancelBooking(f.ctx, booking.BookingID, owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)

	// the freed seat can be booked again, by the same student too
	_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CancelBooking_Authorization(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Java"), 3, 0)
	owner := student()

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
	require.NoError(t, err)

	err = f.bookings.CancelBooking(f.ctx, booking.BookingID, student())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	trainer := domain.Requester{UserID: session.TrainerID, Role: domain.RoleTrainer}
	err = f.bookings.CancelBooking(f.ctx, booking.BookingID, trainer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)

	assert.NoError(t, f.bookings.CancelBooking(f.ctx, booking.BookingID, admin()))
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CancelBooking_FloorsCounterAtZero(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Haskell"), 3, 0)
	owner := student()

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
	require.NoError(t, err)
	require.NoError(t, f.repos.Sessions.UpdateAttendees(f.ctx, session.SessionID, 0))

	require.NoError(t, f.bookings.CancelBooking(f.ctx, booking.BookingID, owner))
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CancelBooking_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.bookings.CancelBooking(f.ctx, uuid.New(), admin())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// interleavedStore runs afterRead once, right after the first booking read
// made through its repositories
type interleavedStore struct {
	interfaces.Store
	afterRead func()
	once      sync.Once
}

func (s *interleavedStore) Repos() interfaces.Repositories {
	repos := s.Store.Repos()
	repos.Bookings = &interleavedBookings{BookingRepository: repos.Bookings, store: s}
	return repos
}

type interleavedBookings struct {
	interfaces.BookingRepository
	store *interleavedStore
}

func (b *interleavedBookings) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	booking, err := b.BookingRepository.GetByID(ctx, id)
	b.store.once.Do(b.store.afterRead)
	return booking, err
}

func TestBookingService_UpdateAfterConcurrentCancel(t *testing.T) {
	tests := []struct {
		name   string
		update func(s *BookingService, ctx context.Context, id uuid.UUID) error
	}{
		{
			name: "mark attendance",
			update: func(s *BookingService, ctx context.Context, id uuid.UUID) error {
				_, err := s.MarkAttendance(ctx, id, true)
				return err
			},
		},
		{
			name: "add feedback",
			update: func(s *BookingService, ctx context.Context, id uuid.UUID) error {
				_, err := s.AddFeedback(ctx, id, "Great session", 5)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			session := f.session(f.topic("Terraform"), 1, 0)
			owner := student()

			booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
			require.NoError(t, err)

			store := &interleavedStore{Store: f.store, afterRead: func() {
				require.NoError(t, f.bookings.CancelBooking(f.ctx, booking.BookingID, owner))
			}}
			svc := NewBookingService(store, f.dispatcher, BookingOptions{Now: fixedClock})

			err = tt.update(svc, f.ctx, booking.BookingID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.Equal(t, 0, f.bookingCount(session.SessionID))
			assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)

			// the freed seat is taken exactly once
			_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
			require.NoError(t, err)
			_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
			assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
			assert.Equal(t, 1, f.bookingCount(session.SessionID))
			assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
		})
	}
}

func TestBookingService_AbandonedCallerLeavesNoEffect(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Rust"), 3, 0)
	owner := student()

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, owner.UserID)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(f.ctx)
	cancel()
	expired, cancelExpired := context.WithDeadline(f.ctx, time.Now().Add(-time.Second))
	defer cancelExpired()

	for name, ctx := range map[string]context.Context{"cancelled": cancelled, "expired": expired} {
		_, err := f.bookings.CreateBooking(ctx, session.SessionID, uuid.New())
		assert.ErrorIs(t, err, domain.ErrInfrastructure, name)

		err = f.bookings.CancelBooking(ctx, booking.BookingID, owner)
		assert.ErrorIs(t, err, domain.ErrInfrastructure, name)
	}

	assert.Equal(t, 1, f.bookingCount(session.SessionID))
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
	assert.Len(t, f.dispatcher.Events(), 1)

	_, err = f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, f.bookingCount(session.SessionID))
	assert.Equal(t, 2, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_CreateBooking_LockWaitTimesOut(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Zig"), 2, 0)
	impatient := NewBookingService(f.store, f.dispatcher, BookingOptions{Now: fixedClock, LockTimeout: 50 * time.Millisecond})

	locked := make(chan struct{})
	release := make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- f.store.WithSessionLock(f.ctx, session.SessionID, func(interfaces.Repositories, *domain.Session) error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := impatient.CreateBooking(f.ctx, session.SessionID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-holder)

	assert.Equal(t, 0, f.bookingCount(session.SessionID))
	assert.Equal(t, 0, f.reload(session.SessionID).CurrentAttendees)

	// the timed out caller left nothing held behind
	_, err = impatient.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)
}

func TestBookingService_MarkAttendance(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Scala"), 3, 0)

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)

	updated, err := f.bookings.MarkAttendance(f.ctx, booking.BookingID, true)
	require.NoError(t, err)
	assert.True(t, updated.Attended)

	stored, err := f.bookings.GetBooking(f.ctx, booking.BookingID)
	require.NoError(t, err)
	assert.True(t, stored.Attended)
	assert.Equal(t, 1, f.reload(session.SessionID).CurrentAttendees)

	_, err = f.bookings.MarkAttendance(f.ctx, uuid.New(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_AddFeedback(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Elixir"), 3, 0)

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)

	updated, err := f.bookings.AddFeedback(f.ctx, booking.BookingID, "Clear and well paced", 5)
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, "Clear and well paced", *updated.Feedback)
	assert.Equal(t, 5, *updated.Rating)

	stored, err := f.bookings.GetBooking(f.ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, 5, *stored.Rating)
}

func TestBookingService_AddFeedback_Validation(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Clojure"), 3, 0)

	booking, err := f.bookings.CreateBooking(f.ctx, session.SessionID, uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name     string
		feedback string
		rating   int
	}{
		{"rating too low", "Good session", 0},
		{"rating too high", "Good session", 6},
		{"feedback too short", "ok", 4},
		{"feedback too long", strings.Repeat("a", 1001), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.AddFeedback(f.ctx, booking.BookingID, tt.feedback, tt.rating)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	_, err = f.bookings.AddFeedback(f.ctx, uuid.New(), "Great session", 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_ListBookings(t *testing.T) {
	f := newFixture(t)
	topic := f.topic("Go Testing")
	first := f.session(topic, 5, 0)
	second := f.session(topic, 5, 0)
	studentID := uuid.New()

	_, err := f.bookings.CreateBooking(f.ctx, first.SessionID, studentID)
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(f.ctx, second.SessionID, studentID)
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(f.ctx, first.SessionID, uuid.New())
	require.NoError(t, err)

	byStudent, err := f.bookings.ListBookingsByStudent(f.ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)

	bySession, err := f.bookings.ListBookingsBySession(f.ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	empty, err := f.bookings.ListBookingsByStudent(f.ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
