package service

import (
	"context"
	"fmt"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/logger"
	"training-enrollment/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLockTimeout     = 5 * time.Second
	DefaultDispatchTimeout = 500 * time.Millisecond
)

var _ serviceInterfaces.BookingService = (*BookingService)(nil)

// BookingOptions configures a BookingService. Zero values fall back to defaults.
type BookingOptions struct {
	// Now is the clock used for the enrollment instant
	Now func() time.Time
	// LockTimeout bounds the unit of work that holds the session lock
	LockTimeout time.Duration
	// DispatchTimeout bounds handing a notification to the dispatcher
	DispatchTimeout time.Duration
}

type BookingService struct {
	store       interfaces.Store
	dispatcher  interfaces.NotificationDispatcher
	now         func() time.Time
	lockTTL     time.Duration
	dispatchTTL time.Duration
}

func NewBookingService(store interfaces.Store, dispatcher interfaces.NotificationDispatcher, opts BookingOptions) *BookingService {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	lockTTL := opts.LockTimeout
	if lockTTL <= 0 {
		lockTTL = DefaultLockTimeout
	}
	dispatchTTL := opts.DispatchTimeout
	if dispatchTTL <= 0 {
		dispatchTTL = DefaultDispatchTimeout
	}

	return &BookingService{
		store:       store,
		dispatcher:  dispatcher,
		now:         now,
		lockTTL:     lockTTL,
		dispatchTTL: dispatchTTL,
	}
}

// CreateBooking takes one seat in the session for the student. All checks
// and the counter increment happen while the session row is locked.
func (s *BookingService) CreateBooking(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.Booking, error) {
	req := &domain.CreateBookingRequest{SessionID: sessionID, StudentID: studentID}
	if err := validator.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	enrolledAt := s.now()

	var (
		booking *domain.Booking
		title   string
	)
	err := s.store.WithSessionLock(ctx, sessionID, func(repos interfaces.Repositories, session *domain.Session) error {
		if !session.Status.Bookable() {
			return domain.NewInvalidStateError("session is %s", session.Status)
		}
		if !session.StartTime.After(enrolledAt) {
			return domain.NewInvalidStateError("cannot book past session")
		}

		topic, err := repos.Topics.GetByID(ctx, session.TopicID)
		if err != nil {
			return err
		}
		if topic == nil {
			// sessions of a deleted topic are no longer offered
			return domain.NewInvalidStateError("topic of session %s has been deleted", sessionID)
		}

		status, err := checkPrerequisites(ctx, repos, studentID, session.TopicID)
		if err != nil {
			return err
		}
		if !status.Satisfied {
			return &domain.PrerequisitesNotMetError{Missing: status.MissingNames()}
		}

		existing, err := repos.Bookings.GetBySessionAndStudent(ctx, sessionID, studentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewConflictError("student already booked for this session")
		}

		if session.IsFull() {
			return domain.NewCapacityExceededError("session is full (%d/%d)", session.CurrentAttendees, session.Capacity)
		}

		booking = &domain.Booking{
			BookingID: uuid.New(),
			SessionID: sessionID,
			StudentID: studentID,
		}
		if err := repos.Bookings.Create(ctx, booking); err != nil {
			return err
		}
		if err := repos.Sessions.UpdateAttendees(ctx, sessionID, session.CurrentAttendees+1); err != nil {
			return err
		}

		title = session.Title
		return nil
	})
	if err != nil {
		return nil, storageError("create booking", err)
	}

	logger.WithFields(logrus.Fields{
		"booking_id": booking.BookingID,
		"session_id": sessionID,
		"student_id": studentID,
	}).Info("Booking created")

	s.notify(ctx, domain.NotificationEvent{
		Type:      domain.NotificationBookingCreated,
		UserID:    studentID,
		Message:   fmt.Sprintf("Your booking for %q is confirmed", title),
		Timestamp: s.now(),
	})

	return booking, nil
}

// CancelBooking removes the booking and frees its seat. Only the booking's
// student or an admin may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, requester domain.Requester) error {
	booking, err := s.store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return storageError("get booking", err)
	}
	if booking == nil {
		return domain.NewNotFoundError("booking %s not found", bookingID)
	}
	if !requester.IsAdmin() && requester.UserID != booking.StudentID {
		return domain.NewForbiddenError("only the booking owner or an admin can cancel a booking")
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	var title string
	err = s.store.WithSessionLock(ctx, booking.SessionID, func(repos interfaces.Repositories, session *domain.Session) error {
		deleted, err := repos.Bookings.Delete(ctx, bookingID)
		if err != nil {
			return err
		}
		if !deleted {
			// cancelled concurrently
			return domain.NewNotFoundError("booking %s not found", bookingID)
		}

		attendees := session.CurrentAttendees - 1
		if attendees < 0 {
			logger.Warn("Session %s counter already at zero while cancelling booking %s", session.SessionID, bookingID)
			attendees = 0
		}

		title = session.Title
		return repos.Sessions.UpdateAttendees(ctx, session.SessionID, attendees)
	})
	if err != nil {
		return storageError("cancel booking", err)
	}

	logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"session_id": booking.SessionID,
		"student_id": booking.StudentID,
	}).Info("Booking cancelled")

	s.notify(ctx, domain.NotificationEvent{
		Type:      domain.NotificationBookingCancelled,
		UserID:    booking.StudentID,
		Message:   fmt.Sprintf("Your booking for %q has been cancelled", title),
		Timestamp: s.now(),
	})

	return nil
}

func (s *BookingService) MarkAttendance(ctx context.Context, bookingID uuid.UUID, attended bool) (*domain.Booking, error) {
	repos := s.store.Repos()

	booking, err := repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storageError("get booking", err)
	}
	if booking == nil {
		return nil, domain.NewNotFoundError("booking %s not found", bookingID)
	}

	updated, err := repos.Bookings.SetAttended(ctx, bookingID, attended)
	if err != nil {
		return nil, storageError("mark attendance", err)
	}
	if !updated {
		// cancelled since the read
		return nil, domain.NewNotFoundError("booking %s not found", bookingID)
	}

	booking.Attended = attended

	return booking, nil
}

func (s *BookingService) AddFeedback(ctx context.Context, bookingID uuid.UUID, feedback string, rating int) (*domain.Booking, error) {
	req := &domain.FeedbackRequest{Feedback: feedback, Rating: rating}
	if err := validator.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	repos := s.store.Repos()

	booking, err := repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storageError("get booking", err)
	}
	if booking == nil {
		return nil, domain.NewNotFoundError("booking %s not found", bookingID)
	}

	updated, err := repos.Bookings.SetFeedback(ctx, bookingID, req.Feedback, req.Rating)
	if err != nil {
		return nil, storageError("add feedback", err)
	}
	if !updated {
		return nil, domain.NewNotFoundError("booking %s not found", bookingID)
	}

	booking.Feedback = &req.Feedback
	booking.Rating = &req.Rating

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storageError("get booking", err)
	}
	if booking == nil {
		return nil, domain.NewNotFoundError("booking %s not found", bookingID)
	}
	return booking, nil
}

func (s *BookingService) ListBookingsByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error) {
	bookings, err := s.store.Repos().Bookings.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, storageError("list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) ListBookingsBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Booking, error) {
	bookings, err := s.store.Repos().Bookings.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, storageError("list bookings", err)
	}
	return bookings, nil
}

// notify hands the event to the dispatcher after commit. The hand-off is
// bounded by the dispatch timeout; failures are logged and never reach the
// caller.
func (s *BookingService) notify(ctx context.Context, event domain.NotificationEvent) {
	if s.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTTL)
	defer cancel()

	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		logger.Warn("Failed to dispatch %s notification for user %s: %v", event.Type, event.UserID, err)
	}
}
