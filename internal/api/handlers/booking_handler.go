package handlers

import (
	"net/http"

	"training-enrollment/internal/api/middleware"
	domain "training-enrollment/internal/domain/enrollment"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	bookings serviceInterfaces.BookingService
	catalog  serviceInterfaces.CatalogService
}

func NewBookingHandler(bookings serviceInterfaces.BookingService, catalog serviceInterfaces.CatalogService) *BookingHandler {
	return &BookingHandler{bookings: bookings, catalog: catalog}
}

type bookSessionBody struct {
	StudentID *uuid.UUID `json:"student_id,omitempty"`
}

// CreateBooking handles POST /api/v1/sessions/:session_id/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	var body bookSessionBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBadRequest(c, "Invalid request format", err.Error())
			return
		}
	}

	studentID := requester.UserID
	if body.StudentID != nil && *body.StudentID != requester.UserID {
		if !requester.IsAdmin() {
			respondError(c, "Booking failed", domain.NewForbiddenError("students can only book for themselves"))
			return
		}
		studentID = *body.StudentID
	}

	booking, err := retryTransient("create booking", func() (*domain.Booking, error) {
		return h.bookings.CreateBooking(c.Request.Context(), sessionID, studentID)
	})
	if err != nil {
		respondError(c, "Booking failed", err)
		return
	}

	respondOK(c, http.StatusCreated, "Session booked successfully", booking)
}

// ListSessionBookings handles GET /api/v1/sessions/:session_id/bookings
func (h *BookingHandler) ListSessionBookings(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	session, err := h.catalog.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "Failed to list bookings", err)
		return
	}
	if !requester.IsAdmin() && requester.UserID != session.TrainerID {
		respondError(c, "Failed to list bookings", domain.NewForbiddenError("only the session trainer can list its bookings"))
		return
	}

	bookings, err := retryTransient("list session bookings", func() ([]*domain.Booking, error) {
		return h.bookings.ListBookingsBySession(c.Request.Context(), sessionID)
	})
	if err != nil {
		respondError(c, "Failed to list bookings", err)
		return
	}

	respondOK(c, http.StatusOK, "", bookings)
}

// ListStudentBookings handles GET /api/v1/students/:student_id/bookings
func (h *BookingHandler) ListStudentBookings(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	if !selfOrStaff(c, studentID) {
		return
	}

	bookings, err := retryTransient("list student bookings", func() ([]*domain.Booking, error) {
		return h.bookings.ListBookingsByStudent(c.Request.Context(), studentID)
	})
	if err != nil {
		respondError(c, "Failed to list bookings", err)
		return
	}

	respondOK(c, http.StatusOK, "", bookings)
}

// CancelBooking handles DELETE /api/v1/bookings/:booking_id
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	_, err := retryTransient("cancel booking", func() (struct{}, error) {
		return struct{}{}, h.bookings.CancelBooking(c.Request.Context(), bookingID, requester)
	})
	if err != nil {
		respondError(c, "Failed to cancel booking", err)
		return
	}

	respondOK(c, http.StatusOK, "Booking cancelled successfully", nil)
}

// MarkAttendance handles PATCH /api/v1/bookings/:booking_id/attendance
func (h *BookingHandler) MarkAttendance(c *gin.Context) {
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}

	var req domain.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondBadRequest(c, "Validation failed", validator.FormatValidationError(err))
		return
	}

	if !h.canManageBooking(c, bookingID) {
		return
	}

	booking, err := retryTransient("mark attendance", func() (*domain.Booking, error) {
		return h.bookings.MarkAttendance(c.Request.Context(), bookingID, *req.Attended)
	})
	if err != nil {
		respondError(c, "Failed to mark attendance", err)
		return
	}

	respondOK(c, http.StatusOK, "Attendance updated", booking)
}

// AddFeedback handles POST /api/v1/bookings/:booking_id/feedback
func (h *BookingHandler) AddFeedback(c *gin.Context) {
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	var req domain.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	existing, err := h.bookings.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, "Failed to add feedback", err)
		return
	}
	if !requester.IsAdmin() && existing.StudentID != requester.UserID {
		respondError(c, "Failed to add feedback", domain.NewForbiddenError("only the booking owner can leave feedback"))
		return
	}

	booking, err := retryTransient("add feedback", func() (*domain.Booking, error) {
		return h.bookings.AddFeedback(c.Request.Context(), bookingID, req.Feedback, req.Rating)
	})
	if err != nil {
		respondError(c, "Failed to add feedback", err)
		return
	}

	respondOK(c, http.StatusOK, "Feedback recorded", booking)
}

// canManageBooking allows admins and the trainer of the booking's session
func (h *BookingHandler) canManageBooking(c *gin.Context, bookingID uuid.UUID) bool {
	requester, _ := middleware.RequesterFrom(c)
	if requester.IsAdmin() {
		return true
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, "Failed to load booking", err)
		return false
	}
	session, err := h.catalog.GetSession(c.Request.Context(), booking.SessionID)
	if err != nil {
		respondError(c, "Failed to load session", err)
		return false
	}
	if session.TrainerID != requester.UserID {
		respondError(c, "Not allowed", domain.NewForbiddenError("only the session trainer can mark attendance"))
		return false
	}
	return true
}

// selfOrStaff allows the student themself, trainers and admins
func selfOrStaff(c *gin.Context, studentID uuid.UUID) bool {
	requester, _ := middleware.RequesterFrom(c)
	if requester.UserID == studentID || requester.IsAdmin() || requester.Role == domain.RoleTrainer {
		return true
	}
	respondError(c, "Not allowed", domain.NewForbiddenError("cannot access another student's records"))
	return false
}
