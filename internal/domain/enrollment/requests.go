package domain

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateBookingRequest asks for one seat in a session
type CreateBookingRequest struct {
	SessionID uuid.UUID `json:"session_id" validate:"required"`
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

// AttendanceRequest marks whether the student attended
type AttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

// FeedbackRequest carries post-session feedback
type FeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,min=5,max=1000"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
}

// PrerequisiteRequest names a directed prerequisite edge
type PrerequisiteRequest struct {
	TopicID             uuid.UUID `json:"topic_id" validate:"required"`
	PrerequisiteTopicID uuid.UUID `json:"prerequisite_topic_id" validate:"required"`
}

// CompleteTopicRequest records a completed topic for a student
type CompleteTopicRequest struct {
	TopicID     uuid.UUID  `json:"topic_id" validate:"required"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateTopicRequest creates a topic
type CreateTopicRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// TopicPatch applies only the fields that are set
type TopicPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// CreateSessionRequest schedules a session. TrainerID is taken from the
// caller unless an admin supplies it.
type CreateSessionRequest struct {
	TopicID         uuid.UUID  `json:"topic_id" validate:"required"`
	TrainerID       *uuid.UUID `json:"trainer_id,omitempty"`
	Title           string     `json:"title" validate:"required,min=3,max=150"`
	Description     *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	StartTime       time.Time  `json:"start_time" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,gte=15,lte=480"`
	Capacity        int        `json:"capacity" validate:"omitempty,gte=1,lte=100"`
	MeetLink        *string    `json:"meet_link,omitempty" validate:"omitempty,max=255"`
}

// SessionPatch applies only the fields that are set
type SessionPatch struct {
	Title           *string        `json:"title,omitempty" validate:"omitempty,min=3,max=150"`
	Description     *string        `json:"description,omitempty" validate:"omitempty,max=1000"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	DurationMinutes *int           `json:"duration_minutes,omitempty" validate:"omitempty,gte=15,lte=480"`
	Capacity        *int           `json:"capacity,omitempty" validate:"omitempty,gte=1,lte=100"`
	MeetLink        *string        `json:"meet_link,omitempty" validate:"omitempty,max=255"`
	Status          *SessionStatus `json:"status,omitempty" validate:"omitempty,oneof=upcoming active cancelled completed"`
}
