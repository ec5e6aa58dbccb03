package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Topic represents a subject that sessions are scheduled for
type Topic struct {
	TopicID     uuid.UUID      `json:"topic_id" gorm:"column:id;type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"size:120;uniqueIndex;not null"`
	Description *string        `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Topic) TableName() string { return "topics" }

// TopicPrerequisite is a directed edge meaning TopicID cannot be booked
// before PrerequisiteID has been completed.
type TopicPrerequisite struct {
	TopicID        uuid.UUID `json:"topic_id" gorm:"type:uuid;primaryKey;check:chk_topic_prerequisites_self,topic_id <> prerequisite_id"`
	PrerequisiteID uuid.UUID `json:"prerequisite_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (TopicPrerequisite) TableName() string { return "topic_prerequisites" }

// CompletedTopic records that a student has finished a topic
type CompletedTopic struct {
	StudentID   uuid.UUID `json:"student_id" gorm:"type:uuid;primaryKey"`
	TopicID     uuid.UUID `json:"topic_id" gorm:"type:uuid;primaryKey;index"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
}

func (CompletedTopic) TableName() string { return "student_topics" }

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionUpcoming  SessionStatus = "upcoming"
	SessionActive    SessionStatus = "active"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// Bookable reports whether new bookings may be taken in this state
func (s SessionStatus) Bookable() bool {
	return s == SessionUpcoming || s == SessionActive
}

// Valid reports whether s is a known status
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionUpcoming, SessionActive, SessionCancelled, SessionCompleted:
		return true
	}
	return false
}

// Session is a scheduled, capacity-limited offering of a topic.
// CurrentAttendees always equals the number of bookings referencing the session.
type Session struct {
	SessionID        uuid.UUID      `json:"session_id" gorm:"column:id;type:uuid;primaryKey"`
	TopicID          uuid.UUID      `json:"topic_id" gorm:"type:uuid;not null;index"`
	TrainerID        uuid.UUID      `json:"trainer_id" gorm:"type:uuid;not null;index"`
	Title            string         `json:"title" gorm:"size:150;not null"`
	Description      *string        `json:"description,omitempty"`
	StartTime        time.Time      `json:"start_time" gorm:"not null;index"`
	DurationMinutes  int            `json:"duration_minutes" gorm:"not null;default:60"`
	Capacity         int            `json:"capacity" gorm:"not null;check:chk_sessions_capacity,capacity > 0"`
	CurrentAttendees int            `json:"current_attendees" gorm:"not null;default:0;check:chk_sessions_attendees,current_attendees >= 0 AND current_attendees <= capacity"`
	MeetLink         *string        `json:"meet_link,omitempty" gorm:"size:255"`
	Status           SessionStatus  `json:"status" gorm:"type:varchar(16);not null;default:upcoming"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Session) TableName() string { return "sessions" }

// AvailableSeats returns the number of seats that can still be booked
func (s *Session) AvailableSeats() int {
	if s.CurrentAttendees >= s.Capacity {
		return 0
	}
	return s.Capacity - s.CurrentAttendees
}

// IsFull reports whether the session has reached capacity
func (s *Session) IsFull() bool {
	return s.CurrentAttendees >= s.Capacity
}

// Booking is a student's seat in a session
type Booking struct {
	BookingID uuid.UUID `json:"booking_id" gorm:"column:id;type:uuid;primaryKey"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:uc_session_student;index"`
	StudentID uuid.UUID `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:uc_session_student;index"`
	Attended  bool      `json:"attended" gorm:"not null;default:false"`
	Feedback  *string   `json:"feedback,omitempty"`
	Rating    *int      `json:"rating,omitempty" gorm:"check:chk_bookings_rating,rating IS NULL OR (rating >= 1 AND rating <= 5)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Booking) TableName() string { return "bookings" }

// NotificationType is the kind of event a notification reports
type NotificationType string

const (
	NotificationBookingCreated   NotificationType = "booking_created"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
)

// Notification is a persisted message for a user
type Notification struct {
	NotificationID uuid.UUID        `json:"notification_id" gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	Type           NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Message        string           `json:"message" gorm:"size:500;not null"`
	IsRead         bool             `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt      time.Time        `json:"created_at" gorm:"autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationEvent is the fire-and-forget payload handed to the dispatcher
type NotificationEvent struct {
	Type      NotificationType `json:"type"`
	UserID    uuid.UUID        `json:"user_id"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// Role is the caller role supplied by the identity layer
type Role string

const (
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// Requester identifies the authenticated caller of an operation
type Requester struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }

// PrerequisiteStatus is the result of a prerequisite check for one student and topic
type PrerequisiteStatus struct {
	TopicID   uuid.UUID `json:"topic_id"`
	StudentID uuid.UUID `json:"student_id"`
	Satisfied bool      `json:"satisfied"`
	Missing   []Topic   `json:"missing"`
}

// MissingNames returns the names of the missing prerequisite topics
func (p *PrerequisiteStatus) MissingNames() []string {
	names := make([]string, 0, len(p.Missing))
	for _, t := range p.Missing {
		names = append(names, t.Name)
	}
	return names
}
