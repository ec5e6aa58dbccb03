package interfaces

import (
	"context"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	infrastructure "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

type BookingService interface {
	CreateBooking(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, requester domain.Requester) error
	MarkAttendance(ctx context.Context, bookingID uuid.UUID, attended bool) (*domain.Booking, error)
	AddFeedback(ctx context.Context, bookingID uuid.UUID, feedback string, rating int) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	ListBookingsByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error)
	ListBookingsBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Booking, error)
}

type PrerequisiteService interface {
	AddPrerequisite(ctx context.Context, topicID, prerequisiteID uuid.UUID) (*domain.TopicPrerequisite, error)
	RemovePrerequisite(ctx context.Context, topicID, prerequisiteID uuid.UUID) error
	ListPrerequisites(ctx context.Context, topicID uuid.UUID) ([]*domain.Topic, error)
	CheckPrerequisitesSatisfied(ctx context.Context, studentID, topicID uuid.UUID) (*domain.PrerequisiteStatus, error)
}

type CatalogService interface {
	CreateTopic(ctx context.Context, req *domain.CreateTopicRequest) (*domain.Topic, error)
	GetTopic(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error)
	ListTopics(ctx context.Context, limit, offset int) ([]*domain.Topic, error)
	UpdateTopic(ctx context.Context, topicID uuid.UUID, patch *domain.TopicPatch) (*domain.Topic, error)
	DeleteTopic(ctx context.Context, topicID uuid.UUID) error

	CreateSession(ctx context.Context, req *domain.CreateSessionRequest, requester domain.Requester) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	ListSessions(ctx context.Context, filter infrastructure.SessionFilter) ([]*domain.Session, error)
	UpdateSession(ctx context.Context, sessionID uuid.UUID, patch *domain.SessionPatch, requester domain.Requester) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID, requester domain.Requester) error

	CompleteTopic(ctx context.Context, studentID, topicID uuid.UUID, completedAt *time.Time) (*domain.CompletedTopic, error)
	ListCompletedTopics(ctx context.Context, studentID uuid.UUID) ([]*domain.CompletedTopic, error)
	RemoveCompletedTopic(ctx context.Context, studentID, topicID uuid.UUID) error
}

type NotificationService interface {
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
}

type AuditService interface {
	Audit(ctx context.Context) ([]infrastructure.SessionAudit, error)
	Repair(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
}
