package interfaces

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"

	"github.com/google/uuid"
)

type TopicRepository interface {
	Create(ctx context.Context, topic *domain.Topic) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Topic, error)
	GetByName(ctx context.Context, name string) (*domain.Topic, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Topic, error)
	Update(ctx context.Context, topic *domain.Topic) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type PrerequisiteRepository interface {
	Create(ctx context.Context, edge *domain.TopicPrerequisite) error
	Get(ctx context.Context, topicID, prerequisiteID uuid.UUID) (*domain.TopicPrerequisite, error)
	Delete(ctx context.Context, topicID, prerequisiteID uuid.UUID) (bool, error)
	GetPrerequisiteIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error)
	// DeleteAllForTopic removes every edge that starts or ends at topicID
	DeleteAllForTopic(ctx context.Context, topicID uuid.UUID) (int64, error)
	List(ctx context.Context) ([]*domain.TopicPrerequisite, error)
}

type CompletionRepository interface {
	Create(ctx context.Context, completed *domain.CompletedTopic) error
	Delete(ctx context.Context, studentID, topicID uuid.UUID) (bool, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.CompletedTopic, error)
	GetCompletedTopicIDs(ctx context.Context, studentID uuid.UUID, topicIDs []uuid.UUID) ([]uuid.UUID, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// GetByIDForUpdate reads the session holding an exclusive row lock until
	// the surrounding transaction ends. Only valid inside Store.WithSessionLock.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	UpdateAttendees(ctx context.Context, id uuid.UUID, attendees int) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type SessionFilter struct {
	TopicID   *uuid.UUID
	TrainerID *uuid.UUID
	Status    *string
	Limit     int
	Offset    int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetBySessionAndStudent(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.Booking, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*domain.Booking, error)
	CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int, error)
	// SetAttended and SetFeedback update existing rows only and report
	// false when the booking is gone
	SetAttended(ctx context.Context, id uuid.UUID, attended bool) (bool, error)
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string, rating int) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// Repositories groups the repositories bound to one database handle,
// either the root connection or an open transaction.
type Repositories struct {
	Topics        TopicRepository
	Prerequisites PrerequisiteRepository
	Completions   CompletionRepository
	Sessions      SessionRepository
	Bookings      BookingRepository
	Notifications NotificationRepository
}

// Store is the transactional storage collaborator
type Store interface {
	// Repos returns repositories outside any transaction
	Repos() Repositories

	// Transaction runs fn in one unit of work, rolled back if fn returns an error
	Transaction(ctx context.Context, fn func(repos Repositories) error) error

	// WithSessionLock runs fn in one unit of work holding an exclusive lock
	// on the session row. fn receives the locked session; a missing or
	// soft-deleted session yields domain.ErrNotFound without calling fn.
	WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(repos Repositories, session *domain.Session) error) error
}

// SessionAudit is one row of the counter consistency report
type SessionAudit struct {
	SessionID        uuid.UUID `db:"session_id" json:"session_id"`
	Capacity         int       `db:"capacity" json:"capacity"`
	CurrentAttendees int       `db:"current_attendees" json:"current_attendees"`
	BookingCount     int       `db:"booking_count" json:"booking_count"`
}

type AuditRepository interface {
	FindInconsistentSessions(ctx context.Context) ([]SessionAudit, error)
}
