package repository

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository implements SessionRepository using GORM
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) interfaces.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &session, nil
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context, filter interfaces.SessionFilter) ([]*domain.Session, error) {
	var sessions []*domain.Session
	query := r.db.WithContext(ctx).Order("start_time ASC")

	if filter.TopicID != nil {
		query = query.Where("topic_id = ?", *filter.TopicID)
	}
	if filter.TrainerID != nil {
		query = query.Where("trainer_id = ?", *filter.TrainerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// UpdateAttendees writes the seat counter. Callers hold the session lock.
func (r *SessionRepository) UpdateAttendees(ctx context.Context, id uuid.UUID, attendees int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("current_attendees", attendees)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("session %s not found", id)
	}
	return nil
}

func (r *SessionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
}
