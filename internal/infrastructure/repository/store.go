package repository

import (
	"context"
	"errors"
	"fmt"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore implements Store on top of a GORM connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// NewRepositories binds every repository to db, which may be a transaction
func NewRepositories(db *gorm.DB) interfaces.Repositories {
	return interfaces.Repositories{
		Topics:        NewTopicRepository(db),
		Prerequisites: NewPrerequisiteRepository(db),
		Completions:   NewCompletionRepository(db),
		Sessions:      NewSessionRepository(db),
		Bookings:      NewBookingRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

func (s *GormStore) Repos() interfaces.Repositories {
	return NewRepositories(s.db)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(repos interfaces.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// WithSessionLock locks the session row with SELECT ... FOR UPDATE. On
// sqlite the locking clause is dropped and the single pooled connection
// serialises transactions instead.
func (s *GormStore) WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(repos interfaces.Repositories, session *domain.Session) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := NewRepositories(tx)

		session, err := repos.Sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.NewNotFoundError("session %s not found", sessionID)
		}

		return fn(repos, session)
	})
}

func notFoundOrNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return fmt.Errorf("query failed: %w", err)
}

var _ interfaces.Store = (*GormStore)(nil)
