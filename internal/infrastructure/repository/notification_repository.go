package repository

import (
	"context"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) interfaces.NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if notification.NotificationID == uuid.Nil {
		notification.NotificationID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// GetByUserID returns the user's notifications, newest first
func (r *NotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// NotificationSink persists dequeued notification events
type NotificationSink struct {
	notifications interfaces.NotificationRepository
}

func NewNotificationSink(notifications interfaces.NotificationRepository) *NotificationSink {
	return &NotificationSink{notifications: notifications}
}

func (s *NotificationSink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return s.notifications.Create(ctx, &domain.Notification{
		UserID:    event.UserID,
		Type:      event.Type,
		Message:   event.Message,
		CreatedAt: createdAt,
	})
}

var _ interfaces.NotificationSink = (*NotificationSink)(nil)
