package service

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"

	"github.com/google/uuid"
)

var _ serviceInterfaces.NotificationService = (*NotificationService)(nil)

type NotificationService struct {
	notifications interfaces.NotificationRepository
}

func NewNotificationService(notifications interfaces.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	notifications, err := s.notifications.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("list notifications", err)
	}
	return notifications, nil
}

// MarkRead only touches notifications owned by userID
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	updated, err := s.notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return storageError("mark notification read", err)
	}
	if !updated {
		return domain.NewNotFoundError("notification %s not found", notificationID)
	}
	return nil
}
