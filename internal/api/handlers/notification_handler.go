package handlers

import (
	"net/http"

	"training-enrollment/internal/api/middleware"
	domain "training-enrollment/internal/domain/enrollment"
	serviceInterfaces "training-enrollment/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications serviceInterfaces.NotificationService
}

func NewNotificationHandler(notifications serviceInterfaces.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications handles GET /api/v1/notifications for the caller
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	requester, _ := middleware.RequesterFrom(c)

	notifications, err := retryTransient("list notifications", func() ([]*domain.Notification, error) {
		return h.notifications.ListNotifications(c.Request.Context(), requester.UserID)
	})
	if err != nil {
		respondError(c, "Failed to list notifications", err)
		return
	}

	respondOK(c, http.StatusOK, "", notifications)
}

// MarkRead handles POST /api/v1/notifications/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := uuidParam(c, "notification_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	_, err := retryTransient("mark notification read", func() (struct{}, error) {
		return struct{}{}, h.notifications.MarkRead(c.Request.Context(), notificationID, requester.UserID)
	})
	if err != nil {
		respondError(c, "Failed to mark notification read", err)
		return
	}

	respondOK(c, http.StatusOK, "Notification marked as read", nil)
}
