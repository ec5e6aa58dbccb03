package handlers

import (
	"net/http"
	"strconv"

	"training-enrollment/internal/api/middleware"
	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves topics, sessions and completed topics
type CatalogHandler struct {
	catalog serviceInterfaces.CatalogService
}

func NewCatalogHandler(catalog serviceInterfaces.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateTopic handles POST /api/v1/topics
func (h *CatalogHandler) CreateTopic(c *gin.Context) {
	var req domain.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	topic, err := retryTransient("create topic", func() (*domain.Topic, error) {
		return h.catalog.CreateTopic(c.Request.Context(), &req)
	})
	if err != nil {
		respondError(c, "Failed to create topic", err)
		return
	}

	respondOK(c, http.StatusCreated, "Topic created", topic)
}

// ListTopics handles GET /api/v1/topics
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	topics, err := retryTransient("list topics", func() ([]*domain.Topic, error) {
		return h.catalog.ListTopics(c.Request.Context(), limit, offset)
	})
	if err != nil {
		respondError(c, "Failed to list topics", err)
		return
	}

	respondOK(c, http.StatusOK, "", topics)
}

// GetTopic handles GET /api/v1/topics/:topic_id
func (h *CatalogHandler) GetTopic(c *gin.Context) {
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}

	topic, err := retryTransient("get topic", func() (*domain.Topic, error) {
		return h.catalog.GetTopic(c.Request.Context(), topicID)
	})
	if err != nil {
		respondError(c, "Failed to get topic", err)
		return
	}

	respondOK(c, http.StatusOK, "", topic)
}

// UpdateTopic handles PATCH /api/v1/topics/:topic_id
func (h *CatalogHandler) UpdateTopic(c *gin.Context) {
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}

	var patch domain.TopicPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	topic, err := retryTransient("update topic", func() (*domain.Topic, error) {
		return h.catalog.UpdateTopic(c.Request.Context(), topicID, &patch)
	})
	if err != nil {
		respondError(c, "Failed to update topic", err)
		return
	}

	respondOK(c, http.StatusOK, "Topic updated", topic)
}

// DeleteTopic handles DELETE /api/v1/topics/:topic_id
func (h *CatalogHandler) DeleteTopic(c *gin.Context) {
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}

	_, err := retryTransient("delete topic", func() (struct{}, error) {
		return struct{}{}, h.catalog.DeleteTopic(c.Request.Context(), topicID)
	})
	if err != nil {
		respondError(c, "Failed to delete topic", err)
		return
	}

	respondOK(c, http.StatusOK, "Topic deleted", nil)
}

// CreateSession handles POST /api/v1/sessions
func (h *CatalogHandler) CreateSession(c *gin.Context) {
	requester, _ := middleware.RequesterFrom(c)

	var req domain.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	session, err := retryTransient("create session", func() (*domain.Session, error) {
		return h.catalog.CreateSession(c.Request.Context(), &req, requester)
	})
	if err != nil {
		respondError(c, "Failed to create session", err)
		return
	}

	respondOK(c, http.StatusCreated, "Session created", session)
}

// ListSessions handles GET /api/v1/sessions. Without a status filter only
// upcoming sessions are listed; status=all lists every state.
func (h *CatalogHandler) ListSessions(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	filter := interfaces.SessionFilter{Limit: limit, Offset: offset}

	switch status := c.DefaultQuery("status", string(domain.SessionUpcoming)); status {
	case "all":
	default:
		filter.Status = &status
	}
	if raw := c.Query("topic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "Invalid topic_id", err.Error())
			return
		}
		filter.TopicID = &id
	}
	if raw := c.Query("trainer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "Invalid trainer_id", err.Error())
			return
		}
		filter.TrainerID = &id
	}

	sessions, err := retryTransient("list sessions", func() ([]*domain.Session, error) {
		return h.catalog.ListSessions(c.Request.Context(), filter)
	})
	if err != nil {
		respondError(c, "Failed to list sessions", err)
		return
	}

	respondOK(c, http.StatusOK, "", sessions)
}

// GetSession handles GET /api/v1/sessions/:session_id
func (h *CatalogHandler) GetSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	session, err := retryTransient("get session", func() (*domain.Session, error) {
		return h.catalog.GetSession(c.Request.Context(), sessionID)
	})
	if err != nil {
		respondError(c, "Failed to get session", err)
		return
	}

	respondOK(c, http.StatusOK, "", session)
}

// UpdateSession handles PATCH /api/v1/sessions/:session_id
func (h *CatalogHandler) UpdateSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	var patch domain.SessionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	session, err := retryTransient("update session", func() (*domain.Session, error) {
		return h.catalog.UpdateSession(c.Request.Context(), sessionID, &patch, requester)
	})
	if err != nil {
		respondError(c, "Failed to update session", err)
		return
	}

	respondOK(c, http.StatusOK, "Session updated", session)
}

// DeleteSession handles DELETE /api/v1/sessions/:session_id
func (h *CatalogHandler) DeleteSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	requester, _ := middleware.RequesterFrom(c)

	_, err := retryTransient("delete session", func() (struct{}, error) {
		return struct{}{}, h.catalog.DeleteSession(c.Request.Context(), sessionID, requester)
	})
	if err != nil {
		respondError(c, "Failed to delete session", err)
		return
	}

	respondOK(c, http.StatusOK, "Session deleted", nil)
}

// CompleteTopic handles POST /api/v1/students/:student_id/topics
func (h *CatalogHandler) CompleteTopic(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}

	var req domain.CompleteTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	completed, err := retryTransient("complete topic", func() (*domain.CompletedTopic, error) {
		return h.catalog.CompleteTopic(c.Request.Context(), studentID, req.TopicID, req.CompletedAt)
	})
	if err != nil {
		respondError(c, "Failed to record completed topic", err)
		return
	}

	respondOK(c, http.StatusCreated, "Topic marked as completed", completed)
}

// ListCompletedTopics handles GET /api/v1/students/:student_id/topics
func (h *CatalogHandler) ListCompletedTopics(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	if !selfOrStaff(c, studentID) {
		return
	}

	completed, err := retryTransient("list completed topics", func() ([]*domain.CompletedTopic, error) {
		return h.catalog.ListCompletedTopics(c.Request.Context(), studentID)
	})
	if err != nil {
		respondError(c, "Failed to list completed topics", err)
		return
	}

	respondOK(c, http.StatusOK, "", completed)
}

// RemoveCompletedTopic handles DELETE /api/v1/students/:student_id/topics/:topic_id
func (h *CatalogHandler) RemoveCompletedTopic(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}

	_, err := retryTransient("remove completed topic", func() (struct{}, error) {
		return struct{}{}, h.catalog.RemoveCompletedTopic(c.Request.Context(), studentID, topicID)
	})
	if err != nil {
		respondError(c, "Failed to remove completed topic", err)
		return
	}

	respondOK(c, http.StatusOK, "Completed topic removed", nil)
}

func pagination(c *gin.Context) (int, int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		respondBadRequest(c, "Invalid limit", err.Error())
		return 0, 0, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		respondBadRequest(c, "Invalid offset", err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
