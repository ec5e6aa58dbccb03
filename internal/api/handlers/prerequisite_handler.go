package handlers

import (
	"net/http"

	domain "training-enrollment/internal/domain/enrollment"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrerequisiteHandler handles the topic prerequisite graph
type PrerequisiteHandler struct {
	prerequisites serviceInterfaces.PrerequisiteService
}

func NewPrerequisiteHandler(prerequisites serviceInterfaces.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{prerequisites: prerequisites}
}

// AddPrerequisite handles POST /api/v1/topic-prerequisites
func (h *PrerequisiteHandler) AddPrerequisite(c *gin.Context) {
	var req domain.PrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format", err.Error())
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondBadRequest(c, "Validation failed", validator.FormatValidationError(err))
		return
	}

	edge, err := retryTransient("add prerequisite", func() (*domain.TopicPrerequisite, error) {
		return h.prerequisites.AddPrerequisite(c.Request.Context(), req.TopicID, req.PrerequisiteTopicID)
	})
	if err != nil {
		respondError(c, "Failed to add prerequisite", err)
		return
	}

	respondOK(c, http.StatusCreated, "Prerequisite added", edge)
}

// RemovePrerequisite handles DELETE /api/v1/topic-prerequisites?topic_id=..&prerequisite_topic_id=..
func (h *PrerequisiteHandler) RemovePrerequisite(c *gin.Context) {
	topicID, err := uuid.Parse(c.Query("topic_id"))
	if err != nil {
		respondBadRequest(c, "Invalid topic_id", err.Error())
		return
	}
	prerequisiteID, err := uuid.Parse(c.Query("prerequisite_topic_id"))
	if err != nil {
		respondBadRequest(c, "Invalid prerequisite_topic_id", err.Error())
		return
	}

	_, err = retryTransient("remove prerequisite", func() (struct{}, error) {
		return struct{}{}, h.prerequisites.RemovePrerequisite(c.Request.Context(), topicID, prerequisiteID)
	})
	if err != nil {
		respondError(c, "Failed to remove prerequisite", err)
		return
	}

	respondOK(c, http.StatusOK, "Prerequisite removed", nil)
}

// ListPrerequisites handles GET /api/v1/topics/:topic_id/prerequisites
func (h *PrerequisiteHandler) ListPrerequisites(c *gin.Context) {
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}

	topics, err := retryTransient("list prerequisites", func() ([]*domain.Topic, error) {
		return h.prerequisites.ListPrerequisites(c.Request.Context(), topicID)
	})
	if err != nil {
		respondError(c, "Failed to list prerequisites", err)
		return
	}

	respondOK(c, http.StatusOK, "", topics)
}

// CheckPrerequisites handles GET /api/v1/students/:student_id/prerequisites/:topic_id
func (h *PrerequisiteHandler) CheckPrerequisites(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	topicID, ok := uuidParam(c, "topic_id")
	if !ok {
		return
	}
	if !selfOrStaff(c, studentID) {
		return
	}

	status, err := retryTransient("check prerequisites", func() (*domain.PrerequisiteStatus, error) {
		return h.prerequisites.CheckPrerequisitesSatisfied(c.Request.Context(), studentID, topicID)
	})
	if err != nil {
		respondError(c, "Failed to check prerequisites", err)
		return
	}

	respondOK(c, http.StatusOK, "", status)
}
