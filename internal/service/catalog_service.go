package service

import (
	"context"
	"strings"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/database"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/logger"
	"training-enrollment/pkg/validator"

	"github.com/google/uuid"
)

const (
	DefaultSessionDuration = 60
	DefaultSessionCapacity = 10
	DefaultPageSize        = 50
	MaxPageSize            = 200
)

var _ serviceInterfaces.CatalogService = (*CatalogService)(nil)

// CatalogService manages topics, sessions and completed topics
type CatalogService struct {
	store interfaces.Store
	now   func() time.Time
}

func NewCatalogService(store interfaces.Store, now func() time.Time) *CatalogService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &CatalogService{store: store, now: now}
}

func (s *CatalogService) CreateTopic(ctx context.Context, req *domain.CreateTopicRequest) (*domain.Topic, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	repos := s.store.Repos()

	existing, err := repos.Topics.GetByName(ctx, req.Name)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if existing != nil {
		return nil, domain.NewConflictError("topic %q already exists", req.Name)
	}

	topic := &domain.Topic{
		TopicID:     uuid.New(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := repos.Topics.Create(ctx, topic); err != nil {
		return nil, storageError("create topic", err)
	}

	logger.Info("Topic created: %s (%s)", topic.Name, topic.TopicID)
	return topic, nil
}

func (s *CatalogService) GetTopic(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error) {
	topic, err := s.store.Repos().Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if topic == nil {
		return nil, domain.NewNotFoundError("topic %s not found", topicID)
	}
	return topic, nil
}

func (s *CatalogService) ListTopics(ctx context.Context, limit, offset int) ([]*domain.Topic, error) {
	limit, offset = page(limit, offset)
	topics, err := s.store.Repos().Topics.List(ctx, limit, offset)
	if err != nil {
		return nil, storageError("list topics", err)
	}
	return topics, nil
}

func (s *CatalogService) UpdateTopic(ctx context.Context, topicID uuid.UUID, patch *domain.TopicPatch) (*domain.Topic, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validator.ValidateStruct(patch); err != nil {
		return nil, validationError(err)
	}

	var topic *domain.Topic
	err := s.store.Transaction(ctx, func(repos interfaces.Repositories) error {
		var err error
		topic, err = repos.Topics.GetByID(ctx, topicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return domain.NewNotFoundError("topic %s not found", topicID)
		}

		if patch.Name != nil && *patch.Name != topic.Name {
			other, err := repos.Topics.GetByName(ctx, *patch.Name)
			if err != nil {
				return err
			}
			if other != nil {
				return domain.NewConflictError("topic %q already exists", *patch.Name)
			}
			topic.Name = *patch.Name
		}
		if patch.Description != nil {
			topic.Description = patch.Description
		}

		return repos.Topics.Update(ctx, topic)
	})
	if err != nil {
		return nil, storageError("update topic", err)
	}
	return topic, nil
}

// DeleteTopic soft deletes the topic and drops every prerequisite edge touching it
func (s *CatalogService) DeleteTopic(ctx context.Context, topicID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(repos interfaces.Repositories) error {
		topic, err := repos.Topics.GetByID(ctx, topicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return domain.NewNotFoundError("topic %s not found", topicID)
		}

		removed, err := repos.Prerequisites.DeleteAllForTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Debug("Removed %d prerequisite edges of topic %s", removed, topicID)
		}

		return repos.Topics.SoftDelete(ctx, topicID)
	})
	if err != nil {
		return storageError("delete topic", err)
	}

	logger.Info("Topic deleted: %s", topicID)
	return nil
}

// CreateSession schedules a session. Trainers create sessions for
// themselves; admins may name any trainer.
func (s *CatalogService) CreateSession(ctx context.Context, req *domain.CreateSessionRequest, requester domain.Requester) (*domain.Session, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if requester.Role != domain.RoleTrainer && !requester.IsAdmin() {
		return nil, domain.NewForbiddenError("only trainers can create sessions")
	}

	trainerID := requester.UserID
	if req.TrainerID != nil && *req.TrainerID != requester.UserID {
		if !requester.IsAdmin() {
			return nil, domain.NewForbiddenError("trainers can only create their own sessions")
		}
		trainerID = *req.TrainerID
	}
	if trainerID == uuid.Nil {
		return nil, domain.NewInvalidArgumentError("trainer_id is required")
	}

	if !req.StartTime.After(s.now()) {
		return nil, domain.NewInvalidArgumentError("start_time must be in the future")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = DefaultSessionDuration
	}
	capacity := req.Capacity
	if capacity == 0 {
		capacity = DefaultSessionCapacity
	}

	repos := s.store.Repos()

	topic, err := repos.Topics.GetByID(ctx, req.TopicID)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if topic == nil {
		return nil, domain.NewNotFoundError("topic %s not found", req.TopicID)
	}

	session := &domain.Session{
		SessionID:       uuid.New(),
		TopicID:         req.TopicID,
		TrainerID:       trainerID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		StartTime:       req.StartTime.UTC(),
		DurationMinutes: duration,
		Capacity:        capacity,
		MeetLink:        req.MeetLink,
		Status:          domain.SessionUpcoming,
	}
	if err := repos.Sessions.Create(ctx, session); err != nil {
		return nil, storageError("create session", err)
	}

	logger.Info("Session created: %s for topic %s (capacity %d)", session.SessionID, topic.Name, capacity)
	return session, nil
}

func (s *CatalogService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	session, err := s.store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storageError("get session", err)
	}
	if session == nil {
		return nil, domain.NewNotFoundError("session %s not found", sessionID)
	}
	return session, nil
}

func (s *CatalogService) ListSessions(ctx context.Context, filter interfaces.SessionFilter) ([]*domain.Session, error) {
	if filter.Status != nil && !domain.SessionStatus(*filter.Status).Valid() {
		return nil, domain.NewInvalidArgumentError("unknown session status %q", *filter.Status)
	}
	filter.Limit, filter.Offset = page(filter.Limit, filter.Offset)

	sessions, err := s.store.Repos().Sessions.List(ctx, filter)
	if err != nil {
		return nil, storageError("list sessions", err)
	}
	return sessions, nil
}

// UpdateSession applies the patch under the session lock so a capacity
// change cannot race with bookings.
func (s *CatalogService) UpdateSession(ctx context.Context, sessionID uuid.UUID, patch *domain.SessionPatch, requester domain.Requester) (*domain.Session, error) {
	if err := validator.ValidateStruct(patch); err != nil {
		return nil, validationError(err)
	}

	var updated *domain.Session
	err := s.store.WithSessionLock(ctx, sessionID, func(repos interfaces.Repositories, session *domain.Session) error {
		if !canManage(requester, session) {
			return domain.NewForbiddenError("not authorized to update this session")
		}

		if patch.Title != nil {
			session.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			session.Description = patch.Description
		}
		if patch.StartTime != nil {
			session.StartTime = patch.StartTime.UTC()
		}
		if patch.DurationMinutes != nil {
			session.DurationMinutes = *patch.DurationMinutes
		}
		if patch.MeetLink != nil {
			session.MeetLink = patch.MeetLink
		}
		if patch.Capacity != nil {
			if *patch.Capacity < session.CurrentAttendees {
				return domain.NewInvalidStateError("capacity %d is below the %d current attendees", *patch.Capacity, session.CurrentAttendees)
			}
			session.Capacity = *patch.Capacity
		}
		if patch.Status != nil && *patch.Status != session.Status {
			if !canTransition(session.Status, *patch.Status) {
				return domain.NewInvalidStateError("cannot move session from %s to %s", session.Status, *patch.Status)
			}
			session.Status = *patch.Status
		}

		if err := repos.Sessions.Update(ctx, session); err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, storageError("update session", err)
	}

	logger.Info("Session updated: %s", sessionID)
	return updated, nil
}

// DeleteSession soft deletes a session without bookings. Sessions with
// bookings are cancelled through a status change instead.
func (s *CatalogService) DeleteSession(ctx context.Context, sessionID uuid.UUID, requester domain.Requester) error {
	err := s.store.WithSessionLock(ctx, sessionID, func(repos interfaces.Repositories, session *domain.Session) error {
		if !canManage(requester, session) {
			return domain.NewForbiddenError("not authorized to delete this session")
		}

		count, err := repos.Bookings.CountBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.NewConflictError("session has %d bookings; cancel it instead", count)
		}

		return repos.Sessions.SoftDelete(ctx, sessionID)
	})
	if err != nil {
		return storageError("delete session", err)
	}

	logger.Info("Session deleted: %s", sessionID)
	return nil
}

func (s *CatalogService) CompleteTopic(ctx context.Context, studentID, topicID uuid.UUID, completedAt *time.Time) (*domain.CompletedTopic, error) {
	if studentID == uuid.Nil || topicID == uuid.Nil {
		return nil, domain.NewInvalidArgumentError("student_id and topic_id are required")
	}

	repos := s.store.Repos()

	topic, err := repos.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if topic == nil {
		return nil, domain.NewNotFoundError("topic %s not found", topicID)
	}

	at := s.now()
	if completedAt != nil {
		at = completedAt.UTC()
	}

	completed := &domain.CompletedTopic{
		StudentID:   studentID,
		TopicID:     topicID,
		CompletedAt: at,
	}
	if err := repos.Completions.Create(ctx, completed); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, domain.NewConflictError("topic %q already completed", topic.Name)
		}
		return nil, storageError("complete topic", err)
	}

	return completed, nil
}

func (s *CatalogService) ListCompletedTopics(ctx context.Context, studentID uuid.UUID) ([]*domain.CompletedTopic, error) {
	completed, err := s.store.Repos().Completions.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, storageError("list completed topics", err)
	}
	return completed, nil
}

func (s *CatalogService) RemoveCompletedTopic(ctx context.Context, studentID, topicID uuid.UUID) error {
	deleted, err := s.store.Repos().Completions.Delete(ctx, studentID, topicID)
	if err != nil {
		return storageError("remove completed topic", err)
	}
	if !deleted {
		return domain.NewNotFoundError("topic %s is not completed by student %s", topicID, studentID)
	}
	return nil
}

func canManage(requester domain.Requester, session *domain.Session) bool {
	return requester.IsAdmin() || (requester.Role == domain.RoleTrainer && requester.UserID == session.TrainerID)
}

// cancelled and completed are terminal
func canTransition(from, to domain.SessionStatus) bool {
	switch from {
	case domain.SessionUpcoming:
		return to == domain.SessionActive || to == domain.SessionCancelled || to == domain.SessionCompleted
	case domain.SessionActive:
		return to == domain.SessionCancelled || to == domain.SessionCompleted
	}
	return false
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
