package service

import (
	"context"
	"sync"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/logger"

	"github.com/google/uuid"
)

var _ serviceInterfaces.PrerequisiteService = (*PrerequisiteService)(nil)

type PrerequisiteService struct {
	store interfaces.Store

	// serialises edge insertion within this process so two opposing
	// edges cannot both pass the cycle check
	graphMu sync.Mutex
}

func NewPrerequisiteService(store interfaces.Store) *PrerequisiteService {
	return &PrerequisiteService{store: store}
}

// AddPrerequisite records that topicID requires prerequisiteID
func (s *PrerequisiteService) AddPrerequisite(ctx context.Context, topicID, prerequisiteID uuid.UUID) (*domain.TopicPrerequisite, error) {
	if topicID == uuid.Nil || prerequisiteID == uuid.Nil {
		return nil, domain.NewInvalidArgumentError("topic_id and prerequisite_topic_id are required")
	}
	if topicID == prerequisiteID {
		return nil, domain.NewInvalidArgumentError("a topic cannot be its own prerequisite")
	}

	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	var edge *domain.TopicPrerequisite
	err := s.store.Transaction(ctx, func(repos interfaces.Repositories) error {
		topic, err := repos.Topics.GetByID(ctx, topicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return domain.NewNotFoundError("topic %s not found", topicID)
		}

		prerequisite, err := repos.Topics.GetByID(ctx, prerequisiteID)
		if err != nil {
			return err
		}
		if prerequisite == nil {
			return domain.NewNotFoundError("prerequisite topic %s not found", prerequisiteID)
		}

		existing, err := repos.Prerequisites.Get(ctx, topicID, prerequisiteID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewConflictError("%q already requires %q", topic.Name, prerequisite.Name)
		}

		cycle, err := domain.WouldCreateCycle(topicID, prerequisiteID, func(id uuid.UUID) ([]uuid.UUID, error) {
			return repos.Prerequisites.GetPrerequisiteIDs(ctx, id)
		})
		if err != nil {
			return err
		}
		if cycle {
			return domain.NewInvalidStateError("circular dependency: %q already depends on %q", prerequisite.Name, topic.Name)
		}

		edge = &domain.TopicPrerequisite{TopicID: topicID, PrerequisiteID: prerequisiteID}
		return repos.Prerequisites.Create(ctx, edge)
	})
	if err != nil {
		return nil, storageError("add prerequisite", err)
	}

	logger.Info("Topic %s now requires %s", topicID, prerequisiteID)
	return edge, nil
}

func (s *PrerequisiteService) RemovePrerequisite(ctx context.Context, topicID, prerequisiteID uuid.UUID) error {
	deleted, err := s.store.Repos().Prerequisites.Delete(ctx, topicID, prerequisiteID)
	if err != nil {
		return storageError("remove prerequisite", err)
	}
	if !deleted {
		return domain.NewNotFoundError("prerequisite %s -> %s not found", topicID, prerequisiteID)
	}

	logger.Info("Topic %s no longer requires %s", topicID, prerequisiteID)
	return nil
}

// ListPrerequisites returns the direct prerequisites of a topic
func (s *PrerequisiteService) ListPrerequisites(ctx context.Context, topicID uuid.UUID) ([]*domain.Topic, error) {
	repos := s.store.Repos()

	topic, err := repos.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if topic == nil {
		return nil, domain.NewNotFoundError("topic %s not found", topicID)
	}

	ids, err := repos.Prerequisites.GetPrerequisiteIDs(ctx, topicID)
	if err != nil {
		return nil, storageError("list prerequisites", err)
	}

	topics, err := repos.Topics.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storageError("list prerequisites", err)
	}
	return topics, nil
}

func (s *PrerequisiteService) CheckPrerequisitesSatisfied(ctx context.Context, studentID, topicID uuid.UUID) (*domain.PrerequisiteStatus, error) {
	repos := s.store.Repos()

	topic, err := repos.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, storageError("get topic", err)
	}
	if topic == nil {
		return nil, domain.NewNotFoundError("topic %s not found", topicID)
	}

	status, err := checkPrerequisites(ctx, repos, studentID, topicID)
	if err != nil {
		return nil, storageError("check prerequisites", err)
	}
	return status, nil
}

// checkPrerequisites compares the direct prerequisites of topicID with the
// student's completed topics. Transitive prerequisites are not followed.
// repos may be bound to an open transaction.
func checkPrerequisites(ctx context.Context, repos interfaces.Repositories, studentID, topicID uuid.UUID) (*domain.PrerequisiteStatus, error) {
	status := &domain.PrerequisiteStatus{
		TopicID:   topicID,
		StudentID: studentID,
		Satisfied: true,
		Missing:   []domain.Topic{},
	}

	required, err := repos.Prerequisites.GetPrerequisiteIDs(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if len(required) == 0 {
		return status, nil
	}

	completed, err := repos.Completions.GetCompletedTopicIDs(ctx, studentID, required)
	if err != nil {
		return nil, err
	}

	done := make(map[uuid.UUID]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}

	var missingIDs []uuid.UUID
	for _, id := range required {
		if _, ok := done[id]; !ok {
			missingIDs = append(missingIDs, id)
		}
	}
	if len(missingIDs) == 0 {
		return status, nil
	}

	topics, err := repos.Topics.GetByIDs(ctx, missingIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		status.Missing = append(status.Missing, *t)
	}
	status.Satisfied = false

	return status, nil
}
