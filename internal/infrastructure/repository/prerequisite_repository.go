package repository

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PrerequisiteRepository stores directed prerequisite edges
type PrerequisiteRepository struct {
	db *gorm.DB
}

func NewPrerequisiteRepository(db *gorm.DB) interfaces.PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

func (r *PrerequisiteRepository) Create(ctx context.Context, edge *domain.TopicPrerequisite) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *PrerequisiteRepository) Get(ctx context.Context, topicID, prerequisiteID uuid.UUID) (*domain.TopicPrerequisite, error) {
	var edge domain.TopicPrerequisite
	err := r.db.WithContext(ctx).
		Where("topic_id = ? AND prerequisite_id = ?", topicID, prerequisiteID).
		First(&edge).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &edge, nil
}

// Delete reports whether an edge was removed
func (r *PrerequisiteRepository) Delete(ctx context.Context, topicID, prerequisiteID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("topic_id = ? AND prerequisite_id = ?", topicID, prerequisiteID).
		Delete(&domain.TopicPrerequisite{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetPrerequisiteIDs returns the direct prerequisites of topicID
func (r *PrerequisiteRepository) GetPrerequisiteIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.TopicPrerequisite{}).
		Where("topic_id = ?", topicID).
		Order("prerequisite_id").
		Pluck("prerequisite_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PrerequisiteRepository) DeleteAllForTopic(ctx context.Context, topicID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("topic_id = ? OR prerequisite_id = ?", topicID, topicID).
		Delete(&domain.TopicPrerequisite{})
	return result.RowsAffected, result.Error
}

func (r *PrerequisiteRepository) List(ctx context.Context) ([]*domain.TopicPrerequisite, error) {
	var edges []*domain.TopicPrerequisite
	if err := r.db.WithContext(ctx).Order("topic_id, prerequisite_id").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}
