package repository

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionRepository stores the topics each student has completed
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) interfaces.CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Create(ctx context.Context, completed *domain.CompletedTopic) error {
	return r.db.WithContext(ctx).Create(completed).Error
}

func (r *CompletionRepository) Delete(ctx context.Context, studentID, topicID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND topic_id = ?", studentID, topicID).
		Delete(&domain.CompletedTopic{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *CompletionRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.CompletedTopic, error) {
	var completed []*domain.CompletedTopic
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("completed_at ASC").
		Find(&completed).Error
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// GetCompletedTopicIDs returns the subset of topicIDs the student has completed
func (r *CompletionRepository) GetCompletedTopicIDs(ctx context.Context, studentID uuid.UUID, topicIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(topicIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&domain.CompletedTopic{}).
		Where("student_id = ? AND topic_id IN ?", studentID, topicIDs).
		Pluck("topic_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
