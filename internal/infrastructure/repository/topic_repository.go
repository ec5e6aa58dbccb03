package repository

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopicRepository implements TopicRepository using GORM
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new GORM topic repository
func NewTopicRepository(db *gorm.DB) interfaces.TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Create(ctx context.Context, topic *domain.Topic) error {
	if topic.TopicID == uuid.Nil {
		topic.TopicID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(topic).Error
}

// GetByID returns nil when the topic does not exist or was soft deleted
func (r *TopicRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	var topic domain.Topic
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&topic).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &topic, nil
}

func (r *TopicRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	if len(ids) == 0 {
		return topics, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *TopicRepository) GetByName(ctx context.Context, name string) (*domain.Topic, error) {
	var topic domain.Topic
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &topic, nil
}

func (r *TopicRepository) List(ctx context.Context, limit, offset int) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	query := r.db.WithContext(ctx).Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *TopicRepository) Update(ctx context.Context, topic *domain.Topic) error {
	return r.db.WithContext(ctx).Save(topic).Error
}

func (r *TopicRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Topic{}).Error
}
