package queues

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"qdispatch/common"
)

// Repository handles data access for queues.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a queue record.
func (r *Repository) Create(ctx context.Context, queue *common.Queue) error {
	if err := r.db.WithContext(ctx).Create(queue).Error; err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	return nil
}

// GetByID fetches a queue by its id.
func (r *Repository) GetByID(ctx context.Context, id uint) (*common.Queue, error) {
	var queue common.Queue
	err := r.db.WithContext(ctx).First(&queue, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("queue %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue %d: %w", id, err)
	}
	return &queue, nil
}

// List returns all queues in creation order.
func (r *Repository) List(ctx context.Context) ([]common.Queue, error) {
	var queues []common.Queue
	if err := r.db.WithContext(ctx).Order("id asc").Find(&queues).Error; err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	return queues, nil
}
