package counters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qdispatch/common"
)

// Repository handles data access for counters. Acquire and Release
// operate on a caller-supplied transaction handle so a counter flip is
// always part of the same unit of work as the ticket transition it
// belongs to.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a counter record.
func (r *Repository) Create(ctx context.Context, counter *common.Counter) error {
	if err := r.db.WithContext(ctx).Create(counter).Error; err != nil {
		return fmt.Errorf("failed to create counter: %w", err)
	}
	return nil
}

// List returns all counters, optionally restricted to one queue.
func (r *Repository) List(ctx context.Context, queueID uint) ([]common.Counter, error) {
	q := r.db.WithContext(ctx).Order("id asc")
	if queueID != 0 {
		q = q.Where("queue_id = ?", queueID)
	}

	var counters []common.Counter
	if err := q.Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	return counters, nil
}

// AcquireFree selects the free counter with the lowest id in the queue,
// marks it busy and returns it. Returns nil with no error when the
// queue has no free counter. The select is row-locked so two
// transactions never acquire the same counter.
func (r *Repository) AcquireFree(tx *gorm.DB, queueID uint) (*common.Counter, error) {
	var counter common.Counter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("queue_id = ? AND is_busy = ?", queueID, false).
		Order("id asc").
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select free counter: %w", err)
	}

	if err := tx.Model(&common.Counter{}).Where("id = ?", counter.ID).
		Update("is_busy", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark counter %d busy: %w", counter.ID, err)
	}
	counter.IsBusy = true
	return &counter, nil
}

// Release marks a counter free. Releasing an already-free counter is a
// no-op.
func (r *Repository) Release(tx *gorm.DB, counterID uint) error {
	if err := tx.Model(&common.Counter{}).Where("id = ?", counterID).
		Update("is_busy", false).Error; err != nil {
		return fmt.Errorf("failed to release counter %d: %w", counterID, err)
	}
	return nil
}
