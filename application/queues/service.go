package queues

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"qdispatch/common"
)

// DefaultAvgHandleTime is used when a queue is created without an
// explicit average handling time, in minutes.
const DefaultAvgHandleTime = 5

// Service handles business logic for queue administration.
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates a new Service.
func NewService(repo *Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create validates and registers a new queue. avgHandleTime is in
// minutes; nil means the default.
func (s *Service) Create(ctx context.Context, name string, avgHandleTime *int) (*common.Queue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("queue name is required: %w", common.ErrValidation)
	}

	handleTime := DefaultAvgHandleTime
	if avgHandleTime != nil {
		if *avgHandleTime <= 0 {
			return nil, fmt.Errorf("avg_handle_time must be a positive number of minutes: %w", common.ErrValidation)
		}
		handleTime = *avgHandleTime
	}

	queue := &common.Queue{
		Name:          name,
		AvgHandleTime: handleTime,
	}
	if err := s.repo.Create(ctx, queue); err != nil {
		return nil, err
	}

	s.logger.Info("queue created",
		zap.Uint("queueId", queue.ID),
		zap.String("name", queue.Name),
		zap.Int("avgHandleTime", queue.AvgHandleTime),
	)
	return queue, nil
}

// Get returns a queue by id.
func (s *Service) Get(ctx context.Context, id uint) (*common.Queue, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all queues in creation order.
func (s *Service) List(ctx context.Context) ([]common.Queue, error) {
	return s.repo.List(ctx)
}
