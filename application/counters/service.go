package counters

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"qdispatch/application/queues"
	"qdispatch/common"
)

// Service handles business logic for counter administration.
type Service struct {
	repo   *Repository
	queues *queues.Repository
	logger *zap.Logger
}

// NewService creates a new Service.
func NewService(repo *Repository, queueRepo *queues.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, queues: queueRepo, logger: logger}
}

// Create validates and registers a counter on an existing queue.
func (s *Service) Create(ctx context.Context, queueID uint, name string) (*common.Counter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("counter name is required: %w", common.ErrValidation)
	}

	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		return nil, err
	}

	counter := &common.Counter{
		QueueID: queue.ID,
		Name:    name,
	}
	if err := s.repo.Create(ctx, counter); err != nil {
		return nil, err
	}

	s.logger.Info("counter created",
		zap.Uint("counterId", counter.ID),
		zap.Uint("queueId", queue.ID),
		zap.String("name", counter.Name),
	)
	return counter, nil
}

// List returns counters, optionally filtered by queue (0 = all).
func (s *Service) List(ctx context.Context, queueID uint) ([]common.Counter, error) {
	return s.repo.List(ctx, queueID)
}
