package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qdispatch/application/counters"
	"qdispatch/application/queues"
	"qdispatch/common"
)

// DispatchOutcome distinguishes the three results of callNext. The two
// empty-handed outcomes are expected operational states, not errors.
type DispatchOutcome string

const (
	OutcomeCalled        DispatchOutcome = "called"
	OutcomeNoWaiting     DispatchOutcome = "no_waiting_tickets"
	OutcomeNoFreeCounter DispatchOutcome = "no_free_counters"
)

// DispatchResult is the outcome of one callNext attempt. Ticket and
// Counter are set only when Outcome is OutcomeCalled.
type DispatchResult struct {
	Outcome DispatchOutcome
	Ticket  *common.Ticket
	Counter *common.Counter
}

// JoinResult is a freshly issued ticket with its initial estimate.
type JoinResult struct {
	Ticket   *common.Ticket
	Estimate *Estimate
}

// StatusResult reports a ticket with its live position while WAITING.
// Estimate is nil for non-WAITING tickets, whose call time is carried
// on the ticket itself.
type StatusResult struct {
	Ticket   *common.Ticket
	Estimate *Estimate
}

// Service is the dispatch engine: it owns every ticket state change and
// is the only component allowed to bind tickets to counters.
type Service struct {
	repo      *Repository
	counters  *counters.Repository
	queues    *queues.Repository
	estimator *Estimator
	logger    *zap.Logger
}

// NewService creates a new Service.
func NewService(repo *Repository, counterRepo *counters.Repository, queueRepo *queues.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		counters:  counterRepo,
		queues:    queueRepo,
		estimator: NewEstimator(repo, queueRepo),
		logger:    logger,
	}
}

// Join issues the next ticket number in the queue and returns the
// ticket with its initial wait estimate. The queue row is locked while
// the number is assigned, so concurrent joins never collide or skip.
func (s *Service) Join(ctx context.Context, queueID uint, userName, phoneNumber string, priority int) (*JoinResult, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, fmt.Errorf("user_name is required: %w", common.ErrValidation)
	}
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, fmt.Errorf("phone_number is required: %w", common.ErrValidation)
	}
	if priority == 0 {
		priority = common.PriorityNormal
	}

	var ticket *common.Ticket
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		queue, err := s.repo.LockQueue(tx, queueID)
		if err != nil {
			return err
		}

		number, err := s.repo.NextTicketNumber(tx, queue.ID)
		if err != nil {
			return err
		}

		ticket = &common.Ticket{
			QueueID:      queue.ID,
			TicketNumber: number,
			Priority:     priority,
			Status:       common.StatusWaiting,
			UserName:     userName,
			PhoneNumber:  phoneNumber,
		}
		return s.repo.Create(tx, ticket)
	})
	if err != nil {
		return nil, err
	}

	estimate, err := s.estimator.Estimate(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket issued",
		zap.Uint("ticketId", ticket.ID),
		zap.Uint("queueId", ticket.QueueID),
		zap.Int("ticketNumber", ticket.TicketNumber),
		zap.Int("priority", ticket.Priority),
		zap.Int("waitMinutes", estimate.EstimatedWaitMinutes),
	)
	return &JoinResult{Ticket: ticket, Estimate: estimate}, nil
}

// CallNext selects the next eligible ticket and binds it to a free
// counter. Selection, counter acquisition and both status flips happen
// in one transaction: a failed acquisition leaves the selected ticket
// WAITING, and no concurrent call on the same queue can bind the same
// ticket or counter.
func (s *Service) CallNext(ctx context.Context, queueID uint) (*DispatchResult, error) {
	var result DispatchResult
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		queue, err := s.repo.LockQueue(tx, queueID)
		if err != nil {
			return err
		}

		ticket, err := s.repo.NextEligible(tx, queue.ID)
		if err != nil {
			return err
		}
		if ticket == nil {
			result.Outcome = OutcomeNoWaiting
			return nil
		}

		counter, err := s.counters.AcquireFree(tx, queue.ID)
		if err != nil {
			return err
		}
		if counter == nil {
			result.Outcome = OutcomeNoFreeCounter
			return nil
		}

		now := time.Now()
		if err := s.repo.Transition(tx, ticket, common.StatusServing, &counter.ID, &now); err != nil {
			return err
		}

		result = DispatchResult{Outcome: OutcomeCalled, Ticket: ticket, Counter: counter}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case OutcomeCalled:
		s.logger.Info("ticket called",
			zap.Uint("ticketId", result.Ticket.ID),
			zap.Uint("queueId", queueID),
			zap.Int("ticketNumber", result.Ticket.TicketNumber),
			zap.Uint("counterId", result.Counter.ID),
		)
	default:
		s.logger.Info("nothing dispatched",
			zap.Uint("queueId", queueID),
			zap.String("outcome", string(result.Outcome)),
		)
	}
	return &result, nil
}

// Skip moves a WAITING ticket to SKIPPED. Any other status fails with
// an invalid-transition error and leaves the ticket untouched.
func (s *Service) Skip(ctx context.Context, ticketID uint) (*common.Ticket, error) {
	var ticket *common.Ticket
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		ticket, err = s.repo.GetForUpdate(tx, ticketID)
		if err != nil {
			return err
		}
		return s.repo.Transition(tx, ticket, common.StatusSkipped, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket skipped",
		zap.Uint("ticketId", ticket.ID),
		zap.Uint("queueId", ticket.QueueID),
	)
	return ticket, nil
}

// Complete finishes a SERVING ticket and frees its counter, as one
// transaction. Addressing is by ticket id, or by queue id, which
// resolves the queue's SERVING ticket; with both set the ticket id
// wins. By-queue addressing relies on counter scarcity keeping at most
// one ticket SERVING per counter, not on an explicit constraint.
func (s *Service) Complete(ctx context.Context, ticketID, queueID uint) (*common.Ticket, error) {
	var ticket *common.Ticket
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if ticketID != 0 {
			ticket, err = s.repo.GetForUpdate(tx, ticketID)
		} else {
			if _, err = s.repo.LockQueue(tx, queueID); err != nil {
				return err
			}
			ticket, err = s.repo.FirstServing(tx, queueID)
		}
		if err != nil {
			return err
		}

		counterID := ticket.CounterID
		if err := s.repo.Transition(tx, ticket, common.StatusCompleted, nil, nil); err != nil {
			return err
		}
		if counterID.Valid {
			return s.counters.Release(tx, uint(counterID.Int64))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket completed",
		zap.Uint("ticketId", ticket.ID),
		zap.Uint("queueId", ticket.QueueID),
	)
	return ticket, nil
}

// Status returns a ticket with its live estimate while WAITING. For
// non-WAITING tickets the estimate is omitted; callers read the call
// timestamp off the ticket instead.
func (s *Service) Status(ctx context.Context, ticketID uint) (*StatusResult, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{Ticket: ticket}
	if ticket.Status == common.StatusWaiting {
		result.Estimate, err = s.estimator.Estimate(ctx, ticket)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CurrentServing lists the tickets being served in a queue.
func (s *Service) CurrentServing(ctx context.Context, queueID uint) ([]common.Ticket, error) {
	if _, err := s.queues.GetByID(ctx, queueID); err != nil {
		return nil, err
	}
	return s.repo.ListServing(ctx, queueID)
}

// List returns tickets matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]common.Ticket, error) {
	return s.repo.List(ctx, filter)
}
