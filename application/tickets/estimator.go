package tickets

import (
	"context"

	"qdispatch/application/queues"
	"qdispatch/common"
)

// Estimate is the live position report for a WAITING ticket. Positions
// count only WAITING tickets by arrival order; priority is deliberately
// ignored here even though dispatch is priority-aware.
type Estimate struct {
	PeopleAhead          int `json:"people_ahead"`
	PeopleBehind         int `json:"people_behind"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// Estimator computes queue positions and wait times from current store
// state. Reads are plain snapshot reads; they may run concurrently with
// dispatch.
type Estimator struct {
	repo   *Repository
	queues *queues.Repository
}

// NewEstimator creates a new Estimator.
func NewEstimator(repo *Repository, queueRepo *queues.Repository) *Estimator {
	return &Estimator{repo: repo, queues: queueRepo}
}

// Estimate reports how many WAITING tickets precede and follow the
// given ticket, and the wait implied by the queue's average handling
// time. Meaningful only while the ticket is WAITING.
func (e *Estimator) Estimate(ctx context.Context, ticket *common.Ticket) (*Estimate, error) {
	queue, err := e.queues.GetByID(ctx, ticket.QueueID)
	if err != nil {
		return nil, err
	}

	ahead, err := e.repo.CountWaitingBefore(ctx, ticket.QueueID, ticket.TicketNumber)
	if err != nil {
		return nil, err
	}
	behind, err := e.repo.CountWaitingAfter(ctx, ticket.QueueID, ticket.TicketNumber)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		PeopleAhead:          int(ahead),
		PeopleBehind:         int(behind),
		EstimatedWaitMinutes: int(ahead) * queue.AvgHandleTime,
	}, nil
}
