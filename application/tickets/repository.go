package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qdispatch/common"
)

// ListFilter restricts ticket listings. Zero values mean "no filter".
type ListFilter struct {
	QueueID  uint
	Status   common.TicketStatus
	Priority int
}

// Repository handles data access for tickets. Mutating methods take a
// transaction handle so the dispatch and completion flows can apply
// their multi-entity updates as one unit of work.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a database transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// LockQueue fetches a queue row with an update lock. Every per-queue
// mutation (join, callNext, complete-by-queue) locks the queue row
// first, making it the serialization point for that queue.
func (r *Repository) LockQueue(tx *gorm.DB, queueID uint) (*common.Queue, error) {
	var queue common.Queue
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&queue, queueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("queue %d: %w", queueID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock queue %d: %w", queueID, err)
	}
	return &queue, nil
}

// NextTicketNumber computes the next sequence number for a queue:
// highest issued number + 1, starting at 1. Callers must hold the
// queue row lock.
func (r *Repository) NextTicketNumber(tx *gorm.DB, queueID uint) (int, error) {
	var last int
	err := tx.Model(&common.Ticket{}).
		Where("queue_id = ?", queueID).
		Select("COALESCE(MAX(ticket_number), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read last ticket number: %w", err)
	}
	return last + 1, nil
}

// Create inserts a ticket record.
func (r *Repository) Create(tx *gorm.DB, ticket *common.Ticket) error {
	if err := tx.Create(ticket).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID fetches a ticket by its id.
func (r *Repository) GetByID(ctx context.Context, id uint) (*common.Ticket, error) {
	return r.getByID(r.db.WithContext(ctx), id)
}

// GetForUpdate fetches a ticket by id with an update lock.
func (r *Repository) GetForUpdate(tx *gorm.DB, id uint) (*common.Ticket, error) {
	return r.getByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) getByID(q *gorm.DB, id uint) (*common.Ticket, error) {
	var ticket common.Ticket
	err := q.First(&ticket, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ticket %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", id, err)
	}
	return &ticket, nil
}

// NextEligible returns the ticket callNext should dispatch: tiers are
// scanned emergency -> senior -> normal, and within a tier the WAITING
// ticket with the smallest ticket_number wins. Returns nil with no
// error when nothing is waiting.
func (r *Repository) NextEligible(tx *gorm.DB, queueID uint) (*common.Ticket, error) {
	for _, tier := range common.DispatchTiers {
		var ticket common.Ticket
		err := tx.
			Where("queue_id = ? AND status = ? AND priority = ?", queueID, common.StatusWaiting, tier).
			Order("ticket_number asc").
			First(&ticket).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan priority tier %d: %w", tier, err)
		}
		return &ticket, nil
	}
	return nil, nil
}

// FirstServing returns the SERVING ticket in a queue, or ErrNotFound
// when none is being served.
func (r *Repository) FirstServing(tx *gorm.DB, queueID uint) (*common.Ticket, error) {
	var ticket common.Ticket
	err := tx.
		Where("queue_id = ? AND status = ?", queueID, common.StatusServing).
		Order("ticket_number asc").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no serving ticket in queue %d: %w", queueID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find serving ticket: %w", err)
	}
	return &ticket, nil
}

// Transition applies a status change to a ticket, guarding the state
// machine. Moving to SERVING stamps the counter and call time; moving
// to a terminal status clears the counter reference so it is set only
// while the ticket is being served.
func (r *Repository) Transition(tx *gorm.DB, ticket *common.Ticket, to common.TicketStatus, counterID *uint, calledAt *time.Time) error {
	if !common.CanTransition(ticket.Status, to) {
		return fmt.Errorf("ticket %d is %s, cannot move to %s: %w",
			ticket.ID, ticket.Status, to, common.ErrInvalidTransition)
	}

	updates := map[string]interface{}{"status": to}
	switch to {
	case common.StatusServing:
		if counterID != nil {
			updates["counter_id"] = *counterID
		}
		if calledAt != nil {
			updates["called_at"] = *calledAt
		}
	case common.StatusCompleted, common.StatusSkipped:
		updates["counter_id"] = nil
	}

	if err := tx.Model(&common.Ticket{}).Where("id = ?", ticket.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to transition ticket %d to %s: %w", ticket.ID, to, err)
	}

	ticket.Status = to
	switch to {
	case common.StatusServing:
		if counterID != nil {
			ticket.CounterID = null.IntFrom(int64(*counterID))
		}
		if calledAt != nil {
			ticket.CalledAt = null.TimeFrom(*calledAt)
		}
	case common.StatusCompleted, common.StatusSkipped:
		ticket.CounterID = null.Int{}
	}
	return nil
}

// CountWaitingBefore counts WAITING tickets in the queue with a smaller
// ticket number, regardless of priority.
func (r *Repository) CountWaitingBefore(ctx context.Context, queueID uint, ticketNumber int) (int64, error) {
	return r.countWaiting(ctx, queueID, "ticket_number < ?", ticketNumber)
}

// CountWaitingAfter counts WAITING tickets in the queue with a larger
// ticket number.
func (r *Repository) CountWaitingAfter(ctx context.Context, queueID uint, ticketNumber int) (int64, error) {
	return r.countWaiting(ctx, queueID, "ticket_number > ?", ticketNumber)
}

func (r *Repository) countWaiting(ctx context.Context, queueID uint, cond string, ticketNumber int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&common.Ticket{}).
		Where("queue_id = ? AND status = ?", queueID, common.StatusWaiting).
		Where(cond, ticketNumber).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting tickets: %w", err)
	}
	return count, nil
}

// ListServing returns the tickets currently being served in a queue.
func (r *Repository) ListServing(ctx context.Context, queueID uint) ([]common.Ticket, error) {
	var tickets []common.Ticket
	err := r.db.WithContext(ctx).
		Where("queue_id = ? AND status = ?", queueID, common.StatusServing).
		Order("ticket_number asc").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list serving tickets: %w", err)
	}
	return tickets, nil
}

// List returns tickets matching the filter, in creation order.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]common.Ticket, error) {
	var tickets []common.Ticket
	if err := r.filtered(r.db.WithContext(ctx), filter).Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// Count returns the number of tickets matching the filter.
func (r *Repository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var count int64
	if err := r.filtered(r.db.WithContext(ctx), filter).Model(&common.Ticket{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

// Rows opens a cursor over tickets matching the filter, for streaming
// large listings without loading them all into memory.
func (r *Repository) Rows(ctx context.Context, filter ListFilter) (*sql.Rows, error) {
	rows, err := r.filtered(r.db.WithContext(ctx), filter).Model(&common.Ticket{}).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket cursor: %w", err)
	}
	return rows, nil
}

// ScanRow scans one cursor row into a ticket.
func (r *Repository) ScanRow(rows *sql.Rows, ticket *common.Ticket) error {
	if err := r.db.ScanRows(rows, ticket); err != nil {
		return fmt.Errorf("failed to scan ticket row: %w", err)
	}
	return nil
}

func (r *Repository) filtered(q *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.QueueID != 0 {
		q = q.Where("queue_id = ?", filter.QueueID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != 0 {
		q = q.Where("priority = ?", filter.Priority)
	}
	return q.Order("id asc")
}
