package common

import (
	"time"

	"github.com/guregu/null/v5"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusWaiting   TicketStatus = "WAITING"
	StatusServing   TicketStatus = "SERVING"
	StatusSkipped   TicketStatus = "SKIPPED"
	StatusCompleted TicketStatus = "COMPLETED"
)

// Priority tiers. Dispatch scans tiers in descending order; values
// outside this set are accepted but never dispatched ahead of the
// defined tiers.
const (
	PriorityNormal    = 1
	PrioritySenior    = 2
	PriorityEmergency = 3
)

// DispatchTiers is the scan order for callNext: emergency first.
var DispatchTiers = []int{PriorityEmergency, PrioritySenior, PriorityNormal}

// allowedTransitions guards the ticket state machine. Transitions are
// monotonic: WAITING -> {SERVING, SKIPPED}, SERVING -> COMPLETED.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	StatusWaiting: {StatusServing, StatusSkipped},
	StatusServing: {StatusCompleted},
}

// CanTransition reports whether a ticket may move from one status to
// another. Terminal statuses (SKIPPED, COMPLETED) allow nothing.
func CanTransition(from, to TicketStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Queue is a named service line with an average per-ticket handling
// duration in minutes.
type Queue struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `json:"name"`
	AvgHandleTime int       `json:"avg_handle_time"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Queue) TableName() string {
	return "queues"
}

// Counter is a service point holding at most one active ticket.
type Counter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QueueID   uint      `gorm:"index" json:"queue_id"`
	Name      string    `json:"name"`
	IsBusy    bool      `json:"is_busy"`
	CreatedAt time.Time `json:"created_at"`
}

func (Counter) TableName() string {
	return "counters"
}

// Ticket is a customer's place in a queue. TicketNumber is strictly
// increasing per queue; CounterID is set only while SERVING.
type Ticket struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	QueueID      uint         `gorm:"index" json:"queue_id"`
	TicketNumber int          `gorm:"index" json:"ticket_number"`
	Priority     int          `json:"priority"`
	Status       TicketStatus `gorm:"index" json:"status"`
	CounterID    null.Int     `json:"counter_id"`
	UserName     string       `json:"user_name"`
	PhoneNumber  string       `json:"phone_number"`
	CreatedAt    time.Time    `json:"created_at"`
	CalledAt     null.Time    `json:"called_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}
