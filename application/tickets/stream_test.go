package tickets

import (
	"context"
	"testing"

	json "github.com/json-iterator/go"

	"qdispatch/common"
	"qdispatch/middleware"
)

func collectStream(t *testing.T, response middleware.StreamResponse) []common.Ticket {
	t.Helper()

	if response.Error != nil {
		t.Fatalf("StreamList() failed: %v", response.Error)
	}

	var body []byte
	for chunk := range response.ChunkChan {
		if chunk.Error != nil {
			t.Fatalf("stream chunk error: %v", chunk.Error)
		}
		body = append(body, *chunk.JSONBuf...)
	}

	var tickets []common.Ticket
	if err := json.Unmarshal(body, &tickets); err != nil {
		t.Fatalf("stream produced invalid JSON %q: %v", body, err)
	}
	return tickets
}

func TestStreamListYieldsAllTickets(t *testing.T) {
	db, svc := newTestService(t)
	queue := seedQueue(t, db, 5)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		join(t, svc, queue.ID, common.PriorityNormal)
	}

	response := svc.StreamList(ctx, ListFilter{QueueID: queue.ID})
	if response.TotalCount != n {
		t.Errorf("TotalCount = %d, want %d", response.TotalCount, n)
	}

	tickets := collectStream(t, response)
	if len(tickets) != n {
		t.Fatalf("streamed %d tickets, want %d", len(tickets), n)
	}
	for i, ticket := range tickets {
		if ticket.TicketNumber != i+1 {
			t.Errorf("tickets[%d].TicketNumber = %d, want %d", i, ticket.TicketNumber, i+1)
		}
	}
}

func TestStreamListEmpty(t *testing.T) {
	db, svc := newTestService(t)
	queue := seedQueue(t, db, 5)

	response := svc.StreamList(context.Background(), ListFilter{QueueID: queue.ID})
	tickets := collectStream(t, response)
	if len(tickets) != 0 {
		t.Errorf("streamed %d tickets from an empty queue", len(tickets))
	}
}

func TestStreamListHonorsStatusFilter(t *testing.T) {
	db, svc := newTestService(t)
	queue := seedQueue(t, db, 5)
	seedCounters(t, db, queue.ID, 1)
	ctx := context.Background()

	join(t, svc, queue.ID, common.PriorityNormal)
	join(t, svc, queue.ID, common.PriorityNormal)
	if result, err := svc.CallNext(ctx, queue.ID); err != nil || result.Outcome != OutcomeCalled {
		t.Fatalf("CallNext() = (%v, %v), want a dispatch", result, err)
	}

	tickets := collectStream(t, svc.StreamList(ctx, ListFilter{
		QueueID: queue.ID,
		Status:  common.StatusServing,
	}))
	if len(tickets) != 1 {
		t.Fatalf("streamed %d serving tickets, want 1", len(tickets))
	}
	if tickets[0].Status != common.StatusServing {
		t.Errorf("ticket status = %s, want %s", tickets[0].Status, common.StatusServing)
	}
}
