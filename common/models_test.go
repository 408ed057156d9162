package common

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{"waiting to serving", StatusWaiting, StatusServing, true},
		{"waiting to skipped", StatusWaiting, StatusSkipped, true},
		{"serving to completed", StatusServing, StatusCompleted, true},
		{"waiting to completed", StatusWaiting, StatusCompleted, false},
		{"serving to serving", StatusServing, StatusServing, false},
		{"serving to skipped", StatusServing, StatusSkipped, false},
		{"serving to waiting", StatusServing, StatusWaiting, false},
		{"skipped is terminal", StatusSkipped, StatusServing, false},
		{"completed is terminal", StatusCompleted, StatusWaiting, false},
		{"completed to completed", StatusCompleted, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestDispatchTiersOrder(t *testing.T) {
	want := []int{PriorityEmergency, PrioritySenior, PriorityNormal}
	if len(DispatchTiers) != len(want) {
		t.Fatalf("DispatchTiers has %d tiers, want %d", len(DispatchTiers), len(want))
	}
	for i, tier := range want {
		if DispatchTiers[i] != tier {
			t.Errorf("DispatchTiers[%d] = %d, want %d", i, DispatchTiers[i], tier)
		}
	}
}
