package domain

import (
	"testing"
	"time"
)

func nurturingLead(startedDaysAgo int, step int) Lead {
	start := time.Now().Add(-time.Duration(startedDaysAgo) * 24 * time.Hour)
	return Lead{
		State:            StateNurturing,
		CadenceStep:      step,
		JourneyStartedAt: start,
	}
}

func TestNextDueStep(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want int
	}{
		{"day zero step 1 due after welcome", nurturingLead(0, 0), 1},
		{"day zero nothing after step 1", nurturingLead(0, 1), 0},
		{"day 3 step 2 due", nurturingLead(3, 1), 2},
		{"day 7 step 3 due", nurturingLead(7, 2), 3},
		{"day 9 nothing new due", nurturingLead(9, 3), 0},
		{"day 28 final step due", nurturingLead(28, 7), 8},
		{"downtime backlog collapses to highest step", nurturingLead(15, 1), 5},
		{"already at max", nurturingLead(40, 8), 0},
		{"booked lead gets nothing", Lead{State: StateBooked, JourneyStartedAt: time.Now().Add(-10 * 24 * time.Hour)}, 0},
		{"escalated lead gets nothing", Lead{State: StateEscalated, JourneyStartedAt: time.Now().Add(-10 * 24 * time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueStep(time.Now(), tt.lead)
			if got != tt.want {
				t.Errorf("NextDueStep() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextDueStepSingleStepPerTick(t *testing.T) {
	// Far past every offset: the first tick jumps to the highest overdue
	// step, after which nothing further is ever due. One send, not eight.
	lead := nurturingLead(100, 0)

	first := NextDueStep(time.Now(), lead)
	if first != MaxCadenceStep {
		t.Fatalf("first tick = %d, want %d", first, MaxCadenceStep)
	}
	lead.CadenceStep = first

	if again := NextDueStep(time.Now(), lead); again != 0 {
		t.Fatalf("second tick = %d, want 0", again)
	}
}

func TestCadenceOffsetDays(t *testing.T) {
	if got := CadenceOffsetDays(2); got != 3 {
		t.Errorf("step 2 offset = %d, want 3", got)
	}
	if got := CadenceOffsetDays(8); got != 28 {
		t.Errorf("step 8 offset = %d, want 28", got)
	}
	if got := CadenceOffsetDays(9); got != -1 {
		t.Errorf("out-of-range offset = %d, want -1", got)
	}
}

func TestCadenceExhausted(t *testing.T) {
	if CadenceExhausted(nurturingLead(30, 7)) {
		t.Error("step 7 should not be exhausted")
	}
	if !CadenceExhausted(nurturingLead(30, 8)) {
		t.Error("step 8 nurturing lead should be exhausted")
	}
	booked := nurturingLead(30, 8)
	booked.State = StateBooked
	if CadenceExhausted(booked) {
		t.Error("non-nurturing lead is never exhausted")
	}
}
