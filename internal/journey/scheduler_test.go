package journey

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/journey/domain"
)

func TestDueActionsOrderingAndFiltering(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	mk := func(state domain.JourneyState, daysAgo, step int) domain.Lead {
		return domain.Lead{
			ID:               uuid.New(),
			State:            state,
			CadenceStep:      step,
			JourneyStartedAt: now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		}
	}

	leads := []domain.Lead{
		mk(domain.StateNurturing, 3, 1),  // step 2 due
		mk(domain.StateNurturing, 1, 1),  // nothing due
		mk(domain.StateBooked, 10, 2),    // booked, ignored
		mk(domain.StateNurturing, 7, 2),  // step 3 due
		mk(domain.StateEscalated, 20, 4), // escalated, ignored
	}

	due := DueActions(now, leads)
	if len(due) != 2 {
		t.Fatalf("len(due) = %d, want 2", len(due))
	}
	for i := 1; i < len(due); i++ {
		if due[i-1].Lead.ID.String() > due[i].Lead.ID.String() {
			t.Error("due leads not in ascending id order")
		}
	}
	for _, d := range due {
		if d.Step != d.Lead.CadenceStep+1 {
			t.Errorf("lead at step %d got due step %d", d.Lead.CadenceStep, d.Step)
		}
	}
}

func TestDueActionsRerunSafe(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	lead := domain.Lead{
		ID:               uuid.New(),
		State:            domain.StateNurturing,
		CadenceStep:      1,
		JourneyStartedAt: now.Add(-3 * 24 * time.Hour),
	}

	first := DueActions(now, []domain.Lead{lead})
	if len(first) != 1 {
		t.Fatalf("len(first) = %d, want 1", len(first))
	}

	// After the send, cadenceStep reflects it; the same now yields nothing.
	lead.CadenceStep = first[0].Step
	if again := DueActions(now, []domain.Lead{lead}); len(again) != 0 {
		t.Errorf("rerun produced %d due steps, want 0", len(again))
	}
}
