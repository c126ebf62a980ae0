package domain

import (
	"testing"
	"time"
)

func mustTimeParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestIsTerminal(t *testing.T) {
	terminal := []JourneyState{StateBooked, StateEscalated, StateClosed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []JourneyState{StateNew, StateClassified, StateNurturing}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	at := mustTimeParse(t, "2026-07-01T00:00:00Z")
	orig := Lead{
		State:             StateNurturing,
		PendingActionKeys: map[string]struct{}{CadenceDedupKey(2): {}},
		EscalatedAt:       &at,
	}

	cp := orig.Clone()
	cp.PendingActionKeys["extra"] = struct{}{}
	*cp.EscalatedAt = at.Add(time.Hour)

	if _, leaked := orig.PendingActionKeys["extra"]; leaked {
		t.Error("pending keys shared between clone and original")
	}
	if !orig.EscalatedAt.Equal(at) {
		t.Error("timestamp pointer shared between clone and original")
	}
}

func TestEscalateAndClear(t *testing.T) {
	l := &Lead{State: StateNurturing}
	at := mustTimeParse(t, "2026-07-02T12:00:00Z")
	l.Escalate(ReasonHumanRequest, at)

	if l.State != StateEscalated || l.EscalationReason != ReasonHumanRequest || l.EscalatedAt == nil {
		t.Fatalf("escalate did not record state: %+v", l)
	}

	l.ClearEscalation()
	if l.EscalationReason != "" || l.EscalatedAt != nil {
		t.Error("clear escalation left residue")
	}
}
