package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	domainevents "leadflow_backend/internal/events"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordingSink) Notify(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, text)
	return nil
}

func (s *recordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func newRelayBus(t *testing.T) (*recordingSink, events.Bus) {
	t.Helper()
	log := logger.New("development")
	sink := &recordingSink{}
	bus := events.NewInMemoryBus(log)
	NewEventRelay(sink, log).Register(bus)
	return sink, bus
}

func TestRelayPostsNewLeadHeadsUp(t *testing.T) {
	sink, bus := newRelayBus(t)

	err := bus.PublishSync(context.Background(), domainevents.LeadClassified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		Name:      "Dana Reed",
		Email:     "dana@example.com",
		Category:  "WholesaleType",
		Priority:  "medium",
	})
	if err != nil {
		t.Fatal(err)
	}

	msgs := sink.Messages()
	if len(msgs) != 1 {
		t.Fatalf("%d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "Dana Reed") || !strings.Contains(msgs[0], "WholesaleType") {
		t.Errorf("message = %q", msgs[0])
	}
}

func TestRelayPostsRunSummary(t *testing.T) {
	sink, bus := newRelayBus(t)

	err := bus.PublishSync(context.Background(), domainevents.ScheduledRunDone{
		BaseEvent: events.NewBaseEvent(),
		Processed: 4,
		Stepped:   2,
		Booked:    1,
		Escalated: 1,
		Sent:      5,
		Claimed:   5,
	})
	if err != nil {
		t.Fatal(err)
	}

	msgs := sink.Messages()
	if len(msgs) != 1 {
		t.Fatalf("%d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "4 leads") || !strings.Contains(msgs[0], "5/5 actions sent") {
		t.Errorf("message = %q", msgs[0])
	}
}

func TestRelayStaysQuietOnEmptyRun(t *testing.T) {
	sink, bus := newRelayBus(t)

	err := bus.PublishSync(context.Background(), domainevents.ScheduledRunDone{
		BaseEvent: events.NewBaseEvent(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if msgs := sink.Messages(); len(msgs) != 0 {
		t.Errorf("empty run posted %v", msgs)
	}
}
