package chat

import (
	"context"
	"fmt"

	domainevents "leadflow_backend/internal/events"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// Sink is the notification target the relay posts to.
type Sink interface {
	Notify(ctx context.Context, text string) error
}

// EventRelay subscribes to journey events and turns them into team
// channel messages: a heads-up for every new classified lead and a
// summary after each scheduled run. Durable alerts (escalations,
// bookings) stay on the action dispatcher; the relay only carries the
// best-effort ambient traffic.
type EventRelay struct {
	sink Sink
	log  *logger.Logger
}

func NewEventRelay(sink Sink, log *logger.Logger) *EventRelay {
	return &EventRelay{sink: sink, log: log}
}

// Register attaches the relay's handlers to the bus.
func (r *EventRelay) Register(bus events.Bus) {
	bus.Subscribe(domainevents.LeadClassifiedEvent, events.HandlerFunc(r.onLeadClassified))
	bus.Subscribe(domainevents.ScheduledRunDoneEvent, events.HandlerFunc(r.onRunDone))
}

func (r *EventRelay) onLeadClassified(ctx context.Context, event events.Event) error {
	e, ok := event.(domainevents.LeadClassified)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventName())
	}
	text := fmt.Sprintf("New %s lead: %s (%s), %s priority.", e.Category, e.Name, e.Email, e.Priority)
	return r.sink.Notify(ctx, text)
}

func (r *EventRelay) onRunDone(ctx context.Context, event events.Event) error {
	e, ok := event.(domainevents.ScheduledRunDone)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventName())
	}
	if e.Processed == 0 && e.Errored == 0 {
		// Quiet runs stay out of the channel.
		return nil
	}
	text := fmt.Sprintf("Journey run: %d leads, %d stepped, %d booked, %d escalated, %d errored, %d/%d actions sent.",
		e.Processed, e.Stepped, e.Booked, e.Escalated, e.Errored, e.Sent, e.Claimed)
	return r.sink.Notify(ctx, text)
}
