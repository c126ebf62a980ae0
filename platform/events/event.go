// Package events carries the in-process event bus the journey modules
// publish on. Platform layer: no lead or journey knowledge lives here.
package events

import (
	"context"
	"time"
)

// Event is anything the bus can carry. EventName keys the subscriber
// lookup, so it must be stable across processes.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp; concrete events embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one registered name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans events out to subscribers.
type Bus interface {
	// Publish delivers asynchronously; handler failures are logged, not
	// returned. Fire-and-forget side traffic.
	Publish(ctx context.Context, event Event)

	// PublishSync waits for every handler and joins their errors. Used
	// where the publisher must not outrun its subscribers.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name the event reports
	// from EventName.
	Subscribe(eventName string, handler Handler)
}
