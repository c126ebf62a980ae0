// Package events defines the domain events published by the journey
// engine. Subscribers (notifications, audit) attach through the platform
// bus without coupling to the engine itself.
package events

import (
	"github.com/google/uuid"

	"leadflow_backend/platform/events"
)

const (
	LeadClassifiedEvent   = "lead.classified"
	CadenceStepSentEvent  = "lead.cadence_step_sent"
	BookingDetectedEvent  = "lead.booking_detected"
	LeadEscalatedEvent    = "lead.escalated"
	InboundReplyEvent     = "lead.inbound_reply"
	ScheduledRunDoneEvent = "journey.scheduled_run_done"
)

type LeadClassified struct {
	events.BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Category string    `json:"category"`
	Priority string    `json:"priority"`
}

func (e LeadClassified) EventName() string { return LeadClassifiedEvent }

type CadenceStepSent struct {
	events.BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Step   int       `json:"step"`
}

func (e CadenceStepSent) EventName() string { return CadenceStepSentEvent }

type BookingDetected struct {
	events.BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e BookingDetected) EventName() string { return BookingDetectedEvent }

type LeadEscalated struct {
	events.BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e LeadEscalated) EventName() string { return LeadEscalatedEvent }

type InboundReply struct {
	events.BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Channel string    `json:"channel"`
	Intent  string    `json:"intent"`
}

func (e InboundReply) EventName() string { return InboundReplyEvent }

type ScheduledRunDone struct {
	events.BaseEvent
	Processed int `json:"processed"`
	Stepped   int `json:"stepped"`
	Booked    int `json:"booked"`
	Escalated int `json:"escalated"`
	Errored   int `json:"errored"`
	Sent      int `json:"sent"`
	Claimed   int `json:"claimed"`
}

func (e ScheduledRunDone) EventName() string { return ScheduledRunDoneEvent }
