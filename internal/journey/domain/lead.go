// Package domain provides core business rules for the lead journey bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the intake classification of a lead.
type Category string

const (
	CategoryHumeConnect Category = "HumeConnectType"
	CategoryWholesale   Category = "WholesaleType"
	CategoryAffiliate   Category = "AffiliateType"
	CategoryUnknown     Category = "Unknown"
)

var knownCategories = map[Category]struct{}{
	CategoryHumeConnect: {},
	CategoryWholesale:   {},
	CategoryAffiliate:   {},
	CategoryUnknown:     {},
}

// IsKnownCategory reports whether the value is part of the category enum.
func IsKnownCategory(c Category) bool {
	_, ok := knownCategories[c]
	return ok
}

// Priority reflects how aggressively a lead should be worked.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// JourneyState is the explicit journey position of a lead.
type JourneyState string

const (
	StateNew        JourneyState = "NEW"
	StateClassified JourneyState = "CLASSIFIED"
	StateNurturing  JourneyState = "NURTURING"
	StateBooked     JourneyState = "BOOKED"
	StateEscalated  JourneyState = "ESCALATED"
	StateClosed     JourneyState = "CLOSED"
)

var knownStates = map[JourneyState]struct{}{
	StateNew:        {},
	StateClassified: {},
	StateNurturing:  {},
	StateBooked:     {},
	StateEscalated:  {},
	StateClosed:     {},
}

// IsKnownState reports whether the value is part of the state enum.
func IsKnownState(s JourneyState) bool {
	_, ok := knownStates[s]
	return ok
}

// IsTerminal reports whether autonomous logic must leave the lead alone.
// BOOKED is sticky and only a human can close it; ESCALATED waits for a
// human override before any further cadence activity.
func (s JourneyState) IsTerminal() bool {
	return s == StateBooked || s == StateEscalated || s == StateClosed
}

// Lead is the versioned per-lead record owned by the Lead Record Store.
// It is mutated only through Journey Engine transitions.
type Lead struct {
	ID                 uuid.UUID
	Name               string
	Company            string
	Industry           string
	Goals              string
	Email              string
	Phone              string
	Category           Category
	Priority           Priority
	State              JourneyState
	CadenceStep        int
	JourneyStartedAt   time.Time
	LastTransitionAt   time.Time
	BookingConfirmed   bool
	BookingConfirmedAt *time.Time
	EscalationReason   string
	EscalatedAt        *time.Time
	CRMExternalID      string
	UnclearReplies     int
	FlaggedForReview   bool
	Version            int64
	PendingActionKeys  map[string]struct{}
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clone returns a deep copy, so a transition can be recomputed from scratch
// after an optimistic-concurrency conflict without partial application.
func (l Lead) Clone() Lead {
	out := l
	out.PendingActionKeys = make(map[string]struct{}, len(l.PendingActionKeys))
	for k := range l.PendingActionKeys {
		out.PendingActionKeys[k] = struct{}{}
	}
	if l.BookingConfirmedAt != nil {
		t := *l.BookingConfirmedAt
		out.BookingConfirmedAt = &t
	}
	if l.EscalatedAt != nil {
		t := *l.EscalatedAt
		out.EscalatedAt = &t
	}
	return out
}

// MarkBooked sets the sticky booking flag. It is a no-op if already set:
// bookingConfirmed is never reverted and never re-stamped.
func (l *Lead) MarkBooked(confirmedAt time.Time) {
	if l.BookingConfirmed {
		return
	}
	l.BookingConfirmed = true
	l.BookingConfirmedAt = &confirmedAt
}

// Escalate records the escalation reason and moves the lead to ESCALATED.
func (l *Lead) Escalate(reason string, at time.Time) {
	l.State = StateEscalated
	l.EscalationReason = reason
	l.EscalatedAt = &at
}

// ClearEscalation removes escalation state; only a human override does this.
func (l *Lead) ClearEscalation() {
	l.EscalationReason = ""
	l.EscalatedAt = nil
}
