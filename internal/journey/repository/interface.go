// Package repository persists leads, messages, actions and journey
// transitions. All journey mutations go through ApplyTransition, which
// holds the optimistic-concurrency and dedup guarantees.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/journey/domain"
)

var (
	ErrNotFound         = errors.New("lead not found")
	ErrVersionConflict  = errors.New("lead version conflict")
	ErrDuplicateMessage = errors.New("inbound message already processed")
)

// Transition is one atomic journey mutation: the new lead snapshot plus
// everything the engine decided alongside it. Lead.Version carries the
// version the engine read; the store applies the update only if the row
// still has that version.
type Transition struct {
	Lead      domain.Lead
	Event     string
	FromState domain.JourneyState
	Messages  []domain.Message
	Actions   []domain.Action

	// SkipPending marks still-pending cadence and call actions as skipped.
	// Set when the transition lands on BOOKED: a booked lead gets no more
	// automated outreach.
	SkipPending bool
}

// Store is the persistence surface the journey engine and dispatcher run on.
type Store interface {
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	FindLeadByEmail(ctx context.Context, email string) (domain.Lead, error)
	FindLeadByPhone(ctx context.Context, phone string) (domain.Lead, error)
	ListNurturing(ctx context.Context) ([]domain.Lead, error)

	ApplyTransition(ctx context.Context, t Transition) error

	ClaimPendingActions(ctx context.Context, limit int) ([]domain.Action, error)
	MarkActionSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkActionFailed(ctx context.Context, id uuid.UUID, lastError string) error

	ListMessages(ctx context.Context, leadID uuid.UUID) ([]domain.Message, error)
}
