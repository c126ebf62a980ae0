// Package journey implements the lead journey orchestrator: the state
// machine, scheduler and dispatcher that decide what happens next for
// every lead, driven by ticks and inbound webhooks.
package journey

import (
	"context"
	"time"

	"leadflow_backend/internal/journey/domain"
)

// SubmissionSource pulls intake submissions that arrived out of band,
// used by the periodic run to catch up on missed webhooks.
type SubmissionSource interface {
	Fetch(ctx context.Context) ([]domain.RawSubmission, error)
}

// CRMSync mirrors leads and notes into the CRM of record.
type CRMSync interface {
	UpsertLead(ctx context.Context, lead domain.Lead) (externalID string, err error)
	AppendNote(ctx context.Context, externalID string, text string) error
}

// BookingOracle answers whether a lead has a confirmed meeting.
type BookingOracle interface {
	HasBooking(ctx context.Context, email string) (bool, time.Time, error)
}

// MessageSender delivers one outbound message on a channel. Implementations
// resolve the template key to rendered content.
type MessageSender interface {
	Send(ctx context.Context, channel domain.Channel, to string, templateKey string, vars map[string]string) error
}

// VoiceDialer places an outbound call and returns the provider call id.
type VoiceDialer interface {
	PlaceCall(ctx context.Context, lead domain.Lead, scriptKey string) (string, error)
}

// AIIntentService turns free-form inbound text into a raw intent label.
// The engine never trusts the output directly; it is coerced through
// domain.CoerceIntent before any branching.
type AIIntentService interface {
	ClassifyIntent(ctx context.Context, text string, lead domain.Lead) (string, error)
}

// NotificationSink delivers human-facing alerts.
type NotificationSink interface {
	Notify(ctx context.Context, text string) error
}

// TaskBoard creates follow-up work items on the team's task board.
type TaskBoard interface {
	CreateTask(ctx context.Context, spec domain.TaskSpec) (string, error)
}

// Classifier maps a raw submission to a category. The ambiguous flag marks
// low-confidence results for human review; the lead still proceeds.
type Classifier interface {
	Classify(ctx context.Context, sub domain.RawSubmission) (category domain.Category, ambiguous bool, err error)
}
