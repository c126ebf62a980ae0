package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType names a side effect the engine has decided to take.
type ActionType string

const (
	ActionCadenceStep     ActionType = "cadence_step"
	ActionAutoReply       ActionType = "auto_reply"
	ActionBookingLink     ActionType = "booking_link"
	ActionPlaceCall       ActionType = "place_call"
	ActionCRMNote         ActionType = "crm_note"
	ActionNotifyHuman     ActionType = "notify_human"
	ActionBookedAssetPack ActionType = "booked_asset_pack"
	ActionCreateTask      ActionType = "create_task"
)

// ActionStatus tracks the lifecycle of a dispatched action.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionSent    ActionStatus = "sent"
	ActionFailed  ActionStatus = "failed"
	ActionSkipped ActionStatus = "skipped"
)

// Action is a durable record of one decided side effect. The dedup key is
// unique per lead so the same decision recomputed under retry collapses to
// a single row.
type Action struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	Type         ActionType
	Channel      Channel
	Status       ActionStatus
	DedupKey     string
	Payload      string
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DispatchedAt *time.Time
}

// CadenceDedupKey is stable per (lead, step): a cadence step is sent at
// most once no matter how many ticks observe it due.
func CadenceDedupKey(step int) string {
	return fmt.Sprintf("cadence_step:%d", step)
}

// ReplyDedupKey binds an auto-reply to the inbound message that caused it.
func ReplyDedupKey(messageDedupKey string) string {
	return "auto_reply:" + messageDedupKey
}

// BookingLinkDedupKey binds a booking-link send to its triggering message.
func BookingLinkDedupKey(messageDedupKey string) string {
	return "booking_link:" + messageDedupKey
}

// CallDedupKey is stable per (lead, step) so re-ticks do not redial.
func CallDedupKey(step int) string {
	return fmt.Sprintf("place_call:%d", step)
}

// EscalationDedupKey collapses repeated escalation notifications for the
// same reason.
func EscalationDedupKey(reason string) string {
	return "notify_human:" + reason
}

// MilestoneDedupKey marks the one-time mid-sequence progress notification.
func MilestoneDedupKey(step int) string {
	return fmt.Sprintf("notify_human:milestone:%d", step)
}

// AssetPackDedupKey marks the one-time post-booking asset delivery.
func AssetPackDedupKey() string {
	return "booked_asset_pack"
}

// CRMNoteDedupKey namespaces CRM notes by their cause.
func CRMNoteDedupKey(cause string) string {
	return "crm_note:" + cause
}

// TaskDedupKey collapses repeated task creation for the same cause.
func TaskDedupKey(cause string) string {
	return "create_task:" + cause
}
