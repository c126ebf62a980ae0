package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Channel identifies a communication channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
	ChannelChat  Channel = "chat"
)

// Direction of a message relative to the system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Intent is the fixed taxonomy of inbound message purposes. The Journey
// Engine branches only on these values, never on raw text.
type Intent string

const (
	IntentPricingQuestion Intent = "pricing_question"
	IntentObjection       Intent = "objection"
	IntentBookingIntent   Intent = "booking_intent"
	IntentUnclear         Intent = "unclear"
	IntentAngry           Intent = "angry"
	IntentHumanRequest    Intent = "human_request"
)

var validIntents = map[Intent]struct{}{
	IntentPricingQuestion: {},
	IntentObjection:       {},
	IntentBookingIntent:   {},
	IntentUnclear:         {},
	IntentAngry:           {},
	IntentHumanRequest:    {},
}

// CoerceIntent validates a raw collaborator output against the taxonomy.
// Anything outside the enum becomes human_request: the system fails safe
// toward escalation, never toward a silent auto-reply.
func CoerceIntent(raw string) Intent {
	intent := Intent(raw)
	if _, ok := validIntents[intent]; ok {
		return intent
	}
	return IntentHumanRequest
}

// Message is one inbound or outbound interaction on a lead. Append-only.
type Message struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Channel   Channel
	Direction Direction
	Body      string
	Intent    *Intent
	DedupKey  string
	CreatedAt time.Time
}

// MessageDedupKey derives the stable dedup key for an inbound delivery,
// used to reject re-delivered webhooks under at-least-once delivery.
func MessageDedupKey(channel Channel, externalID string) string {
	sum := sha256.Sum256([]byte(string(channel) + ":" + externalID))
	return hex.EncodeToString(sum[:])
}
