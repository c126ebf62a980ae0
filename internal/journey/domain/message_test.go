package domain

import "testing"

func TestCoerceIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want Intent
	}{
		{"pricing_question", IntentPricingQuestion},
		{"objection", IntentObjection},
		{"booking_intent", IntentBookingIntent},
		{"unclear", IntentUnclear},
		{"angry", IntentAngry},
		{"human_request", IntentHumanRequest},
		{"", IntentHumanRequest},
		{"PRICING_QUESTION", IntentHumanRequest},
		{"something the model made up", IntentHumanRequest},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := CoerceIntent(tt.raw); got != tt.want {
				t.Errorf("CoerceIntent(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMessageDedupKey(t *testing.T) {
	a := MessageDedupKey(ChannelSMS, "SM123")
	b := MessageDedupKey(ChannelSMS, "SM123")
	if a != b {
		t.Fatal("same delivery must produce the same key")
	}
	if a == MessageDedupKey(ChannelEmail, "SM123") {
		t.Error("channel must be part of the key")
	}
	if a == MessageDedupKey(ChannelSMS, "SM124") {
		t.Error("external id must be part of the key")
	}
	if len(a) != 64 {
		t.Errorf("key should be hex sha256, got length %d", len(a))
	}
}
