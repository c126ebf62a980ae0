package domain

import "testing"

func TestEscalationReasonFor(t *testing.T) {
	tests := []struct {
		name   string
		lead   *Lead
		intent Intent
		want   string
	}{
		{"angry always escalates", &Lead{}, IntentAngry, ReasonAngry},
		{"human request always escalates", &Lead{}, IntentHumanRequest, ReasonHumanRequest},
		{"first unclear continues", &Lead{UnclearReplies: 0}, IntentUnclear, ""},
		{"second unclear escalates", &Lead{UnclearReplies: 1}, IntentUnclear, ReasonRepeatedUnclear},
		{
			"pricing from high-priority wholesale escalates",
			&Lead{Category: CategoryWholesale, Priority: PriorityHigh},
			IntentPricingQuestion,
			ReasonEnterpriseDeal,
		},
		{
			"pricing from medium wholesale continues",
			&Lead{Category: CategoryWholesale, Priority: PriorityMedium},
			IntentPricingQuestion,
			"",
		},
		{
			"pricing from high-priority hume connect continues",
			&Lead{Category: CategoryHumeConnect, Priority: PriorityHigh},
			IntentPricingQuestion,
			"",
		},
		{"objection continues", &Lead{}, IntentObjection, ""},
		{"booking intent continues", &Lead{}, IntentBookingIntent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscalationReasonFor(tt.lead, tt.intent); got != tt.want {
				t.Errorf("EscalationReasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScorePriority(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		phone    string
		company  string
		goals    string
		want     Priority
	}{
		{"bare hume connect lead", CategoryHumeConnect, "", "", "", PriorityLow},
		{"hume connect with phone and company", CategoryHumeConnect, "+15551234567", "Acme", "", PriorityMedium},
		{"wholesale alone is medium", CategoryWholesale, "", "", "", PriorityMedium},
		{"wholesale with phone and company is high", CategoryWholesale, "+15551234567", "Acme", "", PriorityHigh},
		{"wholesale with detailed goals and company is high", CategoryWholesale, "", "Acme", "scale our retail channel into three new regions", PriorityHigh},
		{"short goals do not count", CategoryHumeConnect, "", "", "grow", PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScorePriority(tt.category, tt.phone, tt.company, tt.goals)
			if got != tt.want {
				t.Errorf("ScorePriority() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkBookedSticky(t *testing.T) {
	l := &Lead{}
	first := mustTimeParse(t, "2026-08-01T10:00:00Z")
	l.MarkBooked(first)
	l.MarkBooked(mustTimeParse(t, "2026-08-09T10:00:00Z"))

	if !l.BookingConfirmed {
		t.Fatal("booking flag not set")
	}
	if l.BookingConfirmedAt == nil || !l.BookingConfirmedAt.Equal(first) {
		t.Error("booking timestamp must not be re-stamped")
	}
}
