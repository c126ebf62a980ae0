package domain

// Escalation reasons. Stored verbatim on the lead and used as the dedup
// namespace for the resulting human notification.
const (
	ReasonAngry             = "negative_sentiment"
	ReasonHumanRequest      = "human_request"
	ReasonEnterpriseDeal    = "enterprise_deal"
	ReasonRepeatedUnclear   = "repeated_unclear"
	ReasonSequenceExhausted = "sequence_exhausted"
)

// unclearEscalationThreshold is the number of consecutive unclear replies
// after which a human takes over instead of another clarification loop.
const unclearEscalationThreshold = 2

// EscalationReasonFor decides whether an inbound intent forces a handoff
// to a human, given the lead's current profile. Returns the reason, or ""
// when the journey continues automated.
func EscalationReasonFor(lead *Lead, intent Intent) string {
	switch intent {
	case IntentAngry:
		return ReasonAngry
	case IntentHumanRequest:
		return ReasonHumanRequest
	case IntentUnclear:
		if lead.UnclearReplies+1 >= unclearEscalationThreshold {
			return ReasonRepeatedUnclear
		}
	case IntentPricingQuestion:
		if lead.Category == CategoryWholesale && lead.Priority == PriorityHigh {
			return ReasonEnterpriseDeal
		}
	}
	return ""
}
