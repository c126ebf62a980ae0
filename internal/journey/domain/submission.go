package domain

// RawSubmission is an intake form submission before classification. The
// answer map is keyed by the form field reference.
type RawSubmission struct {
	FormID     string
	ResponseID string
	Name       string
	Company    string
	Industry   string
	Goals      string
	Email      string
	Phone      string
	Answers    map[string]string
}

// ScorePriority derives a coarse priority for routing and call decisions.
// Wholesale interest and richer profile data push the score up.
func ScorePriority(category Category, phone, company, goals string) Priority {
	score := 0
	if category == CategoryWholesale {
		score += 2
	}
	if phone != "" {
		score++
	}
	if company != "" {
		score++
	}
	if len(goals) > 20 {
		score++
	}
	switch {
	case score >= 4:
		return PriorityHigh
	case score >= 2:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
