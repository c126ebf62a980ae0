package classifier

import (
	"strings"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/phone"
)

// fieldKeywords maps submission field titles to lead attributes. Intake
// forms vary their wording; matching is on lowercase substrings.
var fieldKeywords = []struct {
	attr  string
	words []string
}{
	{"email", []string{"email", "e-mail"}},
	{"phone", []string{"phone", "mobile"}},
	{"company", []string{"company", "business", "organization"}},
	{"industry", []string{"industry", "sector"}},
	{"goals", []string{"goal", "looking for", "tell us", "objective"}},
	// "name" matches last so "company name" resolves to company.
	{"name", []string{"name"}},
}

// ExtractSubmission builds a RawSubmission from a form's title/answer
// pairs. Phone numbers are normalized to E.164; unmatched answers are
// kept for keyword classification.
func ExtractSubmission(formID, responseID string, fields map[string]string) domain.RawSubmission {
	sub := domain.RawSubmission{
		FormID:     formID,
		ResponseID: responseID,
		Answers:    map[string]string{},
	}

	for title, value := range fields {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch matchField(title) {
		case "email":
			if sub.Email == "" {
				sub.Email = strings.ToLower(value)
			}
		case "phone":
			if sub.Phone == "" {
				sub.Phone = phone.NormalizeE164(value)
			}
		case "name":
			if sub.Name == "" {
				sub.Name = value
			}
		case "company":
			if sub.Company == "" {
				sub.Company = value
			}
		case "industry":
			if sub.Industry == "" {
				sub.Industry = value
			}
		case "goals":
			if sub.Goals == "" {
				sub.Goals = value
			}
		default:
			sub.Answers[title] = value
		}
	}
	return sub
}

func matchField(title string) string {
	lower := strings.ToLower(title)
	for _, fk := range fieldKeywords {
		for _, w := range fk.words {
			if strings.Contains(lower, w) {
				return fk.attr
			}
		}
	}
	return ""
}
