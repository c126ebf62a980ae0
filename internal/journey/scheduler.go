package journey

import (
	"sort"
	"time"

	"leadflow_backend/internal/journey/domain"
)

// DueStep pairs a nurturing lead with its single next due cadence step.
type DueStep struct {
	Lead domain.Lead
	Step int
}

// DueActions computes which leads have a cadence step due at the given
// instant. Pure and re-run-safe: running it twice for the same now with no
// state change yields nothing the second time, because cadenceStep already
// reflects the prior send. Results are ordered by ascending lead id for
// deterministic processing.
func DueActions(now time.Time, leads []domain.Lead) []DueStep {
	due := make([]DueStep, 0)
	for _, lead := range leads {
		if step := domain.NextDueStep(now, lead); step > 0 {
			due = append(due, DueStep{Lead: lead, Step: step})
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].Lead.ID.String() < due[j].Lead.ID.String()
	})
	return due
}
