package domain

import "time"

// The nurture cadence is declared data, not control flow. Step 0 is the
// day-0 welcome sent on classification; steps 1-8 are the timed sequence.
const (
	// MaxCadenceStep is the last step of the nurture sequence.
	MaxCadenceStep = 8
)

// cadenceOffsets maps step index to day offset from journeyStartedAt.
var cadenceOffsets = [MaxCadenceStep + 1]int{0, 0, 3, 7, 10, 14, 17, 21, 28}

// CadenceOffsetDays returns the day offset for a step, or -1 for an
// out-of-range step.
func CadenceOffsetDays(step int) int {
	if step < 0 || step > MaxCadenceStep {
		return -1
	}
	return cadenceOffsets[step]
}

// NextDueStep returns the single next cadence step due for a lead at the
// given instant, or 0 if nothing is due. After a missed run only the highest
// overdue step is returned, never the whole backlog: catch-up must not burst.
func NextDueStep(now time.Time, lead Lead) int {
	if lead.State != StateNurturing {
		return 0
	}
	if lead.CadenceStep >= MaxCadenceStep {
		return 0
	}

	daysElapsed := int(now.Sub(lead.JourneyStartedAt).Hours() / 24)
	if daysElapsed < 0 {
		return 0
	}

	due := 0
	for step := lead.CadenceStep + 1; step <= MaxCadenceStep; step++ {
		if cadenceOffsets[step] <= daysElapsed {
			due = step
		}
	}
	return due
}

// reportSteps are the cadence positions that carry a personalized
// category report instead of plain nurture copy.
var reportSteps = map[int]bool{3: true, 5: true, 7: true}

// IsReportStep reports whether the step sends a report email.
func IsReportStep(step int) bool {
	return reportSteps[step]
}

// CadenceExhausted reports whether every step has been sent, meaning the
// next tick with no booking and no qualifying reply escalates the lead.
func CadenceExhausted(lead Lead) bool {
	return lead.State == StateNurturing && lead.CadenceStep >= MaxCadenceStep
}
