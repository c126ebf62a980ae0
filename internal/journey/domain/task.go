package domain

import "time"

// TaskSpec describes one follow-up work item for the team task board.
// The journey raises these at intake, booking and escalation so a human
// always has a scheduled next touch on the lead.
type TaskSpec struct {
	Title           string
	Body            string
	Priority        string
	DueIn           time.Duration
	DurationMinutes int
	Labels          []string
}
