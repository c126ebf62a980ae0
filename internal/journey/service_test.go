package journey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
)

var day = 24 * time.Hour

func submission() domain.RawSubmission {
	return domain.RawSubmission{
		FormID:     "wholesale-form",
		ResponseID: "resp-1",
		Name:       "Dana Reed",
		Email:      "dana@example.com",
		Goals:      "resell",
	}
}

func TestProcessSubmissionStartsNurture(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	if lead.State != domain.StateNurturing {
		t.Errorf("state = %s, want NURTURING", lead.State)
	}
	if lead.Category != domain.CategoryWholesale {
		t.Errorf("category = %s", lead.Category)
	}
	if lead.CRMExternalID != "crm-1" {
		t.Errorf("crm id = %q", lead.CRMExternalID)
	}
	if lead.CadenceStep != 0 {
		t.Errorf("cadenceStep = %d, want 0 after welcome", lead.CadenceStep)
	}

	templates := env.sentTemplates()
	if len(templates) == 0 || templates[0] != "cadence_step_0" {
		t.Errorf("expected day-0 welcome to be dispatched, got %v", templates)
	}
}

func TestProcessSubmissionIsIdempotent(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Error("replayed submission created a second lead")
	}
	if n := len(env.store.Actions(first.ID)); n != 3 {
		t.Errorf("replay changed the action log: %d actions", n)
	}
}

// A crash between the classified transition and the nurture start leaves
// the lead in CLASSIFIED, where no tick will find it. The replayed
// submission must resume it instead of short-circuiting.
func TestReplayResumesInterruptedIntake(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	sub := submission()
	stranded, err := env.store.CreateLead(ctx, domain.Lead{
		ID:    uuid.New(),
		Name:  sub.Name,
		Email: sub.Email,
		State: domain.StateNew,
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := env.engine.Classified(stranded, domain.CategoryWholesale, domain.PriorityMedium, false, "crm-1")
	if err := env.store.ApplyTransition(ctx, tr); err != nil {
		t.Fatal(err)
	}

	resumed, err := env.service.ProcessSubmission(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.ID != stranded.ID {
		t.Fatal("replay forked a second lead instead of resuming")
	}
	if resumed.State != domain.StateNurturing {
		t.Errorf("state = %s, want NURTURING", resumed.State)
	}

	// From here the tick sees the lead again.
	env.clock.Advance(3 * day)
	summary, err := env.service.ScheduledRun(ctx, env.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stepped != 1 {
		t.Errorf("resumed lead not stepped by the tick, stepped = %d", summary.Stepped)
	}
}

func TestProcessSubmissionRejectsMissingEmail(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	sub := submission()
	sub.Email = ""
	if _, err := env.service.ProcessSubmission(context.Background(), sub); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestClassifierFailureProceedsAsUnknown(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	env.classifier.err = errUnreachable

	lead, err := env.service.ProcessSubmission(context.Background(), submission())
	if err != nil {
		t.Fatal(err)
	}
	if lead.Category != domain.CategoryUnknown {
		t.Errorf("category = %s, want Unknown", lead.Category)
	}
	if !lead.FlaggedForReview {
		t.Error("ambiguous classification must be flagged for review")
	}
	if lead.State != domain.StateNurturing {
		t.Errorf("unknown category must not block the journey, state = %s", lead.State)
	}
}

// Two runs at the same timestamp with no intervening events: the second
// produces zero new actions.
func TestScheduledRunIsRerunSafe(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(3 * day)
	now := env.clock.Now()

	if _, err := env.service.ScheduledRun(ctx, now); err != nil {
		t.Fatal(err)
	}
	before := len(env.store.Actions(lead.ID))

	summary, err := env.service.ScheduledRun(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stepped != 0 {
		t.Errorf("second run stepped %d leads, want 0", summary.Stepped)
	}
	if after := len(env.store.Actions(lead.ID)); after != before {
		t.Errorf("second run created %d new actions", after-before)
	}
}

// Cadence step k is sent at most once per lead across repeated ticks.
func TestCadenceStepSentAtMostOnce(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := env.service.ProcessSubmission(ctx, submission()); err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(3 * day)
	for i := 0; i < 5; i++ {
		if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
			t.Fatal(err)
		}
	}

	count := 0
	for _, tmpl := range env.sentTemplates() {
		if tmpl == "cadence_step_2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("step 2 sent %d times, want exactly once", count)
	}
}

// Once booking is detected, no cadence step beyond the one already sent is
// ever marked Sent; pending ones flip to Skipped.
func TestBookingDominatesCadence(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(3 * day)
	if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
		t.Fatal(err)
	}

	env.booking.SetBooked(env.clock.Now())
	env.clock.Advance(25 * day)
	if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
		t.Fatal(err)
	}

	got, err := env.store.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.StateBooked {
		t.Fatalf("state = %s, want BOOKED", got.State)
	}
	if !got.BookingConfirmed {
		t.Error("booking flag not set")
	}
	if got.CadenceStep != 2 {
		t.Errorf("cadenceStep = %d, want 2 (frozen at detection time)", got.CadenceStep)
	}

	for _, tmpl := range env.sentTemplates() {
		if strings.HasPrefix(tmpl, "cadence_step_") && tmpl > "cadence_step_2" {
			t.Errorf("step beyond detection point was sent: %s", tmpl)
		}
	}

	// Post-booking run produces nothing further.
	env.clock.Advance(day)
	summary, err := env.service.ScheduledRun(ctx, env.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 0 {
		t.Errorf("booked lead still processed by tick: %+v", summary)
	}
}

// Exhausting all 8 steps with no booking and no qualifying reply yields
// exactly one ESCALATED transition with reason sequence_exhausted.
func TestSequenceExhaustionEscalatesOnce(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	// Walk the whole cadence day by day.
	for i := 0; i < 30; i++ {
		env.clock.Advance(day)
		if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
			t.Fatal(err)
		}
	}

	got, err := env.store.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CadenceStep != domain.MaxCadenceStep {
		t.Fatalf("cadenceStep = %d, want %d", got.CadenceStep, domain.MaxCadenceStep)
	}
	if got.State != domain.StateEscalated {
		t.Fatalf("state = %s, want ESCALATED", got.State)
	}
	if got.EscalationReason != domain.ReasonSequenceExhausted {
		t.Errorf("reason = %q", got.EscalationReason)
	}

	escalations := 0
	for _, a := range env.store.Actions(lead.ID) {
		if a.DedupKey == domain.EscalationDedupKey(domain.ReasonSequenceExhausted) {
			escalations++
		}
	}
	if escalations != 1 {
		t.Errorf("%d exhaustion escalation actions, want exactly 1", escalations)
	}
}

// A tick and an inbound reply for the same lead converge to the same final
// state and cadence step regardless of arrival order.
func TestTickAndReplyConverge(t *testing.T) {
	run := func(t *testing.T, tickFirst bool) (domain.JourneyState, int) {
		t.Helper()
		env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
		env.intents.raw = string(domain.IntentPricingQuestion)
		ctx := context.Background()

		lead, err := env.service.ProcessSubmission(ctx, submission())
		if err != nil {
			t.Fatal(err)
		}
		env.clock.Advance(3 * day)

		tick := func() {
			if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
				t.Fatal(err)
			}
		}
		reply := func() {
			if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "what does it cost?", "msg-77"); err != nil {
				t.Fatal(err)
			}
		}

		if tickFirst {
			tick()
			reply()
		} else {
			reply()
			tick()
		}

		got, err := env.store.GetLead(ctx, lead.ID)
		if err != nil {
			t.Fatal(err)
		}
		return got.State, got.CadenceStep
	}

	s1, c1 := run(t, true)
	s2, c2 := run(t, false)
	if s1 != s2 || c1 != c2 {
		t.Errorf("divergent outcomes: tick-first (%s, %d) vs reply-first (%s, %d)", s1, c1, s2, c2)
	}
}

func TestInboundReplyDedup(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentPricingQuestion)
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "what does it cost?", "msg-9"); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := env.store.ListMessages(ctx, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("%d messages recorded for one delivery, want 1", len(msgs))
	}

	replies := 0
	for _, tmpl := range env.sentTemplates() {
		if tmpl == "auto_reply_pricing_question" {
			replies++
		}
	}
	if replies != 1 {
		t.Errorf("%d auto-replies for one delivery, want 1", replies)
	}
}

func TestAngryReplyEscalates(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentAngry)
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "stop emailing me", "msg-1"); err != nil {
		t.Fatal(err)
	}

	got, _ := env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateEscalated || got.EscalationReason != domain.ReasonAngry {
		t.Fatalf("state = %s reason = %q", got.State, got.EscalationReason)
	}
}

func TestMalformedIntentFailsSafeToHuman(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = "buy_signal_9000"
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	intent, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "??", "msg-2")
	if err != nil {
		t.Fatal(err)
	}
	if intent != domain.IntentHumanRequest {
		t.Errorf("intent = %s, want human_request", intent)
	}
	got, _ := env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateEscalated {
		t.Errorf("state = %s, want ESCALATED", got.State)
	}
}

func TestRepeatedUnclearEscalates(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentUnclear)
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "hmm", "msg-1"); err != nil {
		t.Fatal(err)
	}
	got, _ := env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateNurturing {
		t.Fatalf("first unclear must not escalate, state = %s", got.State)
	}

	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "what", "msg-2"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateEscalated || got.EscalationReason != domain.ReasonRepeatedUnclear {
		t.Fatalf("state = %s reason = %q", got.State, got.EscalationReason)
	}
}

// A reply arriving as a voice transcript has no outbound voice path; the
// response must leave over SMS to the caller's number, not die in the
// dispatcher.
func TestVoiceReplyAnswersOverSMS(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentBookingIntent)
	ctx := context.Background()

	sub := submission()
	sub.Phone = "+15552801234"
	lead, err := env.service.ProcessSubmission(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelVoice, sub.Phone, "yes let's book a call", "call-tx-1"); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, m := range env.sender.Sent() {
		if m.TemplateKey == "booking_link" {
			found = true
			if m.Channel != domain.ChannelSMS {
				t.Errorf("booking link sent over %s, want sms", m.Channel)
			}
			if m.To != sub.Phone {
				t.Errorf("booking link sent to %q, want %q", m.To, sub.Phone)
			}
		}
	}
	if !found {
		t.Fatal("booking link never dispatched for voice reply")
	}

	for _, a := range env.store.Actions(lead.ID) {
		if a.Status == domain.ActionFailed {
			t.Errorf("action %s (%s) failed: %s", a.Type, a.Channel, a.LastError)
		}
	}
}

// Intake opens a follow-up task on the board so a human tracks the lead
// from day one.
func TestIntakeOpensFollowUpTask(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := env.service.ProcessSubmission(ctx, submission()); err != nil {
		t.Fatal(err)
	}

	created := env.tasks.Created()
	if len(created) != 1 {
		t.Fatalf("%d tasks created at intake, want 1", len(created))
	}
	task := created[0]
	if !strings.Contains(task.Title, "Dana Reed") {
		t.Errorf("task title = %q", task.Title)
	}
	if task.DueIn != 72*time.Hour {
		t.Errorf("task due in %s, want 72h", task.DueIn)
	}
	hasLabel := false
	for _, l := range task.Labels {
		if l == "lead-follow-up" {
			hasLabel = true
		}
	}
	if !hasLabel {
		t.Errorf("task labels = %v, missing lead-follow-up", task.Labels)
	}
}

// Leads that started on different days are each advanced to their own due
// step within a single run.
func TestScheduledRunAdvancesEachLeadToItsOwnStep(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	early, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(4 * day)
	late, err := env.service.ProcessSubmission(ctx, domain.RawSubmission{
		FormID:     "wholesale-form",
		ResponseID: "resp-late",
		Name:       "Riley Kim",
		Email:      "riley@example.com",
		Goals:      "resell",
	})
	if err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(3 * day)
	summary, err := env.service.ScheduledRun(ctx, env.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stepped != 2 {
		t.Fatalf("stepped = %d, want 2", summary.Stepped)
	}

	gotEarly, _ := env.store.GetLead(ctx, early.ID)
	gotLate, _ := env.store.GetLead(ctx, late.ID)
	if gotEarly.CadenceStep != 3 {
		t.Errorf("day-7 lead at step %d, want 3", gotEarly.CadenceStep)
	}
	if gotLate.CadenceStep != 2 {
		t.Errorf("day-3 lead at step %d, want 2", gotLate.CadenceStep)
	}
}

func TestHumanOverrideResumesNurture(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentAngry)
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "no", "msg-1"); err != nil {
		t.Fatal(err)
	}

	resumed, err := env.service.HandleHumanOverride(ctx, lead.ID, domain.StateNurturing)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.State != domain.StateNurturing {
		t.Errorf("state = %s, want NURTURING", resumed.State)
	}
	if resumed.EscalationReason != "" || resumed.EscalatedAt != nil {
		t.Error("override must clear escalation")
	}
}

// The full journey from the acceptance scenario: wholesale submission on
// day 0, step 2 on day 3, pricing reply on day 4, step 3 on day 7,
// booking observed on day 9.
func TestWholesaleJourneyScenario(t *testing.T) {
	env := newTestEnv(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	env.intents.raw = string(domain.IntentPricingQuestion)
	ctx := context.Background()

	lead, err := env.service.ProcessSubmission(ctx, submission())
	if err != nil {
		t.Fatal(err)
	}
	if lead.Priority == domain.PriorityHigh {
		t.Fatalf("scenario lead should not be high priority, got %s", lead.Priority)
	}

	env.clock.Advance(3 * day)
	if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ := env.store.GetLead(ctx, lead.ID)
	if got.CadenceStep != 2 {
		t.Fatalf("day 3: cadenceStep = %d, want 2", got.CadenceStep)
	}

	env.clock.Advance(day)
	if _, err := env.service.HandleInboundReply(ctx, domain.ChannelEmail, lead.Email, "what's pricing", "msg-day4"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateNurturing {
		t.Fatalf("day 4: state = %s, want NURTURING", got.State)
	}
	if got.CadenceStep != 2 {
		t.Fatalf("day 4: reply changed cadenceStep to %d", got.CadenceStep)
	}

	env.clock.Advance(3 * day)
	if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ = env.store.GetLead(ctx, lead.ID)
	if got.CadenceStep != 3 {
		t.Fatalf("day 7: cadenceStep = %d, want 3", got.CadenceStep)
	}

	env.booking.SetBooked(env.clock.Now().Add(day))
	env.clock.Advance(2 * day)
	if _, err := env.service.ScheduledRun(ctx, env.clock.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ = env.store.GetLead(ctx, lead.ID)
	if got.State != domain.StateBooked {
		t.Fatalf("day 9: state = %s, want BOOKED", got.State)
	}
	for _, tmpl := range env.sentTemplates() {
		if tmpl == "cadence_step_4" || tmpl == "cadence_step_5" || tmpl == "cadence_step_6" ||
			tmpl == "cadence_step_7" || tmpl == "cadence_step_8" {
			t.Errorf("post-booking cadence send: %s", tmpl)
		}
	}

	found := false
	for _, tmpl := range env.sentTemplates() {
		if tmpl == "booked_asset_pack" {
			found = true
		}
	}
	if !found {
		t.Error("asset pack email was not dispatched after booking")
	}
}

func TestBookingOracleOutageDoesNotAbortRun(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	env.booking.err = errUnreachable
	ctx := context.Background()

	if _, err := env.service.ProcessSubmission(ctx, submission()); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(3 * day)
	summary, err := env.service.ScheduledRun(ctx, env.clock.Now())
	if err != nil {
		t.Fatalf("oracle outage must not be fatal: %v", err)
	}
	if summary.Stepped != 1 {
		t.Errorf("cadence should continue during oracle outage, stepped = %d", summary.Stepped)
	}
}

func TestTestIntegrations(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	statuses := env.service.TestIntegrations(context.Background())
	if len(statuses) != 4 {
		t.Fatalf("expected 4 integration probes, got %d", len(statuses))
	}
	for _, st := range statuses {
		if st.Err != nil {
			t.Errorf("%s probe failed: %v", st.Name, st.Err)
		}
	}
}

type fakeSource struct {
	subs []domain.RawSubmission
	err  error
}

func (f *fakeSource) Fetch(context.Context) ([]domain.RawSubmission, error) {
	return f.subs, f.err
}

func TestCatchUpSubmissionsIsIdempotent(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	ctx := context.Background()

	missed := submission()
	source := &fakeSource{subs: []domain.RawSubmission{missed, {
		FormID:     "wholesale-form",
		ResponseID: "resp-2",
		Name:       "No Email",
	}}}

	processed, err := env.service.CatchUpSubmissions(ctx, source)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1 (email-less submission skipped)", processed)
	}

	lead, err := env.store.FindLeadByEmail(ctx, missed.Email)
	if err != nil {
		t.Fatalf("lead not created from polled submission: %v", err)
	}
	if lead.State != domain.StateNurturing {
		t.Errorf("state = %s, want %s", lead.State, domain.StateNurturing)
	}

	// A second pass re-fetches the same responses and must not fork a
	// second journey.
	if _, err := env.service.CatchUpSubmissions(ctx, source); err != nil {
		t.Fatal(err)
	}
	again, err := env.store.FindLeadByEmail(ctx, missed.Email)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != lead.ID {
		t.Errorf("catch-up created a duplicate lead")
	}
}

func TestCatchUpSourceOutageIsNotFatalToCaller(t *testing.T) {
	env := newTestEnv(time.Now().UTC())
	source := &fakeSource{err: errUnreachable}

	_, err := env.service.CatchUpSubmissions(context.Background(), source)
	if err == nil {
		t.Fatal("expected error when source is unreachable")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnavailable {
		t.Errorf("error = %v, want unavailable kind", err)
	}
}
