package journey

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/platform/apperr"
)

// Journey event names, recorded on every transition for audit.
const (
	EventSubmissionReceived = "submission_received"
	EventNurtureStarted     = "nurture_started"
	EventBookingDetected    = "booking_detected"
	EventCadenceStepSent    = "cadence_step_sent"
	EventSequenceExhausted  = "sequence_exhausted"
	EventInboundReply       = "inbound_reply"
	EventHumanOverride      = "human_override"
)

// Milestone step: when this cadence step goes out without a booking or a
// reply, the team gets a mid-sequence heads-up.
const milestoneStep = 4

// Voice follow-up policy: high-priority wholesale leads get a call
// alongside cadence steps from this step on.
const callFromStep = 2

// Engine computes journey transitions. It is pure: every method takes the
// lead as read (version included) and returns the full mutation for the
// store to apply atomically. No IO happens here.
type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func newAction(leadID uuid.UUID, typ domain.ActionType, channel domain.Channel, dedupKey, payload string) domain.Action {
	return domain.Action{
		ID:       uuid.New(),
		LeadID:   leadID,
		Type:     typ,
		Channel:  channel,
		Status:   domain.ActionPending,
		DedupKey: dedupKey,
		Payload:  payload,
	}
}

// replyChannel maps the inbound conversation channel to the channel the
// reply goes out on. A voice transcript has no outbound reply path, so
// its replies go back over SMS to the same phone.
func replyChannel(c domain.Channel) domain.Channel {
	if c == domain.ChannelVoice {
		return domain.ChannelSMS
	}
	return c
}

// Classified moves a freshly created lead from NEW to CLASSIFIED, stamps
// the journey start and emits the day-0 welcome (step 0) plus an intake
// note to the CRM. cadenceStep stays 0: the welcome does not consume a
// numbered step.
func (e *Engine) Classified(lead domain.Lead, category domain.Category, priority domain.Priority, ambiguous bool, crmExternalID string) repository.Transition {
	now := e.now().UTC()
	from := lead.State

	next := lead.Clone()
	next.Category = category
	next.Priority = priority
	next.FlaggedForReview = ambiguous
	next.CRMExternalID = crmExternalID
	next.State = domain.StateClassified
	next.JourneyStartedAt = now
	next.LastTransitionAt = now

	taskPriority := "MEDIUM"
	if priority == domain.PriorityHigh {
		taskPriority = "HIGH"
	}
	actions := []domain.Action{
		newAction(lead.ID, domain.ActionCadenceStep, domain.ChannelEmail,
			domain.CadenceDedupKey(0),
			mustJSON(CadencePayload{Step: 0, TemplateKey: "cadence_step_0"})),
		newAction(lead.ID, domain.ActionCRMNote, domain.ChannelChat,
			domain.CRMNoteDedupKey("intake"),
			mustJSON(NotePayload{Text: fmt.Sprintf("Lead classified as %s (%s priority) from intake form.", category, priority)})),
		newAction(lead.ID, domain.ActionCreateTask, domain.ChannelChat,
			domain.TaskDedupKey("follow_up"),
			mustJSON(TaskPayload{
				Title:      fmt.Sprintf("Follow up: %s - %s", orDefault(lead.Name, "Unknown"), orDefault(lead.Company, "No Company")),
				Body:       fmt.Sprintf("Category: %s\nEmail: %s\nPhone: %s\nGoals: %s\n\nMonitor lead progress and intervene if needed.", category, lead.Email, orDefault(lead.Phone, "-"), orDefault(lead.Goals, "-")),
				Priority:   taskPriority,
				DueInHours: 72,
				Labels:     []string{string(category), "lead-follow-up"},
			})),
	}

	return repository.Transition{
		Lead:      next,
		Event:     EventSubmissionReceived,
		FromState: from,
		Actions:   actions,
	}
}

// StartNurture moves a CLASSIFIED lead into the cadence.
func (e *Engine) StartNurture(lead domain.Lead) repository.Transition {
	next := lead.Clone()
	next.State = domain.StateNurturing
	next.LastTransitionAt = e.now().UTC()
	return repository.Transition{
		Lead:      next,
		Event:     EventNurtureStarted,
		FromState: lead.State,
	}
}

// BookingDetected transitions to BOOKED regardless of the current position
// in the journey. Sticky: returns false when the lead is already booked so
// repeated observations do not re-emit the post-booking actions.
func (e *Engine) BookingDetected(lead domain.Lead, confirmedAt time.Time) (repository.Transition, bool) {
	if lead.State == domain.StateBooked || lead.BookingConfirmed {
		return repository.Transition{}, false
	}

	now := e.now().UTC()
	from := lead.State

	next := lead.Clone()
	next.MarkBooked(confirmedAt)
	next.State = domain.StateBooked
	next.ClearEscalation()
	next.LastTransitionAt = now

	actions := []domain.Action{
		newAction(lead.ID, domain.ActionBookedAssetPack, domain.ChannelEmail,
			domain.AssetPackDedupKey(),
			mustJSON(CadencePayload{TemplateKey: "booked_asset_pack"})),
		newAction(lead.ID, domain.ActionCRMNote, domain.ChannelChat,
			domain.CRMNoteDedupKey("booking_confirmed"),
			mustJSON(NotePayload{Text: "Meeting booked; nurture sequence stopped."})),
		newAction(lead.ID, domain.ActionNotifyHuman, domain.ChannelChat,
			"notify_human:booked",
			mustJSON(NotifyPayload{Text: fmt.Sprintf("%s (%s) booked a meeting.", lead.Name, lead.Email)})),
		newAction(lead.ID, domain.ActionCreateTask, domain.ChannelChat,
			domain.TaskDedupKey("call_prep"),
			mustJSON(TaskPayload{
				Title:      fmt.Sprintf("Call prep: %s - %s", orDefault(lead.Name, "Unknown"), orDefault(lead.Company, "No Company")),
				Body:       fmt.Sprintf("Meeting confirmed %s.\n\nEmail: %s\nPhone: %s\nIndustry: %s\nGoals: %s\n\nReview the submission, research the company and prepare the demo.", confirmedAt.UTC().Format(time.RFC3339), lead.Email, orDefault(lead.Phone, "-"), orDefault(lead.Industry, "-"), orDefault(lead.Goals, "-")),
				Priority:   "ASAP",
				DueInHours: 1,
				Labels:     []string{string(lead.Category), "call-prep", "booked"},
			})),
	}

	return repository.Transition{
		Lead:        next,
		Event:       EventBookingDetected,
		FromState:   from,
		Actions:     actions,
		SkipPending: true,
	}, true
}

// TickCadence advances the cadence to the given step and emits its send
// action. The step must come from domain.NextDueStep against the same
// lead snapshot. Report steps send the personalized category report in
// place of plain nurture copy. Also emits the milestone heads-up and,
// for high-priority wholesale leads, the voice follow-up.
func (e *Engine) TickCadence(lead domain.Lead, step int) (repository.Transition, bool) {
	if lead.State != domain.StateNurturing || step <= lead.CadenceStep || step > domain.MaxCadenceStep {
		return repository.Transition{}, false
	}
	if _, inflight := lead.PendingActionKeys[domain.CadenceDedupKey(step)]; inflight {
		return repository.Transition{}, false
	}

	now := e.now().UTC()

	next := lead.Clone()
	next.CadenceStep = step
	next.LastTransitionAt = now

	templateKey := fmt.Sprintf("cadence_step_%d", step)
	if domain.IsReportStep(step) {
		templateKey = fmt.Sprintf("report_step_%d", step)
	}

	actions := []domain.Action{
		newAction(lead.ID, domain.ActionCadenceStep, domain.ChannelEmail,
			domain.CadenceDedupKey(step),
			mustJSON(CadencePayload{Step: step, TemplateKey: templateKey})),
	}

	if step == milestoneStep {
		actions = append(actions, newAction(lead.ID, domain.ActionNotifyHuman, domain.ChannelChat,
			domain.MilestoneDedupKey(step),
			mustJSON(NotifyPayload{Text: fmt.Sprintf("%s (%s) reached cadence step %d with no booking yet.", lead.Name, lead.Email, step)})))
	}

	if shouldPlaceCall(lead, step) {
		actions = append(actions, newAction(lead.ID, domain.ActionPlaceCall, domain.ChannelVoice,
			domain.CallDedupKey(step),
			mustJSON(CallPayload{ScriptKey: "wholesale_follow_up", Step: step})))
	}

	return repository.Transition{
		Lead:      next,
		Event:     EventCadenceStepSent,
		FromState: lead.State,
		Actions:   actions,
	}, true
}

// escalationTask is the team-board work item raised alongside every
// escalation, deduped on the reason like the notification itself.
func escalationTask(lead domain.Lead, reason string) domain.Action {
	return newAction(lead.ID, domain.ActionCreateTask, domain.ChannelChat,
		domain.TaskDedupKey(reason),
		mustJSON(TaskPayload{
			Title:      fmt.Sprintf("Escalation: %s - %s", orDefault(lead.Name, "Unknown"), reason),
			Body:       fmt.Sprintf("Reason: %s\n\nEmail: %s\nPhone: %s\nCadence step: %d\n\nReview the lead and decide next steps.", reason, lead.Email, orDefault(lead.Phone, "-"), lead.CadenceStep),
			Priority:   "HIGH",
			DueInHours: 24,
			Labels:     []string{string(lead.Category), "escalation", "needs-attention"},
		}))
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func shouldPlaceCall(lead domain.Lead, step int) bool {
	return lead.Category == domain.CategoryWholesale &&
		lead.Priority == domain.PriorityHigh &&
		lead.Phone != "" &&
		step >= callFromStep &&
		!lead.BookingConfirmed
}

// Exhausted escalates a lead whose sequence ran out without a booking.
func (e *Engine) Exhausted(lead domain.Lead) (repository.Transition, bool) {
	if !domain.CadenceExhausted(lead) {
		return repository.Transition{}, false
	}

	now := e.now().UTC()
	from := lead.State

	next := lead.Clone()
	next.Escalate(domain.ReasonSequenceExhausted, now)
	next.LastTransitionAt = now

	actions := []domain.Action{
		newAction(lead.ID, domain.ActionNotifyHuman, domain.ChannelChat,
			domain.EscalationDedupKey(domain.ReasonSequenceExhausted),
			mustJSON(NotifyPayload{
				Text:   fmt.Sprintf("%s (%s) finished the nurture sequence without booking.", lead.Name, lead.Email),
				Reason: domain.ReasonSequenceExhausted,
			})),
		newAction(lead.ID, domain.ActionCRMNote, domain.ChannelChat,
			domain.CRMNoteDedupKey(domain.ReasonSequenceExhausted),
			mustJSON(NotePayload{Text: "Nurture sequence exhausted; escalated to a human."})),
		escalationTask(lead, domain.ReasonSequenceExhausted),
	}

	return repository.Transition{
		Lead:      next,
		Event:     EventSequenceExhausted,
		FromState: from,
		Actions:   actions,
	}, true
}

// Inbound is an inbound message after webhook validation, before intent
// analysis.
type Inbound struct {
	Channel    domain.Channel
	Body       string
	ExternalID string
}

// InboundReply records the message and disposes of it in one transition:
// escalate, send the booking link, or auto-reply. The intent must already
// be coerced to the taxonomy. Receipt and disposition are atomic, so a
// concurrent tick either sees the lead before the reply or after its full
// handling, never in between.
func (e *Engine) InboundReply(lead domain.Lead, in Inbound, intent domain.Intent) repository.Transition {
	now := e.now().UTC()
	from := lead.State
	msgKey := domain.MessageDedupKey(in.Channel, in.ExternalID)

	i := intent
	msg := domain.Message{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Channel:   in.Channel,
		Direction: domain.DirectionInbound,
		Body:      in.Body,
		Intent:    &i,
		DedupKey:  msgKey,
	}

	next := lead.Clone()
	next.LastTransitionAt = now

	t := repository.Transition{
		Lead:      next,
		Event:     EventInboundReply,
		FromState: from,
		Messages:  []domain.Message{msg},
	}

	// Terminal leads keep their audit trail but get no automated handling;
	// a booked or escalated conversation already belongs to a human.
	if lead.State.IsTerminal() {
		t.Lead = next
		return t
	}

	if intent == domain.IntentUnclear {
		next.UnclearReplies++
	}

	if reason := domain.EscalationReasonFor(&lead, intent); reason != "" {
		next.Escalate(reason, now)
		t.Actions = []domain.Action{
			newAction(lead.ID, domain.ActionNotifyHuman, domain.ChannelChat,
				domain.EscalationDedupKey(reason),
				mustJSON(NotifyPayload{
					Text:   fmt.Sprintf("%s (%s) needs a human: %s.", lead.Name, lead.Email, reason),
					Reason: reason,
				})),
			newAction(lead.ID, domain.ActionCRMNote, domain.ChannelChat,
				domain.CRMNoteDedupKey(reason),
				mustJSON(NotePayload{Text: fmt.Sprintf("Escalated (%s) after inbound %s reply.", reason, in.Channel)})),
			escalationTask(lead, reason),
		}
		t.Lead = next
		return t
	}

	out := replyChannel(in.Channel)
	switch intent {
	case domain.IntentBookingIntent:
		t.Actions = []domain.Action{
			newAction(lead.ID, domain.ActionBookingLink, out,
				domain.BookingLinkDedupKey(msgKey),
				mustJSON(ReplyPayload{TemplateKey: "booking_link", Intent: string(intent)})),
		}
	case domain.IntentPricingQuestion, domain.IntentObjection:
		t.Actions = []domain.Action{
			newAction(lead.ID, domain.ActionAutoReply, out,
				domain.ReplyDedupKey(msgKey),
				mustJSON(ReplyPayload{TemplateKey: "auto_reply_" + string(intent), Intent: string(intent)})),
		}
	case domain.IntentUnclear:
		t.Actions = []domain.Action{
			newAction(lead.ID, domain.ActionAutoReply, out,
				domain.ReplyDedupKey(msgKey),
				mustJSON(ReplyPayload{TemplateKey: "auto_reply_unclear", Intent: string(intent)})),
		}
	}

	t.Lead = next
	return t
}

// HumanOverride sets the journey state by explicit operator decision and
// clears any escalation. The only path out of ESCALATED.
func (e *Engine) HumanOverride(lead domain.Lead, to domain.JourneyState) (repository.Transition, error) {
	if !domain.IsKnownState(to) {
		return repository.Transition{}, apperr.Validation(fmt.Sprintf("unknown journey state %q", to))
	}

	now := e.now().UTC()

	next := lead.Clone()
	next.State = to
	next.ClearEscalation()
	next.LastTransitionAt = now

	return repository.Transition{
		Lead:      next,
		Event:     EventHumanOverride,
		FromState: lead.State,
	}, nil
}
