package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainevents "leadflow_backend/internal/events"
	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// maxTransitionAttempts bounds the reload-and-retry loop on version
// conflicts. A conflict means another writer won; the transition is
// recomputed from the fresh snapshot, never partially applied.
const maxTransitionAttempts = 3

// Service is the process-boundary surface: one scheduled run, one intake
// submission, one inbound reply, one human override at a time.
type Service struct {
	store      repository.Store
	engine     *Engine
	classifier Classifier
	intents    AIIntentService
	crm        CRMSync
	booking    BookingOracle
	dispatcher *Dispatcher
	notifier   NotificationSink
	bus        events.Bus
	log        *logger.Logger
	workers    int
	now        func() time.Time
}

func NewService(
	store repository.Store,
	engine *Engine,
	classifier Classifier,
	intents AIIntentService,
	crm CRMSync,
	booking BookingOracle,
	dispatcher *Dispatcher,
	notifier NotificationSink,
	bus events.Bus,
	log *logger.Logger,
	workers int,
) *Service {
	if workers < 1 {
		workers = 8
	}
	return &Service{
		store:      store,
		engine:     engine,
		classifier: classifier,
		intents:    intents,
		crm:        crm,
		booking:    booking,
		dispatcher: dispatcher,
		notifier:   notifier,
		bus:        bus,
		log:        log,
		workers:    workers,
		now:        time.Now,
	}
}

// applyWithRetry runs the compute function against a fresh lead snapshot
// and commits the result, reloading and recomputing on version conflict.
// compute returning ok=false means nothing to do for this snapshot.
func (s *Service) applyWithRetry(ctx context.Context, leadID uuid.UUID, compute func(domain.Lead) (repository.Transition, bool, error)) (domain.Lead, bool, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		lead, err := s.store.GetLead(ctx, leadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Lead{}, false, apperr.NotFound("lead not found")
			}
			return domain.Lead{}, false, err
		}

		t, ok, err := compute(lead)
		if err != nil {
			return domain.Lead{}, false, err
		}
		if !ok {
			return lead, false, nil
		}

		err = s.store.ApplyTransition(ctx, t)
		switch {
		case err == nil:
			s.log.JourneyTransition(leadID.String(), string(t.FromState), string(t.Lead.State), t.Event)
			return t.Lead, true, nil
		case errors.Is(err, repository.ErrVersionConflict):
			continue
		case errors.Is(err, repository.ErrDuplicateMessage):
			// The same inbound delivery was fully handled by another
			// writer. Exactly-once effect under at-least-once delivery.
			return lead, false, nil
		default:
			return domain.Lead{}, false, err
		}
	}
	return domain.Lead{}, false, apperr.Conflict("transition retries exhausted")
}

// ProcessSubmission runs the full intake path: classify, sync to CRM,
// create the journey record and either start nurturing or go straight to
// BOOKED when a meeting already exists. Replayed submissions resolve to
// the existing lead.
func (s *Service) ProcessSubmission(ctx context.Context, sub domain.RawSubmission) (domain.Lead, error) {
	if sub.Email == "" {
		return domain.Lead{}, apperr.Validation("submission has no email address")
	}

	if existing, err := s.store.FindLeadByEmail(ctx, sub.Email); err == nil {
		if existing.State == domain.StateClassified {
			// A crash between classification and the nurture start leaves
			// the lead parked in CLASSIFIED, invisible to the tick. The
			// replayed submission resumes it.
			resumed, _, err := s.applyWithRetry(ctx, existing.ID, func(l domain.Lead) (repository.Transition, bool, error) {
				if l.State != domain.StateClassified {
					return repository.Transition{}, false, nil
				}
				return s.engine.StartNurture(l), true, nil
			})
			if err != nil {
				return domain.Lead{}, err
			}
			s.log.Info("resumed stalled intake", "lead_id", existing.ID.String())
			return resumed, nil
		}
		s.log.Info("submission for existing lead, skipping", "lead_id", existing.ID.String())
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, err
	}

	category, ambiguous, err := s.classifier.Classify(ctx, sub)
	if err != nil {
		// Low-confidence or failed classification never blocks intake; the
		// lead proceeds as Unknown and is flagged for review.
		s.log.Warn("classification failed, proceeding as Unknown", "error", err)
		category = domain.CategoryUnknown
		ambiguous = true
	}
	priority := domain.ScorePriority(category, sub.Phone, sub.Company, sub.Goals)

	lead := domain.Lead{
		ID:       uuid.New(),
		Name:     sub.Name,
		Company:  sub.Company,
		Industry: sub.Industry,
		Goals:    sub.Goals,
		Email:    sub.Email,
		Phone:    sub.Phone,
		Category: domain.CategoryUnknown,
		Priority: priority,
		State:    domain.StateNew,
	}
	lead, err = s.store.CreateLead(ctx, lead)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}

	crmID := ""
	lead.Category = category
	if id, err := s.crm.UpsertLead(ctx, lead); err != nil {
		s.log.Warn("CRM upsert failed, lead proceeds without CRM record", "lead_id", lead.ID.String(), "error", err)
	} else {
		crmID = id
	}

	lead, _, err = s.applyWithRetry(ctx, lead.ID, func(l domain.Lead) (repository.Transition, bool, error) {
		return s.engine.Classified(l, category, priority, ambiguous, crmID), true, nil
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.bus.Publish(ctx, domainevents.LeadClassified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Email:     lead.Email,
		Category:  string(category),
		Priority:  string(priority),
	})

	booked, confirmedAt, err := s.booking.HasBooking(ctx, lead.Email)
	if err != nil {
		s.log.Warn("booking lookup failed at intake", "lead_id", lead.ID.String(), "error", err)
		booked = false
	}

	if booked {
		lead, err = s.markBooked(ctx, lead.ID, confirmedAt)
	} else {
		lead, _, err = s.applyWithRetry(ctx, lead.ID, func(l domain.Lead) (repository.Transition, bool, error) {
			return s.engine.StartNurture(l), true, nil
		})
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if _, err := s.dispatcher.Run(ctx); err != nil {
		s.log.Error("dispatch after intake failed", "error", err)
	}
	return lead, nil
}

// CatchUpSubmissions pulls submissions straight from the form provider
// and runs intake for each, picking up anything whose webhook never
// arrived. Already-seen submissions resolve to their existing lead, so
// the count reports fetched submissions, not new leads.
func (s *Service) CatchUpSubmissions(ctx context.Context, source SubmissionSource) (int, error) {
	subs, err := source.Fetch(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "fetch intake submissions", err)
	}

	processed := 0
	for _, sub := range subs {
		if _, err := s.ProcessSubmission(ctx, sub); err != nil {
			s.log.Warn("catch-up submission failed", "response_id", sub.ResponseID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *Service) markBooked(ctx context.Context, leadID uuid.UUID, confirmedAt time.Time) (domain.Lead, error) {
	lead, applied, err := s.applyWithRetry(ctx, leadID, func(l domain.Lead) (repository.Transition, bool, error) {
		t, ok := s.engine.BookingDetected(l, confirmedAt)
		return t, ok, nil
	})
	if err != nil {
		return domain.Lead{}, err
	}
	if applied {
		s.bus.Publish(ctx, domainevents.BookingDetected{BaseEvent: events.NewBaseEvent(), LeadID: leadID})
	}
	return lead, nil
}

// RunSummary reports one scheduled run. Errored > 0 with a nil error is a
// partial failure: the run completed and every failure left a note.
type RunSummary struct {
	Processed int
	Stepped   int
	Booked    int
	Escalated int
	Errored   int
	Dispatch  DispatchSummary
}

// ScheduledRun is one pass of the journey engine over every nurturing
// lead: observe bookings, advance due cadence steps, escalate exhausted
// sequences, then drain the resulting actions. Leads run on a bounded
// pool, in ascending id order, each isolated from the others' failures.
func (s *Service) ScheduledRun(ctx context.Context, now time.Time) (RunSummary, error) {
	leads, err := s.store.ListNurturing(ctx)
	if err != nil {
		// Store unreachable: fatal, nothing has been mutated.
		return RunSummary{}, apperr.Wrap(apperr.KindUnavailable, "list nurturing leads", err)
	}

	dueSteps := make(map[uuid.UUID]int)
	for _, due := range DueActions(now, leads) {
		dueSteps[due.Lead.ID] = due.Step
	}

	var summary RunSummary
	results := make([]leadOutcome, len(leads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, lead := range leads {
		g.Go(func() error {
			results[i] = s.processLeadTick(gctx, lead, dueSteps[lead.ID])
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		summary.Processed++
		switch {
		case r.err != nil:
			summary.Errored++
		case r.booked:
			summary.Booked++
		case r.escalated:
			summary.Escalated++
		case r.stepped:
			summary.Stepped++
		}
	}

	dispatch, err := s.dispatcher.Run(ctx)
	if err != nil {
		s.log.Error("dispatch pass failed", "error", err)
		summary.Errored++
	}
	summary.Dispatch = dispatch

	// The summary reaches the team channel through the bus subscriber;
	// sync publish so a finished run never races its own report.
	if err := s.bus.PublishSync(ctx, domainevents.ScheduledRunDone{
		BaseEvent: events.NewBaseEvent(),
		Processed: summary.Processed,
		Stepped:   summary.Stepped,
		Booked:    summary.Booked,
		Escalated: summary.Escalated,
		Errored:   summary.Errored,
		Sent:      dispatch.Sent,
		Claimed:   dispatch.Claimed,
	}); err != nil {
		s.log.Warn("run summary notification failed", "error", err)
	}

	return summary, nil
}

type leadOutcome struct {
	stepped   bool
	booked    bool
	escalated bool
	err       error
}

// processLeadTick decides one lead's tick. Booking detection dominates: a
// lead observed booked takes that transition no matter what step was due.
// dueStep comes from the run's DueActions pass; TickCadence re-validates
// it against the fresh snapshot, so a stale step degrades to a no-op.
func (s *Service) processLeadTick(ctx context.Context, snapshot domain.Lead, dueStep int) leadOutcome {
	leadID := snapshot.ID
	log := s.log.WithLeadID(leadID.String())

	booked, confirmedAt, err := s.booking.HasBooking(ctx, snapshot.Email)
	if err != nil {
		log.Warn("booking lookup failed, continuing cadence", "error", err)
		booked = false
	}
	if booked {
		if _, err := s.markBooked(ctx, leadID, confirmedAt); err != nil {
			s.noteLeadError(ctx, leadID, err)
			return leadOutcome{err: err}
		}
		return leadOutcome{booked: true}
	}

	var stepped, escalated bool
	lead, _, err := s.applyWithRetry(ctx, leadID, func(l domain.Lead) (repository.Transition, bool, error) {
		stepped, escalated = false, false
		if dueStep > 0 {
			t, ok := s.engine.TickCadence(l, dueStep)
			stepped = ok
			return t, ok, nil
		}
		if t, ok := s.engine.Exhausted(l); ok {
			escalated = true
			return t, ok, nil
		}
		return repository.Transition{}, false, nil
	})
	if err != nil {
		s.noteLeadError(ctx, leadID, err)
		return leadOutcome{err: err}
	}

	if stepped {
		s.bus.Publish(ctx, domainevents.CadenceStepSent{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Step: lead.CadenceStep})
	}
	if escalated {
		s.bus.Publish(ctx, domainevents.LeadEscalated{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Reason: lead.EscalationReason})
	}
	return leadOutcome{stepped: stepped, escalated: escalated}
}

// noteLeadError makes a per-lead failure visible without aborting the run.
func (s *Service) noteLeadError(ctx context.Context, leadID uuid.UUID, cause error) {
	s.log.WithLeadID(leadID.String()).Error("lead processing failed", "error", cause)

	lead, err := s.store.GetLead(ctx, leadID)
	if err == nil && lead.CRMExternalID != "" {
		if err := s.crm.AppendNote(ctx, lead.CRMExternalID, fmt.Sprintf("Journey processing error: %v", cause)); err != nil {
			s.log.Warn("failed to record error note", "lead_id", leadID.String(), "error", err)
		}
	}
	if err := s.notifier.Notify(ctx, fmt.Sprintf("Lead %s failed processing: %v", leadID, cause)); err != nil {
		s.log.Warn("failed to notify error", "lead_id", leadID.String(), "error", err)
	}
}

// HandleInboundReply records one inbound message, classifies its intent
// and applies the resulting disposition. Re-delivered webhooks are a
// no-op. Returns the coerced intent for transparency to the caller.
func (s *Service) HandleInboundReply(ctx context.Context, channel domain.Channel, from, body, externalID string) (domain.Intent, error) {
	lead, err := s.findByContact(ctx, channel, from)
	if err != nil {
		return "", err
	}

	raw, err := s.intents.ClassifyIntent(ctx, body, lead)
	if err != nil {
		// Unreadable intent is never dropped; it fails safe to a human.
		s.log.Warn("intent classification failed, escalating", "lead_id", lead.ID.String(), "error", err)
		raw = string(domain.IntentHumanRequest)
	}
	intent := domain.CoerceIntent(raw)

	in := Inbound{Channel: channel, Body: body, ExternalID: externalID}
	final, applied, err := s.applyWithRetry(ctx, lead.ID, func(l domain.Lead) (repository.Transition, bool, error) {
		return s.engine.InboundReply(l, in, intent), true, nil
	})
	if err != nil {
		return intent, err
	}

	if applied {
		s.bus.Publish(ctx, domainevents.InboundReply{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    final.ID,
			Channel:   string(channel),
			Intent:    string(intent),
		})
		if final.State == domain.StateEscalated {
			s.bus.Publish(ctx, domainevents.LeadEscalated{BaseEvent: events.NewBaseEvent(), LeadID: final.ID, Reason: final.EscalationReason})
		}
	}

	if _, err := s.dispatcher.Run(ctx); err != nil {
		s.log.Error("dispatch after reply failed", "error", err)
	}
	return intent, nil
}

func (s *Service) findByContact(ctx context.Context, channel domain.Channel, from string) (domain.Lead, error) {
	var (
		lead domain.Lead
		err  error
	)
	switch channel {
	case domain.ChannelSMS, domain.ChannelVoice:
		lead, err = s.store.FindLeadByPhone(ctx, from)
	default:
		lead, err = s.store.FindLeadByEmail(ctx, from)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("no lead for sender " + from)
	}
	return lead, err
}

// HandleHumanOverride moves a lead to an operator-chosen state, clearing
// escalation. Typically back to NURTURING to resume, or to CLOSED.
func (s *Service) HandleHumanOverride(ctx context.Context, leadID uuid.UUID, to domain.JourneyState) (domain.Lead, error) {
	lead, _, err := s.applyWithRetry(ctx, leadID, func(l domain.Lead) (repository.Transition, bool, error) {
		t, err := s.engine.HumanOverride(l, to)
		if err != nil {
			return repository.Transition{}, false, err
		}
		return t, true, nil
	})
	return lead, err
}

// IntegrationStatus is one collaborator's health check result.
type IntegrationStatus struct {
	Name string
	Err  error
}

// TestIntegrations probes every collaborator with a cheap call and reports
// per-integration results. Nothing is mutated.
func (s *Service) TestIntegrations(ctx context.Context) []IntegrationStatus {
	statuses := []IntegrationStatus{}

	_, err := s.store.ListNurturing(ctx)
	statuses = append(statuses, IntegrationStatus{Name: "store", Err: err})

	_, _, err = s.booking.HasBooking(ctx, "probe@example.com")
	statuses = append(statuses, IntegrationStatus{Name: "booking", Err: err})

	_, err = s.intents.ClassifyIntent(ctx, "ping", domain.Lead{})
	statuses = append(statuses, IntegrationStatus{Name: "intent", Err: err})

	err = s.notifier.Notify(ctx, "Integration test: journey service is reachable.")
	statuses = append(statuses, IntegrationStatus{Name: "notify", Err: err})

	return statuses
}
