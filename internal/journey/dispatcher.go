package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

// DispatcherConfig bounds the dispatcher's retry and pacing behavior.
type DispatcherConfig struct {
	CallTimeout time.Duration
	MaxRetries  uint64
	SendsPerSec float64
	BatchSize   int
}

func (c *DispatcherConfig) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.SendsPerSec <= 0 {
		c.SendsPerSec = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

// Dispatcher drains pending actions and executes them against the outbound
// collaborators. Each call runs behind its own timeout so one slow channel
// never stalls the rest of the batch; transient failures retry with bounded
// exponential backoff while classified rejections fail on the first attempt;
// exhausted failures are written to the CRM and the team channel, never
// dropped.
type Dispatcher struct {
	store    repository.Store
	sender   MessageSender
	dialer   VoiceDialer
	crm      CRMSync
	tasks    TaskBoard
	notifier NotificationSink
	limiter  *rate.Limiter
	log      *logger.Logger
	cfg      DispatcherConfig
}

func NewDispatcher(store repository.Store, sender MessageSender, dialer VoiceDialer, crm CRMSync, tasks TaskBoard, notifier NotificationSink, log *logger.Logger, cfg DispatcherConfig) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		store:    store,
		sender:   sender,
		dialer:   dialer,
		crm:      crm,
		tasks:    tasks,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SendsPerSec), 1),
		log:      log,
		cfg:      cfg,
	}
}

// DispatchSummary reports one drain pass.
type DispatchSummary struct {
	Claimed int
	Sent    int
	Failed  int
}

// Run drains one batch of pending actions. Safe to call concurrently from
// multiple processes: claiming uses row locks, and the dedup key made the
// decision exactly-once before the action ever reached us.
func (d *Dispatcher) Run(ctx context.Context) (DispatchSummary, error) {
	actions, err := d.store.ClaimPendingActions(ctx, d.cfg.BatchSize)
	if err != nil {
		return DispatchSummary{}, fmt.Errorf("claim pending actions: %w", err)
	}

	summary := DispatchSummary{Claimed: len(actions)}
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if d.dispatch(ctx, action) {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, action domain.Action) bool {
	lead, err := d.store.GetLead(ctx, action.LeadID)
	if err != nil {
		d.log.ChannelError(action.LeadID.String(), string(action.Channel), action.Attempts, err)
		_ = d.store.MarkActionFailed(ctx, action.ID, "load lead: "+err.Error())
		return false
	}

	attempts := 0
	op := func() error {
		attempts++
		if err := d.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
		defer cancel()
		err := d.execute(callCtx, action, lead)
		if err == nil {
			return nil
		}
		// Channel clients classify their failures; a rejection the
		// provider will repeat (bad recipient, rejected payload) must not
		// burn the retry budget.
		var domErr *apperr.Error
		if errors.As(err, &domErr) && !apperr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.cfg.MaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		d.log.ChannelError(lead.ID.String(), string(action.Channel), attempts, err)
		d.recordFailure(ctx, action, lead, err)
		return false
	}

	now := time.Now().UTC()
	if err := d.store.MarkActionSent(ctx, action.ID, now); err != nil {
		d.log.DatabaseError("mark action sent", err)
		return false
	}
	d.log.ActionDispatched(lead.ID.String(), string(action.Type), string(action.Channel), action.DedupKey)
	return true
}

func (d *Dispatcher) execute(ctx context.Context, action domain.Action, lead domain.Lead) error {
	switch action.Type {
	case domain.ActionCadenceStep, domain.ActionBookedAssetPack:
		var p CadencePayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		return d.sender.Send(ctx, domain.ChannelEmail, lead.Email, p.TemplateKey, templateVars(lead))

	case domain.ActionAutoReply, domain.ActionBookingLink:
		var p ReplyPayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		return d.sender.Send(ctx, action.Channel, recipient(lead, action.Channel), p.TemplateKey, templateVars(lead))

	case domain.ActionPlaceCall:
		var p CallPayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		_, err := d.dialer.PlaceCall(ctx, lead, p.ScriptKey)
		return err

	case domain.ActionCRMNote:
		var p NotePayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		if lead.CRMExternalID == "" {
			// Intake CRM sync failed earlier; the note has nowhere to go.
			d.log.Warn("dropping CRM note for lead without CRM record", "lead_id", lead.ID.String())
			return nil
		}
		return d.crm.AppendNote(ctx, lead.CRMExternalID, p.Text)

	case domain.ActionCreateTask:
		var p TaskPayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		_, err := d.tasks.CreateTask(ctx, domain.TaskSpec{
			Title:           p.Title,
			Body:            p.Body,
			Priority:        p.Priority,
			DueIn:           time.Duration(p.DueInHours) * time.Hour,
			DurationMinutes: 15,
			Labels:          p.Labels,
		})
		return err

	case domain.ActionNotifyHuman:
		var p NotifyPayload
		if err := json.Unmarshal([]byte(action.Payload), &p); err != nil {
			return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
		}
		return d.notifier.Notify(ctx, p.Text)

	default:
		return backoff.Permanent(fmt.Errorf("unknown action type %q", action.Type))
	}
}

func recipient(lead domain.Lead, channel domain.Channel) string {
	if channel == domain.ChannelSMS || channel == domain.ChannelVoice {
		return lead.Phone
	}
	return lead.Email
}

func templateVars(lead domain.Lead) map[string]string {
	return map[string]string{
		"name":     lead.Name,
		"company":  lead.Company,
		"industry": lead.Industry,
		"category": string(lead.Category),
	}
}

// recordFailure persists the failed action and makes the failure visible:
// a note on the CRM record and a chat alert. Best effort on both; the
// action row itself is the durable record.
func (d *Dispatcher) recordFailure(ctx context.Context, action domain.Action, lead domain.Lead, cause error) {
	if err := d.store.MarkActionFailed(ctx, action.ID, cause.Error()); err != nil {
		d.log.DatabaseError("mark action failed", err)
	}

	if lead.CRMExternalID != "" {
		note := fmt.Sprintf("Delivery failure: %s via %s (%v).", action.Type, action.Channel, cause)
		if err := d.crm.AppendNote(ctx, lead.CRMExternalID, note); err != nil {
			d.log.ChannelError(lead.ID.String(), "crm", 1, err)
		}
	}

	alert := fmt.Sprintf("Failed to deliver %s to %s (%s) after retries: %v", action.Type, lead.Name, lead.Email, cause)
	if err := d.notifier.Notify(ctx, alert); err != nil {
		d.log.ChannelError(lead.ID.String(), "chat", 1, err)
	}
}
