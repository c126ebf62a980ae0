package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/journey/domain"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const leadColumns = `id, name, company, industry, goals, email, phone,
	category, priority, state, cadence_step, journey_started_at, last_transition_at,
	booking_confirmed, booking_confirmed_at, escalation_reason, escalated_at,
	crm_external_id, unclear_replies, flagged_for_review, version, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var category, priority, state string
	err := row.Scan(
		&l.ID, &l.Name, &l.Company, &l.Industry, &l.Goals, &l.Email, &l.Phone,
		&category, &priority, &state, &l.CadenceStep, &l.JourneyStartedAt, &l.LastTransitionAt,
		&l.BookingConfirmed, &l.BookingConfirmedAt, &l.EscalationReason, &l.EscalatedAt,
		&l.CRMExternalID, &l.UnclearReplies, &l.FlaggedForReview, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	l.Category = domain.Category(category)
	l.Priority = domain.Priority(priority)
	l.State = domain.JourneyState(state)
	return l, nil
}

func (r *Postgres) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, name, company, industry, goals, email, phone,
			category, priority, state, cadence_step, journey_started_at, last_transition_at,
			booking_confirmed, booking_confirmed_at, escalation_reason, escalated_at,
			crm_external_id, unclear_replies, flagged_for_review, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1)
		RETURNING `+leadColumns,
		lead.ID, lead.Name, lead.Company, lead.Industry, lead.Goals, lead.Email, lead.Phone,
		string(lead.Category), string(lead.Priority), string(lead.State), lead.CadenceStep,
		lead.JourneyStartedAt, lead.LastTransitionAt,
		lead.BookingConfirmed, lead.BookingConfirmedAt, lead.EscalationReason, lead.EscalatedAt,
		lead.CRMExternalID, lead.UnclearReplies, lead.FlaggedForReview,
	)
	created, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}
	created.PendingActionKeys = map[string]struct{}{}
	return created, nil
}

func (r *Postgres) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return r.loadLead(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
}

func (r *Postgres) FindLeadByEmail(ctx context.Context, email string) (domain.Lead, error) {
	return r.loadLead(ctx, `SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1) ORDER BY created_at DESC LIMIT 1`, email)
}

func (r *Postgres) FindLeadByPhone(ctx context.Context, phone string) (domain.Lead, error) {
	return r.loadLead(ctx, `SELECT `+leadColumns+` FROM leads WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`, phone)
}

func (r *Postgres) loadLead(ctx context.Context, query string, arg any) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, ErrNotFound
		}
		return domain.Lead{}, err
	}
	if err := r.attachPendingKeys(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// attachPendingKeys hydrates the in-memory view of not-yet-dispatched
// action dedup keys the engine consults when deciding new actions.
func (r *Postgres) attachPendingKeys(ctx context.Context, lead *domain.Lead) error {
	rows, err := r.pool.Query(ctx,
		`SELECT dedup_key FROM actions WHERE lead_id = $1 AND status = 'pending'`, lead.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	lead.PendingActionKeys = map[string]struct{}{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		lead.PendingActionKeys[key] = struct{}{}
	}
	return rows.Err()
}

func (r *Postgres) ListNurturing(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE state = 'NURTURING' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range leads {
		if err := r.attachPendingKeys(ctx, &leads[i]); err != nil {
			return nil, err
		}
	}
	return leads, nil
}

func (r *Postgres) ApplyTransition(ctx context.Context, t Transition) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l := t.Lead
	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			name = $2, company = $3, industry = $4, goals = $5, email = $6, phone = $7,
			category = $8, priority = $9, state = $10, cadence_step = $11,
			journey_started_at = $12, last_transition_at = $13,
			booking_confirmed = $14, booking_confirmed_at = $15,
			escalation_reason = $16, escalated_at = $17,
			crm_external_id = $18, unclear_replies = $19, flagged_for_review = $20,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $21`,
		l.ID, l.Name, l.Company, l.Industry, l.Goals, l.Email, l.Phone,
		string(l.Category), string(l.Priority), string(l.State), l.CadenceStep,
		l.JourneyStartedAt, l.LastTransitionAt,
		l.BookingConfirmed, l.BookingConfirmedAt,
		l.EscalationReason, l.EscalatedAt,
		l.CRMExternalID, l.UnclearReplies, l.FlaggedForReview,
		l.Version,
	)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, l.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	for _, m := range t.Messages {
		tag, err := tx.Exec(ctx, `
			INSERT INTO messages (id, lead_id, channel, direction, body, intent, dedup_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (lead_id, dedup_key) DO NOTHING`,
			m.ID, m.LeadID, string(m.Channel), string(m.Direction), m.Body, intentString(m.Intent), m.DedupKey,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		// An inbound message losing the dedup race means this delivery was
		// already processed end to end; the whole transition must not apply.
		if tag.RowsAffected() == 0 && m.Direction == domain.DirectionInbound {
			return ErrDuplicateMessage
		}
	}

	for _, a := range t.Actions {
		_, err := tx.Exec(ctx, `
			INSERT INTO actions (id, lead_id, type, channel, status, dedup_key, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (lead_id, dedup_key) DO NOTHING`,
			a.ID, a.LeadID, string(a.Type), string(a.Channel), string(a.Status), a.DedupKey, a.Payload,
		)
		if err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
	}

	if t.SkipPending {
		_, err := tx.Exec(ctx, `
			UPDATE actions SET status = 'skipped', updated_at = now()
			WHERE lead_id = $1 AND status = 'pending' AND type IN ('cadence_step', 'place_call')`,
			l.ID,
		)
		if err != nil {
			return fmt.Errorf("skip pending actions: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO journey_transitions (lead_id, from_state, to_state, event)
		VALUES ($1, $2, $3, $4)`,
		l.ID, string(t.FromState), string(l.State), t.Event,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	return tx.Commit(ctx)
}

func intentString(i *domain.Intent) *string {
	if i == nil {
		return nil
	}
	s := string(*i)
	return &s
}

func (r *Postgres) ClaimPendingActions(ctx context.Context, limit int) ([]domain.Action, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM actions
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE actions a
	SET attempts = a.attempts + 1, updated_at = now()
	FROM cte
	WHERE a.id = cte.id
	RETURNING a.id, a.lead_id, a.type, a.channel, a.status, a.dedup_key, a.payload, a.attempts, a.last_error, a.created_at, a.updated_at, a.dispatched_at`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return actions, nil
}

func scanAction(row pgx.Row) (domain.Action, error) {
	var a domain.Action
	var typ, channel, status string
	var lastError *string
	err := row.Scan(&a.ID, &a.LeadID, &typ, &channel, &status, &a.DedupKey, &a.Payload,
		&a.Attempts, &lastError, &a.CreatedAt, &a.UpdatedAt, &a.DispatchedAt)
	if err != nil {
		return domain.Action{}, err
	}
	a.Type = domain.ActionType(typ)
	a.Channel = domain.Channel(channel)
	a.Status = domain.ActionStatus(status)
	if lastError != nil {
		a.LastError = *lastError
	}
	return a, nil
}

func (r *Postgres) MarkActionSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = 'sent', dispatched_at = $2, last_error = NULL, updated_at = now() WHERE id = $1`,
		id, at,
	)
	return err
}

func (r *Postgres) MarkActionFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE actions SET status = 'failed', last_error = $2, updated_at = now() WHERE id = $1`,
		id, lastError,
	)
	return err
}

func (r *Postgres) ListMessages(ctx context.Context, leadID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, channel, direction, body, intent, dedup_key, created_at
		FROM messages WHERE lead_id = $1 ORDER BY created_at ASC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var channel, direction string
		var intent *string
		if err := rows.Scan(&m.ID, &m.LeadID, &channel, &direction, &m.Body, &intent, &m.DedupKey, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Channel = domain.Channel(channel)
		m.Direction = domain.Direction(direction)
		if intent != nil {
			i := domain.Intent(*intent)
			m.Intent = &i
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
