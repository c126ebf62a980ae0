package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/journey/domain"
)

// Memory is an in-process Store with the same transition semantics as the
// Postgres implementation. Used by tests and by local runs without a
// database.
type Memory struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]domain.Lead
	messages map[uuid.UUID][]domain.Message
	actions  map[uuid.UUID][]domain.Action
	order    []uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		leads:    map[uuid.UUID]domain.Lead{},
		messages: map[uuid.UUID][]domain.Message{},
		actions:  map[uuid.UUID][]domain.Action{},
	}
}

func (m *Memory) CreateLead(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	lead.Version = 1
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.PendingActionKeys == nil {
		lead.PendingActionKeys = map[string]struct{}{}
	}
	m.leads[lead.ID] = lead.Clone()
	m.order = append(m.order, lead.ID)
	return lead, nil
}

func (m *Memory) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return m.hydrate(lead), nil
}

func (m *Memory) FindLeadByEmail(_ context.Context, email string) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		lead := m.leads[m.order[i]]
		if strings.EqualFold(lead.Email, email) {
			return m.hydrate(lead), nil
		}
	}
	return domain.Lead{}, ErrNotFound
}

func (m *Memory) FindLeadByPhone(_ context.Context, phone string) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		lead := m.leads[m.order[i]]
		if lead.Phone != "" && lead.Phone == phone {
			return m.hydrate(lead), nil
		}
	}
	return domain.Lead{}, ErrNotFound
}

func (m *Memory) ListNurturing(_ context.Context) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Lead, 0)
	for _, id := range m.order {
		lead := m.leads[id]
		if lead.State == domain.StateNurturing {
			out = append(out, m.hydrate(lead))
		}
	}
	return out, nil
}

// hydrate recomputes the pending-key view from the action log. Caller
// holds the lock.
func (m *Memory) hydrate(lead domain.Lead) domain.Lead {
	out := lead.Clone()
	out.PendingActionKeys = map[string]struct{}{}
	for _, a := range m.actions[lead.ID] {
		if a.Status == domain.ActionPending {
			out.PendingActionKeys[a.DedupKey] = struct{}{}
		}
	}
	return out
}

func (m *Memory) ApplyTransition(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.leads[t.Lead.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != t.Lead.Version {
		return ErrVersionConflict
	}

	for _, msg := range t.Messages {
		if msg.Direction == domain.DirectionInbound && m.messageExists(msg.LeadID, msg.DedupKey) {
			return ErrDuplicateMessage
		}
	}

	now := time.Now().UTC()
	next := t.Lead.Clone()
	next.Version = current.Version + 1
	next.UpdatedAt = now
	m.leads[next.ID] = next

	for _, msg := range t.Messages {
		if m.messageExists(msg.LeadID, msg.DedupKey) {
			continue
		}
		msg.CreatedAt = now
		m.messages[msg.LeadID] = append(m.messages[msg.LeadID], msg)
	}

	for _, a := range t.Actions {
		if m.actionExists(a.LeadID, a.DedupKey) {
			continue
		}
		a.CreatedAt = now
		a.UpdatedAt = now
		m.actions[a.LeadID] = append(m.actions[a.LeadID], a)
	}

	if t.SkipPending {
		list := m.actions[next.ID]
		for i := range list {
			if list[i].Status == domain.ActionPending &&
				(list[i].Type == domain.ActionCadenceStep || list[i].Type == domain.ActionPlaceCall) {
				list[i].Status = domain.ActionSkipped
				list[i].UpdatedAt = now
			}
		}
	}

	return nil
}

func (m *Memory) messageExists(leadID uuid.UUID, dedupKey string) bool {
	for _, msg := range m.messages[leadID] {
		if msg.DedupKey == dedupKey {
			return true
		}
	}
	return false
}

func (m *Memory) actionExists(leadID uuid.UUID, dedupKey string) bool {
	for _, a := range m.actions[leadID] {
		if a.DedupKey == dedupKey {
			return true
		}
	}
	return false
}

func (m *Memory) ClaimPendingActions(_ context.Context, limit int) ([]domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit < 1 {
		limit = 50
	}

	var claimed []domain.Action
	for _, id := range m.order {
		list := m.actions[id]
		for i := range list {
			if list[i].Status != domain.ActionPending {
				continue
			}
			list[i].Attempts++
			claimed = append(claimed, list[i])
			if len(claimed) >= limit {
				break
			}
		}
		if len(claimed) >= limit {
			break
		}
	}
	sort.SliceStable(claimed, func(i, j int) bool {
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})
	return claimed, nil
}

func (m *Memory) MarkActionSent(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.updateAction(id, func(a *domain.Action) {
		a.Status = domain.ActionSent
		a.DispatchedAt = &at
		a.LastError = ""
	})
}

func (m *Memory) MarkActionFailed(_ context.Context, id uuid.UUID, lastError string) error {
	return m.updateAction(id, func(a *domain.Action) {
		a.Status = domain.ActionFailed
		a.LastError = lastError
	})
}

func (m *Memory) updateAction(id uuid.UUID, fn func(*domain.Action)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for leadID := range m.actions {
		list := m.actions[leadID]
		for i := range list {
			if list[i].ID == id {
				fn(&list[i])
				list[i].UpdatedAt = time.Now().UTC()
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *Memory) ListMessages(_ context.Context, leadID uuid.UUID) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Message, len(m.messages[leadID]))
	copy(out, m.messages[leadID])
	return out, nil
}

// Actions returns a copy of the action log for a lead. Test helper.
func (m *Memory) Actions(leadID uuid.UUID) []domain.Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Action, len(m.actions[leadID]))
	copy(out, m.actions[leadID])
	return out
}
