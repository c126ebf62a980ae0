package journey

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// Shared test doubles for the journey service, dispatcher and engine tests.

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeClassifier struct {
	category  domain.Category
	ambiguous bool
	err       error
}

func (f *fakeClassifier) Classify(context.Context, domain.RawSubmission) (domain.Category, bool, error) {
	return f.category, f.ambiguous, f.err
}

type fakeIntents struct {
	raw string
	err error
}

func (f *fakeIntents) ClassifyIntent(context.Context, string, domain.Lead) (string, error) {
	return f.raw, f.err
}

type fakeCRM struct {
	mu    sync.Mutex
	id    string
	err   error
	notes []string
}

func (f *fakeCRM) UpsertLead(context.Context, domain.Lead) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.id == "" {
		return "crm-1", nil
	}
	return f.id, nil
}

func (f *fakeCRM) AppendNote(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, text)
	return nil
}

func (f *fakeCRM) Notes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notes))
	copy(out, f.notes)
	return out
}

type fakeBooking struct {
	mu     sync.Mutex
	booked bool
	at     time.Time
	err    error
}

func (f *fakeBooking) HasBooking(context.Context, string) (bool, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booked, f.at, f.err
}

func (f *fakeBooking) SetBooked(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = true
	f.at = at
}

type sentMessage struct {
	Channel     domain.Channel
	To          string
	TemplateKey string
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	attempts int
	err      error
}

func (f *fakeSender) Send(_ context.Context, channel domain.Channel, to, templateKey string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Channel: channel, To: to, TemplateKey: templateKey})
	return nil
}

func (f *fakeSender) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

type fakeDialer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDialer) PlaceCall(_ context.Context, lead domain.Lead, scriptKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scriptKey)
	return "call-1", nil
}

func (f *fakeDialer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeTasks struct {
	mu    sync.Mutex
	specs []domain.TaskSpec
	err   error
}

func (f *fakeTasks) CreateTask(_ context.Context, spec domain.TaskSpec) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	return "task-1", nil
}

func (f *fakeTasks) Created() []domain.TaskSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TaskSpec, len(f.specs))
	copy(out, f.specs)
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeNotifier) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	copy(out, f.msgs)
	return out
}

type testEnv struct {
	clock      *testClock
	store      *repository.Memory
	engine     *Engine
	classifier *fakeClassifier
	intents    *fakeIntents
	crm        *fakeCRM
	booking    *fakeBooking
	sender     *fakeSender
	dialer     *fakeDialer
	tasks      *fakeTasks
	notifier   *fakeNotifier
	service    *Service
	dispatcher *Dispatcher
}

func newTestEnv(start time.Time) *testEnv {
	log := logger.New("development")
	clock := newTestClock(start)
	store := repository.NewMemory()
	engine := NewEngine(clock.Now)

	env := &testEnv{
		clock:      clock,
		store:      store,
		engine:     engine,
		classifier: &fakeClassifier{category: domain.CategoryWholesale},
		intents:    &fakeIntents{raw: string(domain.IntentUnclear)},
		crm:        &fakeCRM{},
		booking:    &fakeBooking{},
		sender:     &fakeSender{},
		dialer:     &fakeDialer{},
		tasks:      &fakeTasks{},
		notifier:   &fakeNotifier{},
	}

	env.dispatcher = NewDispatcher(store, env.sender, env.dialer, env.crm, env.tasks, env.notifier, log, DispatcherConfig{
		CallTimeout: time.Second,
		MaxRetries:  1,
		SendsPerSec: 1000,
		BatchSize:   100,
	})
	env.service = NewService(store, engine, env.classifier, env.intents, env.crm, env.booking,
		env.dispatcher, env.notifier, events.NewInMemoryBus(log), log, 4)
	return env
}

func (e *testEnv) sentTemplates() []string {
	var out []string
	for _, m := range e.sender.Sent() {
		out = append(out, m.TemplateKey)
	}
	return out
}

var errUnreachable = errors.New("collaborator unreachable")
