package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/booking"
	"leadflow_backend/internal/chat"
	"leadflow_backend/internal/classifier"
	"leadflow_backend/internal/conversation"
	"leadflow_backend/internal/crm"
	"leadflow_backend/internal/delivery"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/intake"
	"leadflow_backend/internal/journey"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/sms"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/internal/voice"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"
)

const serviceWorkers = 8

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "tick_interval", cfg.TickInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	journeys, dispatcher := buildJourneyService(ctx, cfg, pool, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, journeys, dispatcher, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	if source := intake.NewClient(cfg, log); source != nil {
		worker.SetSubmissionSource(source)
		log.Info("intake catch-up enabled")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() {
		_ = client.Close()
	}()

	go client.RunTickLoop(ctx, cfg.TickInterval, log)

	worker.Run(ctx)
	log.Info("scheduler stopped")
}

// buildJourneyService wires the journey orchestrator with every
// configured integration, the same composition cmd/api uses.
func buildJourneyService(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) (*journey.Service, *journey.Dispatcher) {
	store := repository.NewPostgres(pool)
	engine := journey.NewEngine(nil)

	var ai *genai.Client
	if cfg.IsAIEnabled() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GetGeminiAPIKey(),
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Error("failed to initialize AI client, classification degrades", "error", err)
		} else {
			ai = client
		}
	}

	intakeClassifier := classifier.New(cfg, ai, cfg.GetGeminiModel(), log)
	intents := conversation.NewAnalyzer(ai, cfg.GetGeminiModel(), log)

	crmClient := crm.NewClient(cfg, log)
	bookingClient := booking.NewClient(cfg, log)
	emailSender := email.NewSender(cfg, log)
	smsClient := sms.NewClient(cfg, log)
	voiceClient := voice.NewClient(cfg, log)
	notifier := chat.NewNotifier(cfg, log)
	taskBoard := tasks.NewClient(cfg, log)

	chat.NewEventRelay(notifier, log).Register(eventBus)

	sender := delivery.NewRouter(emailSender, smsClient, cfg.GetBookingLink())
	dispatcher := journey.NewDispatcher(store, sender, voiceClient, crmClient, taskBoard, notifier, log, journey.DispatcherConfig{})

	service := journey.NewService(store, engine, intakeClassifier, intents, crmClient, bookingClient, dispatcher, notifier, eventBus, log, serviceWorkers)
	return service, dispatcher
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
