// Command integrations is the operator CLI for the journey service:
// run a tick by hand, replay a submission, flip a lead's state, or
// probe every configured integration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
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
	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/internal/journey/repository"
	"leadflow_backend/internal/sms"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/internal/voice"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"
)

const usage = `usage: integrations <command> [flags]

commands:
  run                      run one scheduled pass over nurturing leads
  drain                    retry pending outbound actions
  submit -file <path>      process a submission from a JSON file
  catch-up                 pull and process missed form submissions
  override -lead <id> -state <state>
                           move a lead to an operator-chosen state
  check                    probe every configured integration
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	journeys := buildJourneyService(ctx, cfg, pool, events.NewInMemoryBus(log), log)

	switch os.Args[1] {
	case "run":
		cmdRun(ctx, journeys)
	case "drain":
		cmdDrain(ctx, journeys)
	case "submit":
		cmdSubmit(ctx, journeys, os.Args[2:])
	case "catch-up":
		cmdCatchUp(ctx, cfg, journeys, log)
	case "override":
		cmdOverride(ctx, journeys, os.Args[2:])
	case "check":
		cmdCheck(ctx, journeys)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func cmdRun(ctx context.Context, journeys *journeyDeps) {
	summary, err := journeys.service.ScheduledRun(ctx, time.Now().UTC())
	if err != nil {
		fatal("scheduled run failed", err)
	}
	fmt.Printf("processed=%d stepped=%d booked=%d escalated=%d errored=%d dispatched=%d\n",
		summary.Processed, summary.Stepped, summary.Booked, summary.Escalated, summary.Errored, summary.Dispatch.Sent)
}

func cmdDrain(ctx context.Context, journeys *journeyDeps) {
	summary, err := journeys.dispatcher.Run(ctx)
	if err != nil {
		fatal("dispatch drain failed", err)
	}
	fmt.Printf("claimed=%d sent=%d failed=%d\n", summary.Claimed, summary.Sent, summary.Failed)
}

func cmdSubmit(ctx context.Context, journeys *journeyDeps, args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	file := fs.String("file", "", "path to a JSON submission")
	_ = fs.Parse(args)
	if *file == "" {
		fatal("submit requires -file", nil)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal("read submission file", err)
	}
	var sub domain.RawSubmission
	if err := json.Unmarshal(data, &sub); err != nil {
		fatal("parse submission file", err)
	}

	lead, err := journeys.service.ProcessSubmission(ctx, sub)
	if err != nil {
		fatal("process submission", err)
	}
	fmt.Printf("lead=%s state=%s category=%s priority=%s\n", lead.ID, lead.State, lead.Category, lead.Priority)
}

func cmdCatchUp(ctx context.Context, cfg *config.Config, journeys *journeyDeps, log *logger.Logger) {
	source := intake.NewClient(cfg, log)
	if source == nil {
		fatal("catch-up requires INTAKE_API_TOKEN", nil)
	}
	processed, err := journeys.service.CatchUpSubmissions(ctx, source)
	if err != nil {
		fatal("catch-up failed", err)
	}
	fmt.Printf("processed=%d\n", processed)
}

func cmdOverride(ctx context.Context, journeys *journeyDeps, args []string) {
	fs := flag.NewFlagSet("override", flag.ExitOnError)
	leadFlag := fs.String("lead", "", "lead id")
	stateFlag := fs.String("state", "", "target journey state")
	_ = fs.Parse(args)

	leadID, err := uuid.Parse(*leadFlag)
	if err != nil {
		fatal("override requires a valid -lead id", err)
	}

	lead, err := journeys.service.HandleHumanOverride(ctx, leadID, domain.JourneyState(*stateFlag))
	if err != nil {
		fatal("override failed", err)
	}
	fmt.Printf("lead=%s state=%s\n", lead.ID, lead.State)
}

func cmdCheck(ctx context.Context, journeys *journeyDeps) {
	failed := false
	for _, status := range journeys.service.TestIntegrations(ctx) {
		if status.Err != nil {
			failed = true
			fmt.Printf("%-12s FAIL  %v\n", status.Name, status.Err)
		} else {
			fmt.Printf("%-12s OK\n", status.Name)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}

type journeyDeps struct {
	service    *journey.Service
	dispatcher *journey.Dispatcher
}

// buildJourneyService wires the journey orchestrator the same way the
// server does, with nil clients for anything unconfigured.
func buildJourneyService(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *journeyDeps {
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

	sender := delivery.NewRouter(emailSender, smsClient, cfg.GetBookingLink())
	dispatcher := journey.NewDispatcher(store, sender, voiceClient, crmClient, taskBoard, notifier, log, journey.DispatcherConfig{})

	service := journey.NewService(store, engine, intakeClassifier, intents, crmClient, bookingClient, dispatcher, notifier, eventBus, log, 4)
	return &journeyDeps{service: service, dispatcher: dispatcher}
}
