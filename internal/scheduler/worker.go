package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/journey"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	journeys   *journey.Service
	dispatcher *journey.Dispatcher
	source     journey.SubmissionSource
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, journeys *journey.Service, dispatcher *journey.Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		journeys:   journeys,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskJourneyTick, w.handleJourneyTick)
	mux.HandleFunc(TaskDispatchDrain, w.handleDispatchDrain)

	return w, nil
}

// SetSubmissionSource enables intake catch-up during ticks. Optional;
// without a source, ticks only advance existing journeys.
func (w *Worker) SetSubmissionSource(source journey.SubmissionSource) {
	w.source = source
}

func (w *Worker) handleJourneyTick(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJourneyTickPayload(task)
	if err != nil {
		return err
	}

	if w.source != nil {
		caught, err := w.journeys.CatchUpSubmissions(ctx, w.source)
		if err != nil {
			w.log.Warn("intake catch-up failed, tick continues", "error", err)
		} else if caught > 0 {
			w.log.Info("intake catch-up processed submissions", "count", caught)
		}
	}

	summary, err := w.journeys.ScheduledRun(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	w.log.Info("journey tick complete",
		"triggered_by", payload.TriggeredBy,
		"processed", summary.Processed,
		"stepped", summary.Stepped,
		"booked", summary.Booked,
		"escalated", summary.Escalated,
		"errored", summary.Errored,
		"dispatched", summary.Dispatch.Sent,
	)
	return nil
}

func (w *Worker) handleDispatchDrain(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDispatchDrainPayload(task)
	if err != nil {
		return err
	}

	summary, err := w.dispatcher.Run(ctx)
	if err != nil {
		return err
	}

	w.log.Info("dispatch drain complete",
		"triggered_by", payload.TriggeredBy,
		"claimed", summary.Claimed,
		"sent", summary.Sent,
		"failed", summary.Failed,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
