package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// JourneyTicker is implemented by anything that can request a journey
// tick, so callers do not need the full asynq client.
type JourneyTicker interface {
	EnqueueJourneyTick(ctx context.Context, payload JourneyTickPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueJourneyTick schedules one pass over all nurturing leads. Ticks
// are unique per payload for a minute, so overlapping schedulers or a
// manual trigger racing the interval collapse into a single run.
func (c *Client) EnqueueJourneyTick(ctx context.Context, payload JourneyTickPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewJourneyTickTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(time.Minute))
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}

// EnqueueDispatchDrain schedules a retry pass over pending actions.
func (c *Client) EnqueueDispatchDrain(ctx context.Context, payload DispatchDrainPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewDispatchDrainTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(time.Minute))
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}

// RunTickLoop enqueues an immediate journey tick and then one per
// interval until the context is canceled. Blocks until done.
func (c *Client) RunTickLoop(ctx context.Context, interval time.Duration, log *logger.Logger) {
	payload := JourneyTickPayload{TriggeredBy: "interval"}
	if err := c.EnqueueJourneyTick(ctx, payload); err != nil {
		log.Error("failed to enqueue journey tick", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.EnqueueJourneyTick(ctx, payload); err != nil {
				log.Error("failed to enqueue journey tick", "error", err)
			}
		}
	}
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
