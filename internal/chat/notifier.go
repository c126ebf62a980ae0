// Package chat delivers human-facing alerts to a Slack channel.
package chat

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

type Notifier struct {
	client  *slack.Client
	channel string
	log     *logger.Logger
}

// NewNotifier returns nil when no bot token is configured; notifications
// are then dropped.
func NewNotifier(cfg config.ChatConfig, log *logger.Logger) *Notifier {
	if cfg.GetSlackBotToken() == "" {
		return nil
	}
	return &Notifier{
		client:  slack.New(cfg.GetSlackBotToken()),
		channel: cfg.GetSlackChannel(),
		log:     log,
	}
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	n.log.Debug("chat notification sent", "channel", n.channel)
	return nil
}
