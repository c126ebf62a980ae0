// Package delivery routes outbound messages to the channel-specific
// clients behind one send interface.
package delivery

import (
	"context"
	"fmt"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
)

// EmailSender delivers a templated email.
type EmailSender interface {
	Send(ctx context.Context, to, templateKey string, vars map[string]string) error
}

// TextSender delivers a plain-text message (SMS).
type TextSender interface {
	Send(ctx context.Context, to, body string) error
}

// Router implements the journey's message-sending port by dispatching on
// channel. SMS bodies come from a compact text copy table; email rendering
// lives with the email client.
type Router struct {
	email       EmailSender
	sms         TextSender
	bookingLink string
}

func NewRouter(email EmailSender, sms TextSender, bookingLink string) *Router {
	return &Router{email: email, sms: sms, bookingLink: bookingLink}
}

// smsCopy is the plain-text rendering of the reply template keys. Cadence
// steps are email-only; only reactive replies go back over SMS.
var smsCopy = map[string]string{
	"auto_reply_pricing_question": "Thanks for asking! Pricing depends on volume; reply BOOK and we'll send a call link with exact numbers.",
	"auto_reply_objection":        "Totally fair. Happy to talk it through, reply BOOK for a quick call.",
	"auto_reply_unclear":          "Sorry, we didn't quite catch that. Could you say a bit more?",
	"booking_link":                "Here's our calendar, pick any slot that suits you: %s",
}

func (r *Router) Send(ctx context.Context, channel domain.Channel, to, templateKey string, vars map[string]string) error {
	switch channel {
	case domain.ChannelEmail:
		return r.email.Send(ctx, to, templateKey, vars)
	case domain.ChannelSMS:
		body, ok := smsCopy[templateKey]
		if !ok {
			return apperr.BadRequest(fmt.Sprintf("no SMS copy for template key %q", templateKey))
		}
		if templateKey == "booking_link" {
			body = fmt.Sprintf(body, r.bookingLink)
		}
		return r.sms.Send(ctx, to, body)
	default:
		return apperr.BadRequest(fmt.Sprintf("channel %q has no outbound sender", channel))
	}
}
