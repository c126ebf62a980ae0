package delivery

import (
	"context"
	"strings"
	"testing"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
)

type captureEmail struct {
	to, key string
}

func (c *captureEmail) Send(_ context.Context, to, templateKey string, _ map[string]string) error {
	c.to, c.key = to, templateKey
	return nil
}

type captureText struct {
	to, body string
}

func (c *captureText) Send(_ context.Context, to, body string) error {
	c.to, c.body = to, body
	return nil
}

func TestRouterRoutesByChannel(t *testing.T) {
	email := &captureEmail{}
	text := &captureText{}
	r := NewRouter(email, text, "https://cal.example.com/team")
	ctx := context.Background()

	if err := r.Send(ctx, domain.ChannelEmail, "a@b.com", "cadence_step_2", nil); err != nil {
		t.Fatal(err)
	}
	if email.to != "a@b.com" || email.key != "cadence_step_2" {
		t.Errorf("email call = %q %q", email.to, email.key)
	}

	if err := r.Send(ctx, domain.ChannelSMS, "+12125550123", "booking_link", nil); err != nil {
		t.Fatal(err)
	}
	if text.to != "+12125550123" {
		t.Errorf("sms to = %q", text.to)
	}
	if !strings.Contains(text.body, "https://cal.example.com/team") {
		t.Errorf("booking link missing from SMS body: %q", text.body)
	}
}

// An unroutable send is a caller bug the provider would reject forever;
// the dispatcher reads the kind to fail it on the first attempt.
func TestRouterRejectsUnroutableSends(t *testing.T) {
	r := NewRouter(&captureEmail{}, &captureText{}, "")
	ctx := context.Background()

	err := r.Send(ctx, domain.ChannelSMS, "+12125550123", "cadence_step_2", nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Errorf("cadence step over SMS: kind = %v, want bad request", apperr.GetKind(err))
	}
	err = r.Send(ctx, domain.ChannelVoice, "+12125550123", "anything", nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Errorf("voice send: kind = %v, want bad request", apperr.GetKind(err))
	}
}
