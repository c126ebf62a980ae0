// Package email delivers journey emails over SMTP. Template keys map to
// a subject and body copy; rendering shares one base layout.
package email

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

type Sender struct {
	host        string
	port        int
	username    string
	password    string
	fromName    string
	fromEmail   string
	replyTo     string
	bookingLink string
	enabled     bool
	log         *logger.Logger
}

func NewSender(cfg config.EmailConfig, log *logger.Logger) *Sender {
	return &Sender{
		host:        cfg.GetSMTPHost(),
		port:        cfg.GetSMTPPort(),
		username:    cfg.GetSMTPUsername(),
		password:    cfg.GetSMTPPassword(),
		fromName:    cfg.GetEmailFromName(),
		fromEmail:   cfg.GetEmailFromAddress(),
		replyTo:     cfg.GetEmailReplyTo(),
		bookingLink: cfg.GetBookingLink(),
		enabled:     cfg.GetEmailEnabled(),
		log:         log,
	}
}

// Send renders the template for the given key and delivers it. Unknown
// keys are an error: a typo in a template key must surface, not send an
// empty email.
func (s *Sender) Send(ctx context.Context, to, templateKey string, vars map[string]string) error {
	subject, ok := subjects[templateKey]
	if !ok {
		subject, ok = reportSubjects[templateKey]
	}
	if !ok {
		return fmt.Errorf("unknown email template key %q", templateKey)
	}

	body, ok := bodyCopy[templateKey]
	if !ok {
		if report, found := reportBody(templateKey, vars["category"]); found {
			body = report
		} else {
			body = "We wanted to follow up on your interest. Reply any time, or book a call below."
		}
	}

	data := emailData{
		Title:       subject,
		Heading:     subject,
		Name:        vars["name"],
		Company:     vars["company"],
		Body:        template.HTML(template.HTMLEscapeString(body)),
		CTALabel:    "Book a call",
		CTAURL:      s.bookingLink,
		TemplateKey: templateKey,
	}

	html, err := renderEmail("message.html", data)
	if err != nil {
		return err
	}

	if !s.enabled {
		s.log.Info("email sending disabled, skipping", "to", to, "template", templateKey)
		return nil
	}
	return s.deliver(ctx, to, subject, html)
}

func (s *Sender) deliver(ctx context.Context, to, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	if s.replyTo != "" {
		if err := msg.ReplyTo(s.replyTo); err != nil {
			return fmt.Errorf("smtp reply-to: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
