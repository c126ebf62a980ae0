// Package sms sends text messages through a Twilio-compatible REST API.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
)

const defaultBaseURL = "https://api.twilio.com"

type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	log        *logger.Logger
}

// NewClient returns nil when no account is configured; a nil client
// silently drops sends so SMS stays optional in development.
func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if cfg.GetSMSAccountSID() == "" {
		return nil
	}
	return &Client{
		baseURL:    defaultBaseURL,
		accountSID: cfg.GetSMSAccountSID(),
		authToken:  cfg.GetSMSAuthToken(),
		from:       cfg.GetSMSFromNumber(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (c *Client) Send(ctx context.Context, to, body string) error {
	if c == nil {
		return nil
	}

	form := url.Values{}
	form.Set("To", phone.NormalizeE164(to))
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return classifyStatus(resp.StatusCode, fmt.Sprintf("sms service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	c.log.Info("sms sent", "to", phone.NormalizeE164(to))
	return nil
}

// classifyStatus types a provider failure: throttling and outages are
// retryable, anything else 4xx is a rejection that will not change on
// retry.
func classifyStatus(status int, msg string) error {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return apperr.Unavailable(msg)
	}
	return apperr.BadRequest(msg)
}
