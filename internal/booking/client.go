// Package booking checks a Calendly-compatible scheduling API for
// confirmed meetings.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *logger.Logger
}

// NewClient returns nil when no token is configured; lookups then report
// no booking, which keeps the cadence running.
func NewClient(cfg config.BookingConfig, log *logger.Logger) *Client {
	if cfg.GetBookingAPIToken() == "" {
		return nil
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetBookingBaseURL(), "/"),
		apiToken: cfg.GetBookingAPIToken(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

type eventsResponse struct {
	Collection []struct {
		StartTime time.Time `json:"start_time"`
		CreatedAt time.Time `json:"created_at"`
		Status    string    `json:"status"`
	} `json:"collection"`
}

// HasBooking reports whether the email has an active scheduled event and
// when it was confirmed.
func (c *Client) HasBooking(ctx context.Context, email string) (bool, time.Time, error) {
	if c == nil || email == "" {
		return false, time.Time{}, nil
	}

	q := url.Values{}
	q.Set("invitee_email", email)
	q.Set("status", "active")
	q.Set("count", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scheduled_events?"+q.Encode(), nil)
	if err != nil {
		return false, time.Time{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("booking lookup failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return false, time.Time{}, fmt.Errorf("booking service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, time.Time{}, fmt.Errorf("decode booking response: %w", err)
	}
	if len(out.Collection) == 0 {
		return false, time.Time{}, nil
	}

	confirmedAt := out.Collection[0].CreatedAt
	if confirmedAt.IsZero() {
		confirmedAt = out.Collection[0].StartTime
	}
	c.log.Info("booking found", "email", email, "confirmed_at", confirmedAt)
	return true, confirmedAt, nil
}
