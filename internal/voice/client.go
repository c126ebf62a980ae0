// Package voice places outbound calls through a hosted voice-agent API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
)

const defaultBaseURL = "https://api.vapi.ai"

type Client struct {
	baseURL       string
	apiKey        string
	phoneNumberID string
	http          *http.Client
	log           *logger.Logger
}

// NewClient returns nil when no API key is configured; a nil client skips
// dialing so voice follow-ups stay optional.
func NewClient(cfg config.VoiceConfig, log *logger.Logger) *Client {
	if cfg.GetVoiceAPIKey() == "" {
		return nil
	}
	return &Client{
		baseURL:       defaultBaseURL,
		apiKey:        cfg.GetVoiceAPIKey(),
		phoneNumberID: cfg.GetVoicePhoneNumberID(),
		http:          &http.Client{Timeout: 15 * time.Second},
		log:           log,
	}
}

type callRequest struct {
	PhoneNumberID string            `json:"phoneNumberId"`
	Customer      callCustomer      `json:"customer"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type callCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type callResponse struct {
	ID string `json:"id"`
}

func (c *Client) PlaceCall(ctx context.Context, lead domain.Lead, scriptKey string) (string, error) {
	if c == nil {
		return "", nil
	}

	payload := callRequest{
		PhoneNumberID: c.phoneNumberID,
		Customer: callCustomer{
			Number: phone.NormalizeE164(lead.Phone),
			Name:   lead.Name,
		},
		Metadata: map[string]string{
			"leadId":    lead.ID.String(),
			"scriptKey": scriptKey,
			"category":  string(lead.Category),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal call payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("voice service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", apperr.Unavailable(msg)
		}
		return "", apperr.BadRequest(msg)
	}

	var out callResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode call response: %w", err)
	}

	c.log.Info("outbound call placed", "lead_id", lead.ID.String(), "call_id", out.ID, "script", scriptKey)
	return out.ID, nil
}
