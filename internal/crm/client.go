// Package crm mirrors leads and activity notes into a Close-compatible
// CRM. Upserts are keyed on the lead's email so replayed intakes resolve
// to the same CRM record.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when no API key is configured; leads then proceed
// without a CRM record and notes are dropped with a log line.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	if cfg.GetCRMAPIKey() == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiKey:  cfg.GetCRMAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type leadRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type leadSearchResponse struct {
	Data []leadRecord `json:"data"`
}

type createLeadRequest struct {
	Name      string            `json:"name"`
	Contacts  []contactPayload  `json:"contacts"`
	Custom    map[string]string `json:"custom,omitempty"`
	StatusRef string            `json:"status,omitempty"`
}

type contactPayload struct {
	Name   string       `json:"name"`
	Emails []typedValue `json:"emails,omitempty"`
	Phones []typedValue `json:"phones,omitempty"`
}

type typedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UpsertLead finds the CRM record for the lead's email or creates one,
// returning its external id.
func (c *Client) UpsertLead(ctx context.Context, lead domain.Lead) (string, error) {
	if c == nil {
		return "", nil
	}

	if id, err := c.findByEmail(ctx, lead.Email); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	name := lead.Name
	if lead.Company != "" {
		name = fmt.Sprintf("%s (%s)", lead.Name, lead.Company)
	}
	payload := createLeadRequest{
		Name: name,
		Contacts: []contactPayload{{
			Name:   lead.Name,
			Emails: []typedValue{{Type: "office", Value: lead.Email}},
		}},
		Custom: map[string]string{
			"category": string(lead.Category),
			"priority": string(lead.Priority),
			"industry": lead.Industry,
			"goals":    lead.Goals,
		},
	}
	if lead.Phone != "" {
		payload.Contacts[0].Phones = []typedValue{{Type: "office", Value: lead.Phone}}
	}

	var created leadRecord
	if err := c.do(ctx, http.MethodPost, "/lead/", payload, &created); err != nil {
		return "", fmt.Errorf("create CRM lead: %w", err)
	}
	c.log.Info("CRM lead created", "crm_id", created.ID)
	return created.ID, nil
}

func (c *Client) findByEmail(ctx context.Context, email string) (string, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf(`email:"%s"`, email))
	q.Set("_limit", "1")

	var out leadSearchResponse
	if err := c.do(ctx, http.MethodGet, "/lead/?"+q.Encode(), nil, &out); err != nil {
		return "", fmt.Errorf("search CRM lead: %w", err)
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ID, nil
}

type notePayload struct {
	LeadID string `json:"lead_id"`
	Note   string `json:"note"`
}

// AppendNote attaches a free-text activity note to a CRM record.
func (c *Client) AppendNote(ctx context.Context, externalID, text string) error {
	if c == nil {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/activity/note/", notePayload{LeadID: externalID, Note: text}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal CRM payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("CRM request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("CRM returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return apperr.Unavailable(msg)
		}
		return apperr.BadRequest(msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode CRM response: %w", err)
		}
	}
	return nil
}
