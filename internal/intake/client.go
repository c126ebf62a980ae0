// Package intake polls the form provider's responses API. Webhooks are
// the primary intake path; this client exists so a scheduled run can
// catch up on submissions whose webhook delivery was missed.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

const pageSize = 50

type Client struct {
	baseURL string
	token   string
	formIDs []string
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when no API token is configured; a nil client
// fetches nothing so polling stays optional and webhooks remain the
// only intake path.
func NewClient(cfg config.IntakeSourceConfig, log *logger.Logger) *Client {
	if cfg.GetIntakeAPIToken() == "" {
		return nil
	}

	formIDs := make([]string, 0, 2)
	for _, id := range []string{cfg.GetIntakeConnectFormID(), cfg.GetIntakeWholesaleFormID()} {
		if id != "" {
			formIDs = append(formIDs, id)
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetIntakeBaseURL(), "/"),
		token:   cfg.GetIntakeAPIToken(),
		formIDs: formIDs,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type responsePage struct {
	Items []responseItem `json:"items"`
}

type responseItem struct {
	ResponseID string           `json:"response_id"`
	Token      string           `json:"token"`
	Answers    []responseAnswer `json:"answers"`
}

type responseAnswer struct {
	Field struct {
		Ref string `json:"ref"`
	} `json:"field"`
	Type        string   `json:"type"`
	Text        string   `json:"text"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Number      *float64 `json:"number"`
	Boolean     *bool    `json:"boolean"`
	Choice      struct {
		Label string `json:"label"`
	} `json:"choice"`
}

// Fetch pulls the most recent responses for every configured form and
// normalizes them into raw submissions. Re-fetched responses are
// harmless: intake is idempotent on the lead's email downstream.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawSubmission, error) {
	if c == nil {
		return nil, nil
	}

	var subs []domain.RawSubmission
	for _, formID := range c.formIDs {
		page, err := c.fetchForm(ctx, formID)
		if err != nil {
			return nil, fmt.Errorf("fetch form %s: %w", formID, err)
		}
		for _, item := range page.Items {
			subs = append(subs, toSubmission(formID, item))
		}
	}

	c.log.Info("intake responses fetched", "forms", len(c.formIDs), "submissions", len(subs))
	return subs, nil
}

func (c *Client) fetchForm(ctx context.Context, formID string) (responsePage, error) {
	endpoint := fmt.Sprintf("%s/forms/%s/responses?%s", c.baseURL, url.PathEscape(formID), url.Values{
		"page_size": []string{strconv.Itoa(pageSize)},
		"completed": []string{"true"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return responsePage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return responsePage{}, fmt.Errorf("intake request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return responsePage{}, fmt.Errorf("intake service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var page responsePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return responsePage{}, fmt.Errorf("decode intake response: %w", err)
	}
	return page, nil
}

// toSubmission flattens provider answers into label→value fields keyed
// by the form author's field refs, then reuses the shared extractor so
// polled and webhook submissions normalize identically.
func toSubmission(formID string, item responseItem) domain.RawSubmission {
	fields := make(map[string]string, len(item.Answers))
	for _, ans := range item.Answers {
		value := answerValue(ans)
		if ans.Field.Ref == "" || value == "" {
			continue
		}
		fields[ans.Field.Ref] = value
	}

	responseID := item.ResponseID
	if responseID == "" {
		responseID = item.Token
	}
	return classifier.ExtractSubmission(formID, responseID, fields)
}

func answerValue(ans responseAnswer) string {
	switch ans.Type {
	case "text", "long_text", "short_text":
		return ans.Text
	case "email":
		return ans.Email
	case "phone_number":
		return ans.PhoneNumber
	case "choice":
		return ans.Choice.Label
	case "number":
		if ans.Number != nil {
			return strconv.FormatFloat(*ans.Number, 'f', -1, 64)
		}
	case "boolean":
		if ans.Boolean != nil {
			return strconv.FormatBool(*ans.Boolean)
		}
	}
	return ans.Text
}
