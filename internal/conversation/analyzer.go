// Package conversation normalizes free-form inbound text into the fixed
// intent taxonomy. This adapter is the only boundary where model output
// exists; callers receive a raw label and must validate it through
// domain.CoerceIntent.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/logger"
)

type Analyzer struct {
	ai    *genai.Client
	model string
	log   *logger.Logger
}

func NewAnalyzer(ai *genai.Client, model string, log *logger.Logger) *Analyzer {
	return &Analyzer{ai: ai, model: model, log: log}
}

const intentPrompt = `You classify one inbound message from a sales lead.
Pick exactly one intent from this list:
pricing_question, objection, booking_intent, unclear, angry, human_request

Rules:
- "angry" for hostile or frustrated messages, including unsubscribe demands.
- "human_request" when the sender asks for a person, a rep, or a call with someone.
- "booking_intent" when the sender wants to schedule or asks for times.
- "unclear" when the message cannot be understood.
Respond with JSON only: {"intent": "<one of the list>"}.

Lead: %s, category %s, cadence step %d.
Message:
%s`

type intentResponse struct {
	Intent string `json:"intent"`
}

// ClassifyIntent returns the raw intent label for a message. An error or
// malformed response surfaces to the caller, which fails safe toward
// human_request.
func (a *Analyzer) ClassifyIntent(ctx context.Context, text string, lead domain.Lead) (string, error) {
	if a.ai == nil {
		return "", fmt.Errorf("intent model not configured")
	}

	prompt := fmt.Sprintf(intentPrompt, lead.Name, lead.Category, lead.CadenceStep, text)
	resp, err := a.ai.Models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("intent model call: %w", err)
	}

	var out intentResponse
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return "", fmt.Errorf("intent response malformed: %w", err)
	}

	a.log.Debug("intent classified", "lead_id", lead.ID.String(), "intent", out.Intent)
	return out.Intent, nil
}
