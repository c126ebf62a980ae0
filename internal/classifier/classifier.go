// Package classifier maps raw intake submissions to a lead category.
// Deterministic rules run first; only inconclusive submissions reach the
// AI fallback, and its output is validated against the category enum.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

type Classifier struct {
	connectFormID   string
	wholesaleFormID string
	ai              *genai.Client
	model           string
	log             *logger.Logger
}

func New(cfg config.IntakeConfig, ai *genai.Client, model string, log *logger.Logger) *Classifier {
	return &Classifier{
		connectFormID:   cfg.GetIntakeConnectFormID(),
		wholesaleFormID: cfg.GetIntakeWholesaleFormID(),
		ai:              ai,
		model:           model,
		log:             log,
	}
}

// Classify resolves the category for a submission. The ambiguous flag is
// set whenever the deterministic rules could not decide and the result
// came from the fallback (or nothing at all).
func (c *Classifier) Classify(ctx context.Context, sub domain.RawSubmission) (domain.Category, bool, error) {
	if cat, ok := c.byFormID(sub.FormID); ok {
		return cat, false, nil
	}
	if cat, ok := byKeywords(sub); ok {
		return cat, false, nil
	}

	if c.ai == nil {
		return domain.CategoryUnknown, true, nil
	}

	cat, err := c.aiFallback(ctx, sub)
	if err != nil {
		return domain.CategoryUnknown, true, err
	}
	return cat, cat == domain.CategoryUnknown, nil
}

func (c *Classifier) byFormID(formID string) (domain.Category, bool) {
	switch {
	case formID == "":
		return domain.CategoryUnknown, false
	case formID == c.connectFormID:
		return domain.CategoryHumeConnect, true
	case formID == c.wholesaleFormID:
		return domain.CategoryWholesale, true
	default:
		return domain.CategoryUnknown, false
	}
}

var keywordCategories = []struct {
	category domain.Category
	words    []string
}{
	{domain.CategoryWholesale, []string{"wholesale", "reseller", "bulk order", "distributor"}},
	{domain.CategoryAffiliate, []string{"affiliate", "referral program", "commission"}},
	{domain.CategoryHumeConnect, []string{"connect", "integration", "api access"}},
}

func byKeywords(sub domain.RawSubmission) (domain.Category, bool) {
	haystack := strings.ToLower(sub.Goals + " " + sub.Industry)
	for _, v := range sub.Answers {
		haystack += " " + strings.ToLower(v)
	}
	for _, kc := range keywordCategories {
		for _, w := range kc.words {
			if strings.Contains(haystack, w) {
				return kc.category, true
			}
		}
	}
	return domain.CategoryUnknown, false
}

const classifyPrompt = `You classify sales leads into exactly one category.
Categories: HumeConnectType, WholesaleType, AffiliateType, Unknown.
Respond with JSON only: {"category": "<one of the categories>"}.

Lead submission:
Name: %s
Company: %s
Industry: %s
Goals: %s`

type aiCategoryResponse struct {
	Category string `json:"category"`
}

func (c *Classifier) aiFallback(ctx context.Context, sub domain.RawSubmission) (domain.Category, error) {
	prompt := fmt.Sprintf(classifyPrompt, sub.Name, sub.Company, sub.Industry, sub.Goals)

	resp, err := c.ai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return domain.CategoryUnknown, fmt.Errorf("classification model call: %w", err)
	}

	var out aiCategoryResponse
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		c.log.Warn("classifier returned malformed JSON, treating as Unknown", "error", err)
		return domain.CategoryUnknown, nil
	}

	cat := domain.Category(out.Category)
	if !domain.IsKnownCategory(cat) {
		c.log.Warn("classifier returned out-of-enum category", "value", out.Category)
		return domain.CategoryUnknown, nil
	}
	return cat, nil
}
