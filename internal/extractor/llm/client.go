// Package llm wraps the Gemini API for symptom extraction. The model is
// asked for a strict JSON payload; anything else is surfaced as an
// extraction error, never silently coerced into an empty tag list.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
	"github.com/evidencelab/symptom-signal-platform/pkg/resilience"
	"google.golang.org/genai"
)

const systemPrompt = `You extract medication side effects and symptoms from patient posts and paper abstracts.
Return only JSON of the form {"symptoms": ["tag", ...]} listing every distinct symptom or side effect
mentioned in the text, one short lowercase phrase per entry. Return {"symptoms": []} if none are mentioned.`

// Client extracts symptom mentions from free text via Gemini.
type Client struct {
	client *genai.Client
	cfg    config.LLMConfig
	logger *slog.Logger
}

// NewClient creates a Gemini-backed extraction client.
func NewClient(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "llm-client", "model", cfg.Model),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Extract returns the raw symptom phrases the model found in the text. An
// empty slice with a nil error means the model saw no symptoms; a non-nil
// error means the call or its payload failed.
func (c *Client) Extract(ctx context.Context, title, body string) ([]string, error) {
	text := strings.TrimSpace(title + "\n\n" + body)
	if text == "" {
		return []string{}, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	var raw string
	err := resilience.Retry(ctx, "llm-extract", resilience.RetryConfig{MaxAttempts: c.cfg.MaxAttempts}, func() error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "llm-extract", func(callCtx context.Context) error {
			resp, err := c.client.Models.GenerateContent(callCtx, c.cfg.Model, contents, cfg)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrExtractionFailed, err)
			}
			raw = resp.Text()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	tags, err := ParsePayload(raw)
	if err != nil {
		c.logger.Warn("unparseable extraction payload", "error", err, "payload_size", len(raw))
		return nil, err
	}
	return tags, nil
}

// payload is the JSON shape the model is instructed to return.
type payload struct {
	Symptoms []string `json:"symptoms"`
}

// ParsePayload decodes the model's JSON response, tolerating a markdown code
// fence around the object.
func ParsePayload(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var p payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, apperrors.Newf(apperrors.ErrExtractionFailed, 502, "decoding extraction payload: %v", err)
	}
	if p.Symptoms == nil {
		return []string{}, nil
	}
	return p.Symptoms, nil
}
