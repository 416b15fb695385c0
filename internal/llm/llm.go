package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/korektor-app/korektor/internal/llm/prompts"
	"github.com/korektor-app/korektor/internal/model"
)

// Client wraps an OpenAI-compatible API client for answer-sheet grading.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. model must name a vision-capable model.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint check: %w", err)
	}
	return nil
}

// GradeSheets sends the answer key, scoring formula, and sheet photos
// to the model in a single chat request and parses its reply as a JSON
// array of per-student grading results. It returns the typed results
// together with each student's raw JSON object, for persistence.
//
// The reply is not repaired: anything other than a well-formed array of
// result-shaped objects is an error.
func (c *Client) GradeSheets(ctx context.Context, key model.AnswerKey, formula string, images []model.SheetImage) ([]model.GradingResult, []json.RawMessage, error) {
	prompt, err := prompts.BuildGrading(key, formula)
	if err != nil {
		return nil, nil, fmt.Errorf("build grading prompt: %w", err)
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM grading response", "raw", raw)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	results := make([]model.GradingResult, 0, len(items))
	for i, item := range items {
		var res model.GradingResult
		if err := json.Unmarshal(item, &res); err != nil {
			return nil, nil, fmt.Errorf("parse result %d: %w", i, err)
		}
		results = append(results, res)
	}

	return results, items, nil
}

func dataURL(img model.SheetImage) string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
