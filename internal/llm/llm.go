// Package llm asks an OpenAI-compatible model for feedback on free-text answers.
// Its scores are advisory and are never applied to a session automatically.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/casesim/internal/grading"
	"github.com/pavelanni/casesim/internal/llm/prompts"
	"github.com/pavelanni/casesim/internal/model"
)

// Review is the model's assessment of one answer.
type Review struct {
	Score     int    `json:"score"`
	MaxPoints int    `json:"max_points"`
	Feedback  string `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant %q", variant)
	}
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
	}, nil
}

// Ping checks that the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// ReviewAnswer asks the model to score and comment on a free-text answer.
func (c *Client) ReviewAnswer(ctx context.Context, step model.Step, answer string) (*Review, error) {
	if step.Kind != model.StepFreeText {
		return nil, fmt.Errorf("step %s is not a free-text step", step.ID)
	}
	prompt, err := prompts.BuildReviewPrompt(c.variant, step, answer)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM review API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("LLM returned no choices for review")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "step_id", step.ID, "raw", raw)
	return parseReview(raw, step.Points())
}

// parseReview decodes the model's JSON and clamps the score into [0, maxPoints].
func parseReview(raw string, maxPoints int) (*Review, error) {
	var out struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse review response: %w (raw: %s)", err, raw)
	}

	score := int(math.Round(out.Score))
	if !grading.ValidateScore(score, maxPoints) {
		slog.Warn("LLM score out of range, clamping", "score", out.Score, "max_points", maxPoints)
		score = min(max(score, 0), maxPoints)
	}
	return &Review{Score: score, MaxPoints: maxPoints, Feedback: out.Feedback}, nil
}
