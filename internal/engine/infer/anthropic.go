package infer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
)

// AnthropicClient implements Client using the official anthropic-sdk-go
// (messages API).
type AnthropicClient struct {
	model string
	opts  []option.RequestOption
}

// NewAnthropicClient creates an Anthropic-backed inference client.
func NewAnthropicClient(cfg ClientConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("inference model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{model: cfg.Model, opts: opts}, nil
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, system, user string, params SamplingParams) (string, error) {
	client := anthropic.NewClient(c.opts...)

	maxTokens := int64(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if params.Temperature > 0 {
		req.Temperature = anthropic.Float(params.Temperature)
	}

	msg, err := client.Messages.New(ctx, req)
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: empty response content")
	}
	return sb.String(), nil
}

// classifyAnthropicError marks rate limits and server-side failures as
// transient so the retry policy picks them up.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", resilience.ErrTransient, err)
		}
		return err
	}
	return err
}
