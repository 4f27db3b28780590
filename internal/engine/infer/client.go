// Package infer adapts the context-aware inference engine: an LLM
// reached through a provider SDK, prompted with the filtered document
// text, whose response is parsed back into suggestions.
package infer

import (
	"context"
	"errors"
)

// SamplingParams are the generation parameters sent with each request.
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// Client is the inference service boundary: one prompt in, raw response
// text out. Implementations wrap a provider SDK.
type Client interface {
	Complete(ctx context.Context, system, user string, params SamplingParams) (string, error)
}

// ClientConfig is the provider-independent client configuration.
type ClientConfig struct {
	// Provider selects the SDK: "openai" or "anthropic".
	Provider string

	// Model is the provider model identifier.
	Model string

	// APIKey authenticates with the provider.
	APIKey string

	// BaseURL overrides the provider endpoint. Optional.
	BaseURL string
}

// NewClient builds a provider client from configuration.
func NewClient(cfg ClientConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	case "anthropic", "":
		return NewAnthropicClient(cfg)
	default:
		return nil, errors.New("unknown inference provider: " + cfg.Provider)
	}
}

// ClientFunc adapts a function to the Client interface. Used by tests.
type ClientFunc func(ctx context.Context, system, user string, params SamplingParams) (string, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, system, user string, params SamplingParams) (string, error) {
	return f(ctx, system, user, params)
}
