package infer

import (
	"context"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/engine"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/filter"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/logging"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Config parameterizes the inference engine adapter.
type Config struct {
	// Template names the prompt template to use.
	Template string

	// Sampling holds the generation parameters.
	Sampling SamplingParams

	// CacheSize is the result cache capacity. Inference calls are rare
	// and expensive, so a small cache suffices.
	CacheSize int

	// Timeout is the hard per-call deadline. Inference is slow; the
	// default is generous.
	Timeout time.Duration

	// Filter overrides per-document format detection.
	Filter filter.Filter

	// Retry overrides the default retry policy.
	Retry resilience.RetryConfig

	// Breaker overrides the default breaker policy.
	Breaker resilience.BreakerConfig
}

// DefaultConfig returns the standard inference adapter configuration.
func DefaultConfig() Config {
	return Config{
		Template:  "proofread",
		Sampling:  SamplingParams{Temperature: 0.2, MaxTokens: 2048},
		CacheSize: 8,
		Timeout:   60 * time.Second,
		Retry:     resilience.DefaultRetryConfig(),
		Breaker:   resilience.DefaultBreakerConfig(),
	}
}

// NewAdapter builds the slow-lane engine around an inference client.
func NewAdapter(client Client, cfg Config, logger *logging.Logger) *engine.Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 8
	}
	template := TemplateByName(cfg.Template)

	return engine.NewPipeline(engine.PipelineConfig{
		Name:      "inference",
		Source:    suggest.SourceInference,
		Filter:    cfg.Filter,
		CacheSize: cfg.CacheSize,
		Retry:     cfg.Retry,
		Breaker:   cfg.Breaker,
		Timeout:   cfg.Timeout,
		Logger:    logger,
		Call: func(ctx context.Context, plain string) ([]suggest.Suggestion, error) {
			system, user := template.Render(plain)
			raw, err := client.Complete(ctx, system, user, cfg.Sampling)
			if err != nil {
				return nil, err
			}
			return Parse(raw, plain), nil
		},
	})
}
