package rule

import (
	"context"
	"strings"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/engine"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/filter"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/logging"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Config parameterizes the rule engine adapter.
type Config struct {
	// Language is the document language code.
	Language string

	// DisabledRules lists rule IDs to suppress service-side.
	DisabledRules []string

	// CacheSize is the result cache capacity.
	CacheSize int

	// Timeout is the hard per-call deadline. The rule engine is fast,
	// so the default is short.
	Timeout time.Duration

	// Filter overrides per-document format detection.
	Filter filter.Filter

	// Retry overrides the default retry policy.
	Retry resilience.RetryConfig

	// Breaker overrides the default breaker policy.
	Breaker resilience.BreakerConfig
}

// DefaultConfig returns the standard rule adapter configuration.
func DefaultConfig() Config {
	return Config{
		Language:  "en-US",
		CacheSize: 32,
		Timeout:   5 * time.Second,
		Retry:     resilience.DefaultRetryConfig(),
		Breaker:   resilience.DefaultBreakerConfig(),
	}
}

// NewAdapter builds the fast-lane engine around a rule service client.
func NewAdapter(client Client, cfg Config, logger *logging.Logger) *engine.Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 32
	}
	return engine.NewPipeline(engine.PipelineConfig{
		Name:      "rule",
		Source:    suggest.SourceRule,
		Filter:    cfg.Filter,
		CacheSize: cfg.CacheSize,
		Retry:     cfg.Retry,
		Breaker:   cfg.Breaker,
		Timeout:   cfg.Timeout,
		Logger:    logger,
		Call: func(ctx context.Context, plain string) ([]suggest.Suggestion, error) {
			matches, err := client.Check(ctx, Request{
				Text:          plain,
				Language:      cfg.Language,
				DisabledRules: cfg.DisabledRules,
			})
			if err != nil {
				return nil, err
			}
			return toSuggestions(matches), nil
		},
	})
}

// toSuggestions converts service matches into suggestions. Spans stay
// in filtered-text coordinates; the pipeline translates them.
func toSuggestions(matches []Match) []suggest.Suggestion {
	out := make([]suggest.Suggestion, 0, len(matches))
	for _, m := range matches {
		replacements := make([]string, 0, len(m.Replacements))
		for _, r := range m.Replacements {
			replacements = append(replacements, r.Value)
		}
		category := categoryOf(m)
		out = append(out, suggest.NewSuggestion(
			suggest.SourceRule,
			category,
			severityOf(category),
			suggest.Span{Start: m.Offset, End: m.Offset + m.Length},
			m.Message,
			replacements,
		))
	}
	return out
}

func categoryOf(m Match) suggest.Category {
	if c := suggest.ParseCategory(strings.ToLower(m.Rule.Category.ID)); c != suggest.CategoryInference {
		return c
	}
	if c := suggest.ParseCategory(strings.ToLower(m.Rule.IssueType)); c != suggest.CategoryInference {
		return c
	}
	// Rule matches are mechanical findings; default to grammar rather
	// than the inference bucket.
	return suggest.CategoryGrammar
}

func severityOf(category suggest.Category) suggest.Severity {
	switch category {
	case suggest.CategorySpelling:
		return suggest.SeverityError
	case suggest.CategoryGrammar, suggest.CategoryPunctuation:
		return suggest.SeverityWarning
	case suggest.CategoryStyle:
		return suggest.SeverityInfo
	case suggest.CategoryReadability:
		return suggest.SeverityHint
	default:
		return suggest.SeverityInfo
	}
}
