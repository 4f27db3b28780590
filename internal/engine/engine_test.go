package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

func testPipeline(call CallFunc) *Pipeline {
	return NewPipeline(PipelineConfig{
		Name:      "test",
		Source:    suggest.SourceRule,
		CacheSize: 4,
		Breaker: resilience.BreakerConfig{
			FailureThreshold: 5,
			BackoffUnit:      10 * time.Millisecond,
			MaxBackoff:       100 * time.Millisecond,
		},
		Timeout: time.Second,
		Call:    call,
	})
}

func TestPipeline_BlankDocumentSkipsEngine(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return nil, nil
	})

	result := p.Check(context.Background(), "// only a comment\n")

	if !result.Success {
		t.Error("blank document check failed")
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("suggestions = %d, want 0", len(result.Suggestions))
	}
	if calls.Load() != 0 {
		t.Error("engine called for blank document")
	}
}

func TestPipeline_SecondIdenticalCheckServedFromCache(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(_ context.Context, plain string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return []suggest.Suggestion{
			suggest.NewSuggestion(suggest.SourceRule, suggest.CategorySpelling, suggest.SeverityError,
				suggest.Span{Start: 0, End: 3}, "spelling", []string{"The"}),
		}, nil
	})

	doc := "Teh cat sat.\n"

	first := p.Check(context.Background(), doc)
	second := p.Check(context.Background(), doc)

	if first.FromCache {
		t.Error("first check marked from cache")
	}
	if !second.FromCache {
		t.Error("second check not served from cache")
	}
	if calls.Load() != 1 {
		t.Errorf("engine calls = %d, want 1", calls.Load())
	}
	if len(second.Suggestions) != len(first.Suggestions) {
		t.Errorf("cached suggestions differ: %d vs %d", len(second.Suggestions), len(first.Suggestions))
	}
}

func TestPipeline_MarkupOnlyEditHitsCache(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return nil, nil
	})

	// Both documents filter to identical checkable text modulo the
	// markup bytes being blanked identically.
	p.Check(context.Background(), "Teh cat sat.\n// old comment here\n")
	p.Check(context.Background(), "Teh cat sat.\n// old comment here\n")

	if calls.Load() != 1 {
		t.Errorf("engine calls = %d, want 1", calls.Load())
	}
}

func TestPipeline_CacheBypassStillStores(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return nil, nil
	})
	p.SetCacheBypass(true)

	doc := "Some prose.\n"
	p.Check(context.Background(), doc)
	p.Check(context.Background(), doc)

	if calls.Load() != 2 {
		t.Errorf("engine calls with bypass = %d, want 2", calls.Load())
	}

	p.SetCacheBypass(false)
	result := p.Check(context.Background(), doc)
	if !result.FromCache {
		t.Error("bypassed Put did not warm the cache")
	}
}

func TestPipeline_FailureReturnsUnsuccessfulResult(t *testing.T) {
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		return nil, errors.New("service exploded")
	})

	result := p.Check(context.Background(), "Some prose.\n")

	if result.Success {
		t.Error("failed check reported success")
	}
	if result.ErrMessage == "" {
		t.Error("failed check carries no error message")
	}
	if p.Stats().Failures != 1 {
		t.Errorf("failures = %d, want 1", p.Stats().Failures)
	}
}

func TestPipeline_FailedResultNotCached(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})

	doc := "Some prose.\n"
	p.Check(context.Background(), doc)
	p.Check(context.Background(), doc)

	if calls.Load() != 2 {
		t.Errorf("engine calls = %d, want 2 (failures must not be cached)", calls.Load())
	}
}

func TestPipeline_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})

	for i := 0; i < 5; i++ {
		p.Check(context.Background(), "Prose.\n")
	}

	if p.BreakerState() != resilience.BreakerOpen {
		t.Fatalf("breaker state = %v, want open", p.BreakerState())
	}

	before := calls.Load()
	result := p.Check(context.Background(), "Prose.\n")
	if result.Success {
		t.Error("check succeeded through an open breaker")
	}
	if calls.Load() != before {
		t.Error("open breaker let a call through")
	}
}

func TestPipeline_OutOfRangeSpansDropped(t *testing.T) {
	p := testPipeline(func(_ context.Context, plain string) ([]suggest.Suggestion, error) {
		return []suggest.Suggestion{
			suggest.NewSuggestion(suggest.SourceRule, suggest.CategoryGrammar, suggest.SeverityError,
				suggest.Span{Start: 0, End: 5}, "good", nil),
			suggest.NewSuggestion(suggest.SourceRule, suggest.CategoryGrammar, suggest.SeverityError,
				suggest.Span{Start: 0, End: len(plain) + 100}, "past the end", nil),
			suggest.NewSuggestion(suggest.SourceRule, suggest.CategoryGrammar, suggest.SeverityError,
				suggest.Span{Start: 7, End: 7}, "empty", nil),
		}, nil
	})

	result := p.Check(context.Background(), "Some prose here.\n")

	if !result.Success {
		t.Fatal("check failed")
	}
	if len(result.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1 (invalid spans dropped)", len(result.Suggestions))
	}
	if result.Suggestions[0].Message != "good" {
		t.Errorf("kept the wrong suggestion: %q", result.Suggestions[0].Message)
	}
}

func TestPipeline_WordCount(t *testing.T) {
	p := testPipeline(func(context.Context, string) ([]suggest.Suggestion, error) {
		return nil, nil
	})

	result := p.Check(context.Background(), "Teh cat sat.\n")

	if result.WordCount != 3 {
		t.Errorf("word count = %d, want 3", result.WordCount)
	}
}
