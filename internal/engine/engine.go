// Package engine provides the shared checking pipeline both engine
// adapters run through: content filtering, the result cache, the circuit
// breaker and retry wrappers around the external service call, and span
// translation back into original document coordinates.
package engine

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/cache"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/filter"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/logging"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Engine is the contract the orchestrator needs from an engine adapter.
// Check is synchronous; the orchestrator runs it off its own control
// path.
type Engine interface {
	// Name identifies the engine for logging and status events.
	Name() string

	// Source is the suggestion source this engine produces.
	Source() suggest.Source

	// Check analyzes the document and returns a result. A failed check
	// returns Success=false; failure is never fatal to the caller.
	Check(ctx context.Context, document string) suggest.CheckResult

	// BreakerState exposes the circuit breaker state for status
	// reporting.
	BreakerState() resilience.BreakerState

	// SetCacheBypass toggles serving from the result cache. Results are
	// still stored while bypassed.
	SetCacheBypass(bypass bool)

	// ClearCache drops all cached results.
	ClearCache()

	// Stats returns a snapshot of the engine's counters.
	Stats() Stats
}

// Stats is a snapshot of an engine's lifetime counters.
type Stats struct {
	Checks       uint64
	CacheHits    uint64
	Failures     uint64
	TotalElapsed time.Duration
}

// CallFunc invokes the external service with filtered plain text and
// returns suggestions with spans in filtered-text coordinates. The
// pipeline translates them to original coordinates afterwards.
type CallFunc func(ctx context.Context, plain string) ([]suggest.Suggestion, error)

// PipelineConfig assembles a pipeline.
type PipelineConfig struct {
	// Name identifies the engine.
	Name string

	// Source tags produced suggestions.
	Source suggest.Source

	// Filter strips markup before checking. Nil means per-document
	// format detection.
	Filter filter.Filter

	// CacheSize is the result cache capacity.
	CacheSize int

	// Retry wraps the service call. Zero value means no retries.
	Retry resilience.RetryConfig

	// Breaker configures the circuit breaker.
	Breaker resilience.BreakerConfig

	// Timeout is the hard per-call deadline, independent of retry
	// delays.
	Timeout time.Duration

	// Call invokes the external service.
	Call CallFunc

	// Logger receives pipeline diagnostics. Nil disables logging.
	Logger *logging.Logger
}

// Pipeline implements Engine around a CallFunc. A new text snapshot is
// checked in six steps: filter, cache lookup, guarded service call,
// parse (inside Call), span translation with sanity checks, cache store.
type Pipeline struct {
	name    string
	source  suggest.Source
	filter  filter.Filter
	cache   *cache.LRU[suggest.CheckResult]
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	timeout time.Duration
	call    CallFunc
	logger  *logging.Logger

	cacheBypass atomic.Bool

	checks    atomic.Uint64
	cacheHits atomic.Uint64
	failures  atomic.Uint64
	elapsedNs atomic.Int64
}

// NewPipeline creates an engine pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		name:    cfg.Name,
		source:  cfg.Source,
		filter:  cfg.Filter,
		cache:   cache.NewLRU[suggest.CheckResult](cfg.CacheSize),
		breaker: resilience.NewBreaker(cfg.Breaker),
		retry:   cfg.Retry,
		timeout: cfg.Timeout,
		call:    cfg.Call,
		logger:  logger.WithComponent(cfg.Name),
	}
}

// Name implements Engine.
func (p *Pipeline) Name() string { return p.name }

// Source implements Engine.
func (p *Pipeline) Source() suggest.Source { return p.source }

// Breaker returns the pipeline's circuit breaker, so the orchestrator
// can attach state-change observers.
func (p *Pipeline) Breaker() *resilience.Breaker { return p.breaker }

// BreakerState implements Engine.
func (p *Pipeline) BreakerState() resilience.BreakerState {
	return p.breaker.State()
}

// SetCacheBypass implements Engine.
func (p *Pipeline) SetCacheBypass(bypass bool) {
	p.cacheBypass.Store(bypass)
}

// ClearCache implements Engine.
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
}

// Stats implements Engine.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Checks:       p.checks.Load(),
		CacheHits:    p.cacheHits.Load(),
		Failures:     p.failures.Load(),
		TotalElapsed: time.Duration(p.elapsedNs.Load()),
	}
}

// Check implements Engine.
func (p *Pipeline) Check(ctx context.Context, document string) suggest.CheckResult {
	p.checks.Add(1)
	start := time.Now()
	defer func() {
		p.elapsedNs.Add(int64(time.Since(start)))
	}()

	f := p.filter
	if f == nil {
		f = filter.Detect(document)
	}
	filtered := f.Filter(document)

	// Nothing checkable: short-circuit before the cache and the engine.
	if filtered.IsBlank() {
		return suggest.EmptyResult()
	}

	key := cache.Checksum(filtered.Text)
	if !p.cacheBypass.Load() {
		if cached, ok := p.cache.Get(key); ok {
			p.cacheHits.Add(1)
			cached.FromCache = true
			return cached
		}
	}

	raw, err := resilience.Execute(p.breaker, func() ([]suggest.Suggestion, error) {
		return resilience.Retry(ctx, p.retry, func() ([]suggest.Suggestion, error) {
			return resilience.Timeout(ctx, p.timeout, func(ctx context.Context) ([]suggest.Suggestion, error) {
				return p.call(ctx, filtered.Text)
			})
		})
	})
	if err != nil {
		p.failures.Add(1)
		p.logger.Warn("check failed: %v", err)
		result := suggest.FailedResult(err)
		result.Elapsed = time.Since(start)
		return result
	}

	suggestions := p.translate(raw, filtered.Map, len(document))

	result := suggest.CheckResult{
		Suggestions: suggestions,
		Success:     true,
		Elapsed:     time.Since(start),
		WordCount:   len(strings.Fields(filtered.Text)),
	}
	p.cache.Put(key, result)
	return result
}

// translate maps spans from filtered to original coordinates and drops
// any suggestion whose span fails the sanity check. A bad span is a
// parser defect, not a reason to fail the whole result.
func (p *Pipeline) translate(raw []suggest.Suggestion, m filter.OffsetMap, docLen int) []suggest.Suggestion {
	out := make([]suggest.Suggestion, 0, len(raw))
	for _, s := range raw {
		s.Span = suggest.Span{
			Start: m.ToOriginal(s.Span.Start),
			End:   m.ToOriginal(s.Span.End),
		}
		if !s.Span.Valid(docLen) {
			p.logger.Debug("dropping suggestion with out-of-range span %d:%d", s.Span.Start, s.Span.End)
			continue
		}
		out = append(out, s)
	}
	return out
}
