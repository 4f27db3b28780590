package check

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/cache"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/engine"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/logging"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/schedule"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Manager coordination errors.
var (
	// ErrUnknownSuggestion means the suggestion ID is not in the current
	// aggregated result.
	ErrUnknownSuggestion = errors.New("check: unknown suggestion")

	// ErrNoReplacement means the suggestion has no replacement at the
	// requested index.
	ErrNoReplacement = errors.New("check: no replacement at index")
)

// engineSlot tracks the last result an engine produced and the document
// snapshot it belongs to. Results from older snapshots are never merged
// into a newer one.
type engineSlot struct {
	result suggest.CheckResult
	key    cache.Key
	valid  bool
}

// Config assembles a Manager.
type Config struct {
	// Mode selects participating engines. Defaults to hybrid.
	Mode Mode

	// Profile sets cadence and cache behavior. Zero value means the
	// balanced profile.
	Profile Profile

	// Rule is the fast-lane engine. Required unless the mode never
	// enables it.
	Rule engine.Engine

	// Inference is the slow-lane engine.
	Inference engine.Engine

	// Logger receives orchestration logs. Nil means no logging.
	Logger *logging.Logger
}

// Manager owns the checking lifecycle: it debounces text changes, runs
// the engines off the caller's goroutine, discards stale completions,
// merges overlapping findings, and publishes one aggregated result per
// cycle.
type Manager struct {
	logger    *logging.Logger
	rule      engine.Engine
	inference engine.Engine
	scheduler *schedule.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	mode       Mode
	profile    Profile
	currentKey cache.Key
	slots      map[suggest.Source]*engineSlot
	lastAgg    suggest.AggregatedResult
	busy       map[suggest.Source]bool
	pending    map[suggest.Source]schedule.Snapshot
	status     map[suggest.Source]EngineStatus
	onResult   ResultListener
	onStatus   StatusListener
	closed     bool
}

// New builds a Manager. The scheduler starts disarmed; nothing runs
// until the first OnTextChanged.
func New(cfg Config) *Manager {
	if cfg.Mode == ModeDisabled && cfg.Profile.Name == "" {
		// Zero-value config: hybrid on the balanced profile.
		cfg.Mode = ModeHybrid
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = ProfileByName("balanced")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:    logger.WithComponent("check"),
		rule:      cfg.Rule,
		inference: cfg.Inference,
		ctx:       ctx,
		cancel:    cancel,
		mode:      cfg.Mode,
		profile:   cfg.Profile,
		slots: map[suggest.Source]*engineSlot{
			suggest.SourceRule:      {},
			suggest.SourceInference: {},
		},
		busy:    make(map[suggest.Source]bool),
		pending: make(map[suggest.Source]schedule.Snapshot),
		status: map[suggest.Source]EngineStatus{
			suggest.SourceRule:      StatusAvailable,
			suggest.SourceInference: StatusAvailable,
		},
	}
	m.scheduler = schedule.New(m.schedulerConfig(cfg.Mode, cfg.Profile), m.onFire)
	m.applyCachePolicy(cfg.Profile)
	return m
}

// OnResult registers the aggregated-result listener. The listener is
// called off the caller's goroutine; it must not block for long.
func (m *Manager) OnResult(fn ResultListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = fn
}

// OnStatusChange registers the engine availability listener. It fires
// once per transition, not per failure.
func (m *Manager) OnStatusChange(fn StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = fn
}

// OnTextChanged records the new document state and re-arms the
// debounce timers. It returns immediately.
func (m *Manager) OnTextChanged(text string) {
	m.mu.Lock()
	if m.closed || m.mode == ModeDisabled {
		m.mu.Unlock()
		return
	}
	m.currentKey = cache.Checksum(text)
	// A newer snapshot supersedes any queued re-fire.
	m.pending = make(map[suggest.Source]schedule.Snapshot)
	m.mu.Unlock()

	m.scheduler.OnTextChanged(text)
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode switches the participating engines. Switching to disabled
// cancels pending timers and marks in-flight work stale.
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	if m.closed || mode == m.mode {
		m.mu.Unlock()
		return
	}
	m.mode = mode
	profile := m.profile
	if mode == ModeDisabled {
		// In-flight completions compare against this and discard.
		m.currentKey = 0
		m.pending = make(map[suggest.Source]schedule.Snapshot)
	}
	m.mu.Unlock()

	m.logger.Info("mode changed to %s", mode)
	if mode == ModeDisabled {
		m.scheduler.Cancel()
	}
	m.scheduler.Reconfigure(m.schedulerConfig(mode, profile))
}

// Profile returns the current profile.
func (m *Manager) Profile() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// SetProfile switches cadence and cache behavior.
func (m *Manager) SetProfile(p Profile) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.profile = p
	mode := m.mode
	m.mu.Unlock()

	m.logger.Info("profile changed to %s", p.Name)
	m.scheduler.Reconfigure(m.schedulerConfig(mode, p))
	m.applyCachePolicy(p)
}

// Result returns the most recently published aggregated result.
func (m *Manager) Result() suggest.AggregatedResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAgg
}

// SuggestionAt returns the highest-priority suggestion covering the
// document offset, from the most recent aggregated result.
func (m *Manager) SuggestionAt(offset int) (suggest.Suggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAgg.At(offset)
}

// ApplyFix resolves a suggestion ID and replacement index into the
// edit the host should apply. The manager never touches the document
// itself.
func (m *Manager) ApplyFix(id string, replacement int) (Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.lastAgg.Suggestions {
		if s.ID != id {
			continue
		}
		if replacement < 0 || replacement >= len(s.Replacements) {
			return Fix{}, ErrNoReplacement
		}
		return Fix{Span: s.Span, Replacement: s.Replacements[replacement]}, nil
	}
	return Fix{}, ErrUnknownSuggestion
}

// EngineStatus returns the current availability of an engine.
func (m *Manager) EngineStatus(src suggest.Source) EngineStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[src]
}

// Stats returns per-engine counter snapshots.
func (m *Manager) Stats() map[suggest.Source]engine.Stats {
	out := make(map[suggest.Source]engine.Stats, 2)
	if m.rule != nil {
		out[suggest.SourceRule] = m.rule.Stats()
	}
	if m.inference != nil {
		out[suggest.SourceInference] = m.inference.Stats()
	}
	return out
}

// CheckNow runs a forced synchronous check of the given text with all
// engines the mode and profile allow, in parallel, bypassing the
// debounce timers. It publishes and returns the aggregated result.
func (m *Manager) CheckNow(ctx context.Context, text string) (suggest.AggregatedResult, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return suggest.AggregatedResult{}, errors.New("check: manager is shut down")
	}
	key := cache.Checksum(text)
	m.currentKey = key
	mode, profile := m.mode, m.profile
	m.mu.Unlock()

	ruleRes := suggest.EmptyResult()
	infRes := suggest.EmptyResult()

	g, gctx := errgroup.WithContext(ctx)
	if mode.ruleEnabled() && profile.RuleEnabled && m.rule != nil {
		g.Go(func() error {
			ruleRes = m.rule.Check(gctx, text)
			return nil
		})
	}
	if mode.inferenceEnabled() && profile.InferenceEnabled && m.inference != nil {
		g.Go(func() error {
			infRes = m.inference.Check(gctx, text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return suggest.AggregatedResult{}, err
	}

	agg := suggest.Merge(ruleRes, infRes)

	m.mu.Lock()
	if key == m.currentKey {
		m.slots[suggest.SourceRule] = &engineSlot{result: ruleRes, key: key, valid: true}
		m.slots[suggest.SourceInference] = &engineSlot{result: infRes, key: key, valid: true}
		m.lastAgg = agg
	}
	listener := m.onResult
	m.mu.Unlock()

	if m.rule != nil && mode.ruleEnabled() && profile.RuleEnabled {
		m.updateStatus(m.rule, ruleRes)
	}
	if m.inference != nil && mode.inferenceEnabled() && profile.InferenceEnabled {
		m.updateStatus(m.inference, infRes)
	}
	if listener != nil {
		listener(agg)
	}
	return agg, nil
}

// ClearCaches drops both engines' result caches.
func (m *Manager) ClearCaches() {
	if m.rule != nil {
		m.rule.ClearCache()
	}
	if m.inference != nil {
		m.inference.ClearCache()
	}
}

// Shutdown cancels timers and in-flight checks and waits for workers
// to drain. The manager is unusable afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.currentKey = 0
	m.mu.Unlock()

	m.scheduler.Cancel()
	m.cancel()
	m.wg.Wait()
	m.ClearCaches()
	m.logger.Info("shut down")
}

// onFire is the scheduler callback. It runs on the timer goroutine and
// must hand off quickly.
func (m *Manager) onFire(lane schedule.Lane, snap schedule.Snapshot) {
	m.dispatch(lane, snap)
}

// dispatch starts an engine run for the snapshot unless it is stale,
// the engine is disabled, or a run on that engine is already in
// flight. A busy engine records the snapshot and re-fires when the
// current run completes.
func (m *Manager) dispatch(lane schedule.Lane, snap schedule.Snapshot) {
	eng := m.engineFor(lane)
	if eng == nil {
		if lane == schedule.LaneFast {
			m.scheduler.FastFinished()
		}
		return
	}
	src := eng.Source()

	m.mu.Lock()
	if m.closed || snap.Key != m.currentKey || !m.engineAllowed(src) {
		m.mu.Unlock()
		// No check will run for this fire, so the slow-lane gate must
		// not stay raised.
		if lane == schedule.LaneFast {
			m.scheduler.FastFinished()
		}
		return
	}
	if m.busy[src] {
		// The in-flight run's completion releases the gate.
		m.pending[src] = snap
		m.mu.Unlock()
		return
	}
	m.busy[src] = true
	if lane == schedule.LaneFast {
		m.scheduler.FastStarted()
	}
	// Registering the worker under the same lock as the closed check
	// keeps it ordered before Shutdown's wg.Wait.
	m.wg.Add(1)
	m.mu.Unlock()

	resilience.SafeGo(func() {
		defer m.wg.Done()
		result := eng.Check(m.ctx, snap.Text)
		m.complete(lane, eng, snap, result)
	}, func(recovered any) {
		m.logger.Error("%s worker panicked: %v", eng.Name(), recovered)
	})
}

// complete folds an engine completion into the manager state, merging
// with the other engine's last result for the same snapshot, then
// publishes. Completions whose snapshot is no longer current are
// discarded.
func (m *Manager) complete(lane schedule.Lane, eng engine.Engine, snap schedule.Snapshot, result suggest.CheckResult) {
	src := eng.Source()

	m.mu.Lock()
	m.busy[src] = false
	next, hasNext := m.pending[src]
	delete(m.pending, src)

	stale := snap.Key != m.currentKey || m.closed
	var agg suggest.AggregatedResult
	if !stale {
		// Failures are stored too, so the merged result carries the
		// failure state for this snapshot instead of an empty success.
		m.slots[src] = &engineSlot{result: result, key: snap.Key, valid: true}
		agg = suggest.Merge(
			m.slotResult(suggest.SourceRule, snap.Key),
			m.slotResult(suggest.SourceInference, snap.Key),
		)
		m.lastAgg = agg
	}
	listener := m.onResult
	m.mu.Unlock()

	m.updateStatus(eng, result)

	// Release the slow-lane gate only after state is updated, so a
	// gated inference completion merges against this rule result.
	if lane == schedule.LaneFast {
		m.scheduler.FastFinished()
	}

	if !stale && listener != nil {
		listener(agg)
	}
	if hasNext {
		m.dispatch(lane, next)
	}
}

// slotResult returns the engine's stored result when it belongs to the
// given snapshot, otherwise an empty success.
func (m *Manager) slotResult(src suggest.Source, key cache.Key) suggest.CheckResult {
	slot := m.slots[src]
	if slot != nil && slot.valid && slot.key == key {
		return slot.result
	}
	return suggest.EmptyResult()
}

// updateStatus derives engine availability from the completion and
// fires the status listener on transitions only.
func (m *Manager) updateStatus(eng engine.Engine, result suggest.CheckResult) {
	src := eng.Source()
	var st EngineStatus
	switch {
	case result.Success:
		st = StatusAvailable
	case eng.BreakerState() == resilience.BreakerOpen:
		st = StatusDown
	default:
		st = StatusDegraded
	}

	m.mu.Lock()
	changed := m.status[src] != st
	m.status[src] = st
	listener := m.onStatus
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("engine %s is %s", eng.Name(), st)
	if listener != nil {
		listener(src, st)
	}
}

func (m *Manager) engineFor(lane schedule.Lane) engine.Engine {
	if lane == schedule.LaneFast {
		return m.rule
	}
	return m.inference
}

// engineAllowed reports whether the current mode and profile both
// enable the source. Caller holds m.mu.
func (m *Manager) engineAllowed(src suggest.Source) bool {
	if src == suggest.SourceRule {
		return m.mode.ruleEnabled() && m.profile.RuleEnabled
	}
	return m.mode.inferenceEnabled() && m.profile.InferenceEnabled
}

func (m *Manager) schedulerConfig(mode Mode, p Profile) schedule.Config {
	return schedule.Config{
		FastDelay:      p.FastDelay,
		SlowDelay:      p.SlowDelay,
		FastEnabled:    mode.ruleEnabled() && p.RuleEnabled && m.rule != nil,
		SlowEnabled:    mode.inferenceEnabled() && p.InferenceEnabled && m.inference != nil,
		GateSlowOnFast: mode == ModeHybrid,
	}
}

func (m *Manager) applyCachePolicy(p Profile) {
	if m.rule != nil {
		m.rule.SetCacheBypass(!p.CacheEnabled)
	}
	if m.inference != nil {
		m.inference.SetCacheBypass(!p.CacheEnabled)
	}
}
