package schedule

import (
	"sync"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/cache"
)

// Lane identifies which engine's timer fired.
type Lane int

const (
	// LaneFast is the rule engine lane.
	LaneFast Lane = iota

	// LaneSlow is the inference engine lane.
	LaneSlow
)

// String returns the lane name.
func (l Lane) String() string {
	switch l {
	case LaneFast:
		return "fast"
	case LaneSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// Snapshot captures the document text a fire refers to. The key is a
// checksum of the raw text, used to detect staleness.
type Snapshot struct {
	Text string
	Key  cache.Key
}

// Config parameterizes the scheduler. Performance profiles map directly
// onto these fields.
type Config struct {
	// FastDelay is the rule engine debounce quiet period.
	FastDelay time.Duration

	// SlowDelay is the inference engine debounce quiet period.
	SlowDelay time.Duration

	// FastEnabled arms the fast lane on text changes.
	FastEnabled bool

	// SlowEnabled arms the slow lane on text changes.
	SlowEnabled bool

	// GateSlowOnFast defers a slow fire while a fast check of the same
	// snapshot is in flight (hybrid mode).
	GateSlowOnFast bool
}

// FireFunc receives a lane fire with the text snapshot to check. When
// hybrid gating is on, a fast fire arrives with the slow-lane gate
// already raised; the receiver must call FastFinished once the fast
// check completes or is skipped.
type FireFunc func(lane Lane, snap Snapshot)

// Scheduler owns the two debounce timers and the hybrid gate.
// It is safe for concurrent use.
type Scheduler struct {
	mu   sync.Mutex
	cfg  Config
	fire FireFunc

	fastDeb *Debouncer
	slowDeb *Debouncer

	snap Snapshot // latest text snapshot

	fastBusy     bool
	deferredSlow bool
	deferredSnap Snapshot
}

// New creates a scheduler that calls fire when a lane's quiet period
// elapses.
func New(cfg Config, fire FireFunc) *Scheduler {
	s := &Scheduler{cfg: cfg, fire: fire}
	s.fastDeb = NewDebouncer(cfg.FastDelay, s.onFastTimer)
	s.slowDeb = NewDebouncer(cfg.SlowDelay, s.onSlowTimer)
	return s
}

// Reconfigure swaps in a new configuration. Pending timers keep their
// already-armed delays; the next text change uses the new ones.
func (s *Scheduler) Reconfigure(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.fastDeb.SetDelay(cfg.FastDelay)
	s.slowDeb.SetDelay(cfg.SlowDelay)
}

// OnTextChanged records the new snapshot and rearms the enabled lanes.
// A pending deferred slow fire is dropped; it refers to stale text.
func (s *Scheduler) OnTextChanged(text string) {
	snap := Snapshot{Text: text, Key: cache.Checksum(text)}

	s.mu.Lock()
	s.snap = snap
	s.deferredSlow = false
	cfg := s.cfg
	s.mu.Unlock()

	if cfg.FastEnabled {
		s.fastDeb.Call()
	} else {
		s.fastDeb.Cancel()
	}
	if cfg.SlowEnabled {
		s.slowDeb.Call()
	} else {
		s.slowDeb.Cancel()
	}
}

// FastStarted tells the gate a fast check is in flight.
func (s *Scheduler) FastStarted() {
	s.mu.Lock()
	s.fastBusy = true
	s.mu.Unlock()
}

// FastFinished releases the gate. A slow fire deferred while the fast
// check ran is released now, provided its snapshot is still current.
func (s *Scheduler) FastFinished() {
	s.mu.Lock()
	s.fastBusy = false
	release := s.deferredSlow && s.deferredSnap.Key == s.snap.Key
	snap := s.deferredSnap
	s.deferredSlow = false
	fire := s.fire
	s.mu.Unlock()

	if release && fire != nil {
		fire(LaneSlow, snap)
	}
}

// Cancel disarms both lanes and drops any deferred fire.
func (s *Scheduler) Cancel() {
	s.fastDeb.Cancel()
	s.slowDeb.Cancel()

	s.mu.Lock()
	s.deferredSlow = false
	s.mu.Unlock()
}

func (s *Scheduler) onFastTimer() {
	s.mu.Lock()
	snap := s.snap
	fire := s.fire
	// Raise the gate before releasing the lock so a slow fire landing
	// during the fast fire's dispatch is deferred, not let through. The
	// receiver releases it via FastFinished, whether or not it starts a
	// check.
	if s.cfg.GateSlowOnFast {
		s.fastBusy = true
	}
	s.mu.Unlock()

	if fire != nil {
		fire(LaneFast, snap)
	}
}

func (s *Scheduler) onSlowTimer() {
	s.mu.Lock()
	if s.cfg.GateSlowOnFast && s.fastBusy {
		s.deferredSlow = true
		s.deferredSnap = s.snap
		s.mu.Unlock()
		return
	}
	snap := s.snap
	fire := s.fire
	s.mu.Unlock()

	if fire != nil {
		fire(LaneSlow, snap)
	}
}
