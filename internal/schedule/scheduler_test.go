package schedule

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	var fires int

	d := NewDebouncer(30*time.Millisecond, func() {
		mu.Lock()
		fires++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		d.Call()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fires != 1 {
		t.Errorf("fires = %d, want 1", fires)
	}
}

func TestDebouncer_CancelPreventsFire(t *testing.T) {
	var mu sync.Mutex
	var fires int

	d := NewDebouncer(20*time.Millisecond, func() {
		mu.Lock()
		fires++
		mu.Unlock()
	})

	d.Call()
	d.Cancel()

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fires != 0 {
		t.Errorf("fires = %d after Cancel, want 0", fires)
	}
}

type fireRecorder struct {
	mu    sync.Mutex
	fires []struct {
		lane Lane
		snap Snapshot
	}

	// ack, when set, runs after each fast fire, standing in for the
	// receiver's FastFinished call.
	ack func()
}

func (r *fireRecorder) fire(lane Lane, snap Snapshot) {
	r.mu.Lock()
	r.fires = append(r.fires, struct {
		lane Lane
		snap Snapshot
	}{lane, snap})
	ack := r.ack
	r.mu.Unlock()

	if lane == LaneFast && ack != nil {
		ack()
	}
}

func (r *fireRecorder) count(lane Lane) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.fires {
		if f.lane == lane {
			n++
		}
	}
	return n
}

func (r *fireRecorder) last(lane Lane) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.fires) - 1; i >= 0; i-- {
		if r.fires[i].lane == lane {
			return r.fires[i].snap, true
		}
	}
	return Snapshot{}, false
}

func testConfig() Config {
	return Config{
		FastDelay:      20 * time.Millisecond,
		SlowDelay:      40 * time.Millisecond,
		FastEnabled:    true,
		SlowEnabled:    true,
		GateSlowOnFast: true,
	}
}

func TestScheduler_RapidChangesFireOncePerLaneWithLastText(t *testing.T) {
	rec := &fireRecorder{}
	s := New(testConfig(), rec.fire)
	rec.ack = s.FastFinished

	s.OnTextChanged("one")
	time.Sleep(5 * time.Millisecond)
	s.OnTextChanged("two")
	time.Sleep(5 * time.Millisecond)
	s.OnTextChanged("three")

	time.Sleep(150 * time.Millisecond)

	if got := rec.count(LaneFast); got != 1 {
		t.Errorf("fast fires = %d, want 1", got)
	}
	if got := rec.count(LaneSlow); got != 1 {
		t.Errorf("slow fires = %d, want 1", got)
	}
	if snap, ok := rec.last(LaneFast); !ok || snap.Text != "three" {
		t.Errorf("fast fired with %q, want last text", snap.Text)
	}
	if snap, ok := rec.last(LaneSlow); !ok || snap.Text != "three" {
		t.Errorf("slow fired with %q, want last text", snap.Text)
	}
}

func TestScheduler_DisabledLanesDoNotFire(t *testing.T) {
	rec := &fireRecorder{}
	cfg := testConfig()
	cfg.SlowEnabled = false
	s := New(cfg, rec.fire)

	s.OnTextChanged("text")
	time.Sleep(120 * time.Millisecond)

	if got := rec.count(LaneFast); got != 1 {
		t.Errorf("fast fires = %d, want 1", got)
	}
	if got := rec.count(LaneSlow); got != 0 {
		t.Errorf("slow fires = %d, want 0", got)
	}
}

func TestScheduler_SlowGatedUntilFastFinishes(t *testing.T) {
	rec := &fireRecorder{}
	s := New(testConfig(), rec.fire)

	s.OnTextChanged("doc")
	s.FastStarted() // fast check in flight across the slow timer's fire

	time.Sleep(120 * time.Millisecond)

	if got := rec.count(LaneSlow); got != 0 {
		t.Fatalf("slow fired while gated, fires = %d", got)
	}

	s.FastFinished()
	time.Sleep(20 * time.Millisecond)

	if got := rec.count(LaneSlow); got != 1 {
		t.Errorf("slow fires after gate release = %d, want 1", got)
	}
	if snap, _ := rec.last(LaneSlow); snap.Text != "doc" {
		t.Errorf("slow fired with %q, want %q", snap.Text, "doc")
	}
}

func TestScheduler_GateCoversFastDispatchWindow(t *testing.T) {
	// The slow timer can fire in the window between the fast timer
	// elapsing and the receiver reporting FastStarted. The gate must
	// already be raised when the fast fire is delivered.
	rec := &fireRecorder{}
	block := make(chan struct{})
	s := New(testConfig(), func(lane Lane, snap Snapshot) {
		if lane == LaneFast {
			<-block // fast dispatch stalls before it can report back
		}
		rec.fire(lane, snap)
	})

	s.OnTextChanged("doc")
	time.Sleep(120 * time.Millisecond) // both timers elapse; fast fire is stalled

	if got := rec.count(LaneSlow); got != 0 {
		t.Fatalf("slow fired during the fast dispatch window, fires = %d", got)
	}

	close(block)
	time.Sleep(20 * time.Millisecond)
	s.FastFinished()
	time.Sleep(20 * time.Millisecond)

	if got := rec.count(LaneSlow); got != 1 {
		t.Errorf("slow fires after gate release = %d, want 1", got)
	}
	if snap, _ := rec.last(LaneSlow); snap.Text != "doc" {
		t.Errorf("slow fired with %q, want %q", snap.Text, "doc")
	}
}

func TestScheduler_DeferredSlowDroppedOnNewText(t *testing.T) {
	rec := &fireRecorder{}
	cfg := testConfig()
	cfg.FastDelay = 300 * time.Millisecond // keep fast from refiring during the test
	s := New(cfg, rec.fire)

	s.OnTextChanged("old")
	s.FastStarted()
	time.Sleep(80 * time.Millisecond) // slow timer fires gated, defers "old"

	s.OnTextChanged("new") // invalidates the deferred snapshot
	s.FastFinished()
	time.Sleep(10 * time.Millisecond)

	if got := rec.count(LaneSlow); got != 0 {
		t.Errorf("stale deferred slow fire released, fires = %d", got)
	}
}

func TestScheduler_CancelDisarmsEverything(t *testing.T) {
	rec := &fireRecorder{}
	s := New(testConfig(), rec.fire)

	s.OnTextChanged("doc")
	s.Cancel()

	time.Sleep(120 * time.Millisecond)

	if len(rec.fires) != 0 {
		t.Errorf("fires after Cancel = %d, want 0", len(rec.fires))
	}
}
