// Package check provides the orchestration facade the host editor talks
// to. The manager owns both engine adapters, the debounce scheduler, and
// the merge step, and publishes one aggregated result per checking cycle
// without ever blocking the editing surface.
package check

import (
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Mode selects which engines participate in checking.
type Mode int

const (
	// ModeDisabled turns checking off entirely.
	ModeDisabled Mode = iota

	// ModeRuleOnly runs only the rule engine.
	ModeRuleOnly

	// ModeInferenceOnly runs only the inference engine.
	ModeInferenceOnly

	// ModeHybrid runs both engines, gating the inference check on the
	// rule check's completion.
	ModeHybrid
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeRuleOnly:
		return "rule-only"
	case ModeInferenceOnly:
		return "inference-only"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParseMode maps a mode name to a Mode. Unknown names map to hybrid.
func ParseMode(s string) Mode {
	switch s {
	case "disabled", "off":
		return ModeDisabled
	case "rule-only", "rule":
		return ModeRuleOnly
	case "inference-only", "inference", "ai":
		return ModeInferenceOnly
	default:
		return ModeHybrid
	}
}

func (m Mode) ruleEnabled() bool {
	return m == ModeRuleOnly || m == ModeHybrid
}

func (m Mode) inferenceEnabled() bool {
	return m == ModeInferenceOnly || m == ModeHybrid
}

// EngineStatus is the availability signal surfaced to the host for
// optional status indicators.
type EngineStatus int

const (
	// StatusAvailable means the engine is responding normally.
	StatusAvailable EngineStatus = iota

	// StatusDegraded means recent calls failed but the engine is still
	// being tried.
	StatusDegraded

	// StatusDown means the circuit breaker has shelved the engine.
	StatusDown
)

// String returns the status name.
func (s EngineStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusDegraded:
		return "degraded"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Profile parameterizes checking cadence and engine participation.
// Profiles compose with the mode: an engine runs only when both allow
// it.
type Profile struct {
	// Name identifies the profile.
	Name string

	// FastDelay is the rule engine debounce quiet period.
	FastDelay time.Duration

	// SlowDelay is the inference engine debounce quiet period.
	SlowDelay time.Duration

	// RuleEnabled gates the rule engine.
	RuleEnabled bool

	// InferenceEnabled gates the inference engine.
	InferenceEnabled bool

	// CacheEnabled serves repeat checks from the result cache. The
	// thorough profile disables it to force full re-analysis; results
	// are still stored.
	CacheEnabled bool
}

// Built-in profiles.
var profiles = map[string]Profile{
	"fast": {
		Name:             "fast",
		FastDelay:        300 * time.Millisecond,
		SlowDelay:        1500 * time.Millisecond,
		RuleEnabled:      true,
		InferenceEnabled: false,
		CacheEnabled:     true,
	},
	"balanced": {
		Name:             "balanced",
		FastDelay:        400 * time.Millisecond,
		SlowDelay:        2 * time.Second,
		RuleEnabled:      true,
		InferenceEnabled: true,
		CacheEnabled:     true,
	},
	"thorough": {
		Name:             "thorough",
		FastDelay:        800 * time.Millisecond,
		SlowDelay:        4 * time.Second,
		RuleEnabled:      true,
		InferenceEnabled: true,
		CacheEnabled:     false,
	},
}

// ProfileByName returns a built-in profile. Unknown names fall back to
// balanced.
func ProfileByName(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["balanced"]
}

// ResultListener receives each published aggregated result.
type ResultListener func(result suggest.AggregatedResult)

// StatusListener receives engine availability transitions.
type StatusListener func(source suggest.Source, status EngineStatus)

// Fix is the outcome of applying a suggestion: the span to replace and
// the text to put there. The manager never mutates the document; that
// is the host's job.
type Fix struct {
	Span        suggest.Span
	Replacement string
}
