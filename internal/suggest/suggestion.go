// Package suggest defines the suggestion data model shared by the checking
// engines and the aggregation layer: individual suggestions, per-engine
// check results, and the merged aggregated result handed to the host editor.
package suggest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies which checking engine produced a suggestion.
type Source int

const (
	// SourceRule is the deterministic rule engine.
	SourceRule Source = iota

	// SourceInference is the context-aware inference engine.
	SourceInference
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceRule:
		return "rule"
	case SourceInference:
		return "inference"
	default:
		return "unknown"
	}
}

// Category classifies what kind of issue a suggestion flags.
type Category int

const (
	// CategoryGrammar is a grammatical error.
	CategoryGrammar Category = iota

	// CategoryStyle is a stylistic issue.
	CategoryStyle

	// CategorySpelling is a misspelled word.
	CategorySpelling

	// CategoryPunctuation is a punctuation issue.
	CategoryPunctuation

	// CategoryReadability is a readability concern.
	CategoryReadability

	// CategoryInference is a free-form inference-engine suggestion that
	// does not map onto one of the mechanical categories.
	CategoryInference
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryGrammar:
		return "grammar"
	case CategoryStyle:
		return "style"
	case CategorySpelling:
		return "spelling"
	case CategoryPunctuation:
		return "punctuation"
	case CategoryReadability:
		return "readability"
	case CategoryInference:
		return "suggestion"
	default:
		return "unknown"
	}
}

// ParseCategory maps a category name to a Category. Unknown names map to
// CategoryInference.
func ParseCategory(s string) Category {
	switch s {
	case "grammar", "GRAMMAR":
		return CategoryGrammar
	case "style", "STYLE", "typography", "TYPOGRAPHY":
		return CategoryStyle
	case "spelling", "SPELLING", "typos", "TYPOS", "misspelling", "MISSPELLING":
		return CategorySpelling
	case "punctuation", "PUNCTUATION":
		return CategoryPunctuation
	case "readability", "READABILITY", "clarity", "CLARITY":
		return CategoryReadability
	default:
		return CategoryInference
	}
}

// Severity ranks how serious a suggestion is. Lower values rank higher,
// matching the diagnostic severity convention (Error=1 ... Hint=4).
type Severity int

const (
	// SeverityError is a definite mistake.
	SeverityError Severity = 1

	// SeverityWarning is a probable mistake.
	SeverityWarning Severity = 2

	// SeverityInfo is an informational note.
	SeverityInfo Severity = 3

	// SeverityHint is a low-priority nudge.
	SeverityHint Severity = 4
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	case SeverityHint:
		return "Hint"
	default:
		return "Unknown"
	}
}

// Icon returns a single character icon for the severity.
func (s Severity) Icon() string {
	switch s {
	case SeverityError:
		return "E"
	case SeverityWarning:
		return "W"
	case SeverityInfo:
		return "I"
	case SeverityHint:
		return "H"
	default:
		return "?"
	}
}

// Span is a half-open [Start, End) byte-offset range into the original
// document text. Spans are always expressed in original document
// coordinates; translating out of filtered-text coordinates is the
// producing adapter's job.
type Span struct {
	Start int
	End   int
}

// Contains reports whether the offset falls within the span.
func (sp Span) Contains(offset int) bool {
	return offset >= sp.Start && offset < sp.End
}

// Overlaps reports whether two spans share at least one offset.
func (sp Span) Overlaps(other Span) bool {
	return sp.Start < other.End && other.Start < sp.End
}

// Valid reports whether the span is well-formed for a document of the
// given length.
func (sp Span) Valid(docLen int) bool {
	return sp.Start >= 0 && sp.Start < sp.End && sp.End <= docLen
}

// Suggestion is a single immutable finding produced by a checking engine.
type Suggestion struct {
	// ID uniquely identifies the suggestion for fix application.
	ID string

	// Source is the engine that produced the suggestion.
	Source Source

	// Category classifies the issue.
	Category Category

	// Severity ranks the issue.
	Severity Severity

	// Span locates the issue in original document coordinates.
	Span Span

	// Message explains the issue.
	Message string

	// Replacements holds candidate fixes in preference order. May be empty.
	Replacements []string
}

// NewSuggestion constructs a suggestion with a fresh ID.
func NewSuggestion(src Source, cat Category, sev Severity, span Span, msg string, replacements []string) Suggestion {
	return Suggestion{
		ID:           uuid.NewString(),
		Source:       src,
		Category:     cat,
		Severity:     sev,
		Span:         span,
		Message:      msg,
		Replacements: replacements,
	}
}

// Format renders a suggestion for display.
func Format(s Suggestion) string {
	out := fmt.Sprintf("%s [%s/%s] %d:%d %s", s.Severity.Icon(), s.Source, s.Category, s.Span.Start, s.Span.End, s.Message)
	if len(s.Replacements) > 0 {
		out += fmt.Sprintf(" (-> %q)", s.Replacements[0])
	}
	return out
}

// CheckResult is the outcome of a single adapter invocation. It is
// constructed once, never mutated, consumed by the deduplicator, and then
// discarded apart from the cache entry.
type CheckResult struct {
	// Suggestions found during the check, in original coordinates.
	Suggestions []Suggestion

	// Success is false when the engine call failed outright. A failed
	// result carries no suggestions and is never fatal to the caller.
	Success bool

	// ErrMessage describes the failure when Success is false.
	ErrMessage string

	// Elapsed is how long the check took.
	Elapsed time.Duration

	// WordCount is the number of words in the checked text.
	WordCount int

	// FromCache is true when the result was served from the result cache.
	FromCache bool
}

// EmptyResult returns a successful result with no suggestions.
func EmptyResult() CheckResult {
	return CheckResult{Success: true}
}

// FailedResult returns an unsuccessful result carrying an error message.
func FailedResult(err error) CheckResult {
	return CheckResult{ErrMessage: err.Error()}
}

// AggregatedResult is the deduplicated merge of both engines' latest
// results for one checking cycle. Each cycle's result replaces the
// previous one wholesale; there is no incremental patching.
type AggregatedResult struct {
	// Suggestions is position-sorted and contains no overlapping spans.
	Suggestions []Suggestion

	// RuleResult and InferenceResult are the source results, retained
	// for statistics and debugging.
	RuleResult      CheckResult
	InferenceResult CheckResult
}

// At returns the first suggestion whose span contains the offset, or
// false if none does.
func (ar AggregatedResult) At(offset int) (Suggestion, bool) {
	for _, s := range ar.Suggestions {
		if s.Span.Contains(offset) {
			return s, true
		}
		if s.Span.Start > offset {
			break
		}
	}
	return Suggestion{}, false
}

// CountBySeverity tallies suggestions per severity.
func (ar AggregatedResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, s := range ar.Suggestions {
		counts[s.Severity]++
	}
	return counts
}
