package suggest

import "sort"

// Merge combines the rule and inference results into one aggregated
// result with a canonical ordering and no overlapping spans.
//
// Both suggestion lists are concatenated and sorted by (start, end). The
// sorted list is then walked once; whenever two spans overlap only one
// survives: a rule suggestion beats an inference suggestion, a
// higher-ranked severity beats a lower one within the same source, and
// otherwise the earlier suggestion in the walk wins. Rule suggestions win
// overlaps because the rule engine is the higher-precision source for
// mechanical errors; the inference engine tends to restate them in
// stylistic terms.
func Merge(ruleResult, inferenceResult CheckResult) AggregatedResult {
	merged := make([]Suggestion, 0, len(ruleResult.Suggestions)+len(inferenceResult.Suggestions))
	merged = append(merged, ruleResult.Suggestions...)
	merged = append(merged, inferenceResult.Suggestions...)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Span.Start != merged[j].Span.Start {
			return merged[i].Span.Start < merged[j].Span.Start
		}
		return merged[i].Span.End < merged[j].Span.End
	})

	// Accepted suggestions are sorted and pairwise disjoint, so a new
	// candidate can only ever overlap the most recently accepted one.
	var kept []Suggestion
	for _, cand := range merged {
		if len(kept) == 0 {
			kept = append(kept, cand)
			continue
		}
		last := kept[len(kept)-1]
		if !last.Span.Overlaps(cand.Span) {
			kept = append(kept, cand)
			continue
		}
		if prefer(cand, last) {
			kept[len(kept)-1] = cand
		}
	}

	return AggregatedResult{
		Suggestions:     kept,
		RuleResult:      ruleResult,
		InferenceResult: inferenceResult,
	}
}

// prefer reports whether the candidate should replace the incumbent when
// their spans overlap. The incumbent was encountered first, so ties keep
// it.
func prefer(cand, incumbent Suggestion) bool {
	if cand.Source != incumbent.Source {
		return cand.Source == SourceRule
	}
	// Lower severity value ranks higher.
	return cand.Severity < incumbent.Severity
}
