package suggest

import "testing"

func ruleSug(start, end int, sev Severity) Suggestion {
	return NewSuggestion(SourceRule, CategoryGrammar, sev, Span{Start: start, End: end}, "rule", nil)
}

func inferSug(start, end int, sev Severity) Suggestion {
	return NewSuggestion(SourceInference, CategoryStyle, sev, Span{Start: start, End: end}, "inference", nil)
}

func TestMerge_OverlapPrefersRule(t *testing.T) {
	rule := CheckResult{Success: true, Suggestions: []Suggestion{ruleSug(0, 5, SeverityWarning)}}
	infer := CheckResult{Success: true, Suggestions: []Suggestion{inferSug(2, 8, SeverityError)}}

	agg := Merge(rule, infer)

	if len(agg.Suggestions) != 1 {
		t.Fatalf("len = %d, want 1", len(agg.Suggestions))
	}
	if agg.Suggestions[0].Source != SourceRule {
		t.Errorf("source = %v, want rule", agg.Suggestions[0].Source)
	}
}

func TestMerge_OverlapPrefersRuleRegardlessOfOrder(t *testing.T) {
	// Inference span starts first; the rule suggestion must still win.
	rule := CheckResult{Success: true, Suggestions: []Suggestion{ruleSug(3, 9, SeverityWarning)}}
	infer := CheckResult{Success: true, Suggestions: []Suggestion{inferSug(0, 5, SeverityError)}}

	agg := Merge(rule, infer)

	if len(agg.Suggestions) != 1 {
		t.Fatalf("len = %d, want 1", len(agg.Suggestions))
	}
	if agg.Suggestions[0].Source != SourceRule {
		t.Errorf("source = %v, want rule", agg.Suggestions[0].Source)
	}
}

func TestMerge_NonOverlappingKeepsBothSorted(t *testing.T) {
	rule := CheckResult{Success: true, Suggestions: []Suggestion{ruleSug(10, 15, SeverityError)}}
	infer := CheckResult{Success: true, Suggestions: []Suggestion{inferSug(0, 5, SeverityInfo)}}

	agg := Merge(rule, infer)

	if len(agg.Suggestions) != 2 {
		t.Fatalf("len = %d, want 2", len(agg.Suggestions))
	}
	if agg.Suggestions[0].Span.Start != 0 || agg.Suggestions[1].Span.Start != 10 {
		t.Errorf("not sorted by start: %v, %v", agg.Suggestions[0].Span, agg.Suggestions[1].Span)
	}
}

func TestMerge_SameSourceHigherSeverityWins(t *testing.T) {
	rule := CheckResult{Success: true, Suggestions: []Suggestion{
		ruleSug(0, 5, SeverityHint),
		ruleSug(3, 7, SeverityError),
	}}

	agg := Merge(rule, CheckResult{Success: true})

	if len(agg.Suggestions) != 1 {
		t.Fatalf("len = %d, want 1", len(agg.Suggestions))
	}
	if agg.Suggestions[0].Severity != SeverityError {
		t.Errorf("severity = %v, want Error", agg.Suggestions[0].Severity)
	}
}

func TestMerge_SeverityTieKeepsFirst(t *testing.T) {
	first := inferSug(0, 5, SeverityWarning)
	second := inferSug(2, 6, SeverityWarning)
	infer := CheckResult{Success: true, Suggestions: []Suggestion{first, second}}

	agg := Merge(CheckResult{Success: true}, infer)

	if len(agg.Suggestions) != 1 {
		t.Fatalf("len = %d, want 1", len(agg.Suggestions))
	}
	if agg.Suggestions[0].ID != first.ID {
		t.Error("tie did not keep the first-encountered suggestion")
	}
}

func TestMerge_NoOverlapsInOutput(t *testing.T) {
	rule := CheckResult{Success: true, Suggestions: []Suggestion{
		ruleSug(0, 4, SeverityError),
		ruleSug(8, 12, SeverityWarning),
	}}
	infer := CheckResult{Success: true, Suggestions: []Suggestion{
		inferSug(2, 10, SeverityError),
		inferSug(20, 25, SeverityHint),
	}}

	agg := Merge(rule, infer)

	for i := 1; i < len(agg.Suggestions); i++ {
		if agg.Suggestions[i-1].Span.Overlaps(agg.Suggestions[i].Span) {
			t.Errorf("output contains overlapping spans %v and %v",
				agg.Suggestions[i-1].Span, agg.Suggestions[i].Span)
		}
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	agg := Merge(CheckResult{Success: true}, CheckResult{Success: true})
	if len(agg.Suggestions) != 0 {
		t.Errorf("len = %d, want 0", len(agg.Suggestions))
	}
}

func TestAggregatedResult_At(t *testing.T) {
	agg := Merge(
		CheckResult{Success: true, Suggestions: []Suggestion{ruleSug(5, 10, SeverityError)}},
		CheckResult{Success: true},
	)

	if _, ok := agg.At(4); ok {
		t.Error("At(4) found a suggestion before the span")
	}
	if s, ok := agg.At(5); !ok || s.Span.Start != 5 {
		t.Error("At(5) did not find the suggestion")
	}
	if s, ok := agg.At(9); !ok || s.Span.Start != 5 {
		t.Error("At(9) did not find the suggestion")
	}
	if _, ok := agg.At(10); ok {
		t.Error("At(10) found a suggestion at the exclusive end")
	}
}

func TestSpan_Valid(t *testing.T) {
	tests := []struct {
		span   Span
		docLen int
		want   bool
	}{
		{Span{0, 3}, 10, true},
		{Span{0, 10}, 10, true},
		{Span{-1, 3}, 10, false},
		{Span{3, 3}, 10, false},
		{Span{5, 2}, 10, false},
		{Span{0, 11}, 10, false},
	}

	for _, tt := range tests {
		if got := tt.span.Valid(tt.docLen); got != tt.want {
			t.Errorf("Valid(%v, %d) = %v, want %v", tt.span, tt.docLen, got, tt.want)
		}
	}
}
