package infer

import (
	"context"
	"strings"
	"testing"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

func TestParse_StructuredJSON(t *testing.T) {
	plain := "Teh cat sat on teh mat."
	raw := `[
		{"original": "Teh", "replacement": "The", "message": "Misspelling", "category": "spelling"},
		{"original": "teh", "replacement": "the", "message": "Misspelling", "category": "spelling"}
	]`

	got := Parse(raw, plain)

	if len(got) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(got))
	}
	if got[0].Span != (suggest.Span{Start: 0, End: 3}) {
		t.Errorf("first span = %v, want 0:3", got[0].Span)
	}
	if got[1].Span != (suggest.Span{Start: 15, End: 18}) {
		t.Errorf("second span = %v, want 15:18", got[1].Span)
	}
	if got[0].Category != suggest.CategorySpelling {
		t.Errorf("category = %v", got[0].Category)
	}
	if len(got[0].Replacements) != 1 || got[0].Replacements[0] != "The" {
		t.Errorf("replacements = %v", got[0].Replacements)
	}
}

func TestParse_StructuredJSONInFence(t *testing.T) {
	plain := "Teh cat."
	raw := "Here are the issues:\n```json\n[{\"original\": \"Teh\", \"replacement\": \"The\", \"message\": \"typo\", \"category\": \"spelling\"}]\n```\n"

	got := Parse(raw, plain)

	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(got))
	}
	if got[0].Span != (suggest.Span{Start: 0, End: 3}) {
		t.Errorf("span = %v", got[0].Span)
	}
}

func TestParse_RepeatedPhraseAdvancesSearch(t *testing.T) {
	plain := "very good and very good."
	raw := `[
		{"original": "very good", "replacement": "excellent", "message": "wordy", "category": "style"},
		{"original": "very good", "replacement": "excellent", "message": "wordy", "category": "style"}
	]`

	got := Parse(raw, plain)

	if len(got) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(got))
	}
	if got[0].Span.Start != 0 {
		t.Errorf("first occurrence at %d, want 0", got[0].Span.Start)
	}
	if got[1].Span.Start != 14 {
		t.Errorf("second occurrence at %d, want 14", got[1].Span.Start)
	}
}

func TestParse_CaseInsensitiveFallback(t *testing.T) {
	plain := "THE CAT sat."
	raw := `[{"original": "the cat", "replacement": "a cat", "message": "m", "category": "style"}]`

	got := Parse(raw, plain)

	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(got))
	}
	if got[0].Span != (suggest.Span{Start: 0, End: 7}) {
		t.Errorf("span = %v, want 0:7", got[0].Span)
	}
}

func TestParse_CaseFoldSpansIndexOriginalBytes(t *testing.T) {
	// Lowercasing "İ" grows it from two bytes to three, so a span
	// computed against a lowercased copy would drift. The span must
	// slice the original text cleanly on rune boundaries.
	plain := "İstanbul is lovely."
	raw := `[{"original": "istanbul", "replacement": "Istanbul", "message": "m", "category": "style"}]`

	got := Parse(raw, plain)

	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(got))
	}
	want := suggest.Span{Start: 0, End: len("İstanbul")}
	if got[0].Span != want {
		t.Errorf("span = %v, want %v", got[0].Span, want)
	}
	if plain[got[0].Span.Start:got[0].Span.End] != "İstanbul" {
		t.Errorf("span slices %q, want %q", plain[got[0].Span.Start:got[0].Span.End], "İstanbul")
	}
}

func TestParse_UnlocatableFindingDropped(t *testing.T) {
	plain := "Nothing matches here."
	raw := `[{"original": "absent phrase", "replacement": "x", "message": "m", "category": "style"}]`

	if got := Parse(raw, plain); len(got) != 0 {
		t.Errorf("suggestions = %d, want 0", len(got))
	}
}

func TestParse_EmptyArray(t *testing.T) {
	if got := Parse("[]", "Fine text."); len(got) != 0 {
		t.Errorf("suggestions = %d, want 0", len(got))
	}
}

func TestParse_CorrectedTextDiff(t *testing.T) {
	plain := "Teh cat sat on the mat."
	raw := "The cat sat on the mat."

	got := Parse(raw, plain)

	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(got))
	}
	s := got[0]
	if s.Span.Start != 0 {
		t.Errorf("span start = %d, want 0", s.Span.Start)
	}
	if len(s.Replacements) != 1 {
		t.Fatalf("replacements = %v", s.Replacements)
	}
	// Applying the replacement to the span must yield the correction.
	applied := plain[:s.Span.Start] + s.Replacements[0] + plain[s.Span.End:]
	if applied != raw {
		t.Errorf("applying fix gives %q, want %q", applied, raw)
	}
}

func TestParse_IdenticalRewriteYieldsNothing(t *testing.T) {
	plain := "Already perfect text."

	if got := Parse(plain, plain); len(got) != 0 {
		t.Errorf("suggestions = %d for identical rewrite, want 0", len(got))
	}
}

func TestParse_CategorizedNotes(t *testing.T) {
	plain := "  Some long passage of text.  "
	raw := "- Style: The passage is wordy.\n- Readability: Sentences run long.\n"

	got := Parse(raw, plain)

	if len(got) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(got))
	}
	want := suggest.Span{Start: 2, End: 28}
	for _, s := range got {
		if s.Span != want {
			t.Errorf("span = %v, want whole content %v", s.Span, want)
		}
	}
	if got[0].Category != suggest.CategoryStyle {
		t.Errorf("first category = %v, want style", got[0].Category)
	}
	if got[1].Category != suggest.CategoryReadability {
		t.Errorf("second category = %v, want readability", got[1].Category)
	}
}

func TestTemplate_Render(t *testing.T) {
	tpl := TemplateByName("proofread")

	system, user := tpl.Render("The document body.")

	if system == "" {
		t.Error("empty system prompt")
	}
	if !strings.Contains(user, "The document body.") {
		t.Error("document text not interpolated")
	}
	if strings.Contains(user, "{{text}}") {
		t.Error("placeholder survived rendering")
	}
}

func TestTemplateByName_UnknownFallsBack(t *testing.T) {
	if got := TemplateByName("no-such-template"); got.Name != "proofread" {
		t.Errorf("fallback template = %q, want proofread", got.Name)
	}
}

func TestAdapter_EndToEnd(t *testing.T) {
	client := ClientFunc(func(_ context.Context, _, user string, _ SamplingParams) (string, error) {
		if !strings.Contains(user, "Teh cat sat.") {
			t.Errorf("prompt missing document text: %q", user)
		}
		return `[{"original": "Teh", "replacement": "The", "message": "typo", "category": "spelling"}]`, nil
	})

	adapter := NewAdapter(client, DefaultConfig(), nil)
	result := adapter.Check(context.Background(), "Teh cat sat.\n")

	if !result.Success {
		t.Fatalf("check failed: %s", result.ErrMessage)
	}
	if len(result.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(result.Suggestions))
	}
	if result.Suggestions[0].Span != (suggest.Span{Start: 0, End: 3}) {
		t.Errorf("span = %v, want 0:3", result.Suggestions[0].Span)
	}
	if result.Suggestions[0].Source != suggest.SourceInference {
		t.Errorf("source = %v", result.Suggestions[0].Source)
	}
}
