package infer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// The inference engine answers in one of three shapes, detected in
// order:
//
//  1. a structured JSON array of findings with quoted original text
//     (the prompt asks for this, so it is the common case);
//  2. a corrected rewrite of the whole input, turned into a single
//     replacement suggestion by diffing against the input;
//  3. free-form categorized notes, mapped best-effort onto the whole
//     text.
//
// Every path produces spans in filtered-text coordinates; the engine
// pipeline translates and sanity-checks them afterwards.

// Parse turns a raw inference response into suggestions against the
// given plain text. Unusable findings are dropped, never raised.
func Parse(raw, plain string) []suggest.Suggestion {
	if json, ok := extractJSONArray(raw); ok {
		return parseStructured(json, plain)
	}
	if corrected, ok := looksLikeRewrite(raw, plain); ok {
		return diffSuggestion(plain, corrected)
	}
	return parseNotes(raw, plain)
}

// jsonFenceRe matches a fenced block that wraps JSON output.
var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSONArray pulls a JSON array out of the response, tolerating
// code fences and surrounding chatter.
func extractJSONArray(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if m := jsonFenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	start := strings.Index(candidate, "[")
	end := strings.LastIndex(candidate, "]")
	if start < 0 || end <= start {
		return "", false
	}
	candidate = candidate[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}

// parseStructured maps each JSON finding onto the plain text by exact
// substring search: case-sensitive first, case-insensitive as a
// fallback, always taking the first occurrence at or after the previous
// match's end. Findings whose quoted text cannot be located are
// dropped.
func parseStructured(json, plain string) []suggest.Suggestion {
	var out []suggest.Suggestion
	searchFrom := 0

	gjson.Parse(json).ForEach(func(_, item gjson.Result) bool {
		original := firstString(item, "original", "text", "quote")
		if original == "" {
			return true
		}

		start, end := locate(plain, original, searchFrom)
		if start < 0 {
			// Retry from the top; the model may report findings out of
			// document order.
			start, end = locate(plain, original, 0)
		}
		if start < 0 {
			return true
		}

		message := firstString(item, "message", "explanation", "reason")
		if message == "" {
			message = "Suggested improvement"
		}
		category := suggest.ParseCategory(strings.ToLower(item.Get("category").String()))

		var replacements []string
		if replacement := firstString(item, "replacement", "suggestion", "correction"); replacement != "" {
			replacements = []string{replacement}
		}

		out = append(out, suggest.NewSuggestion(
			suggest.SourceInference,
			category,
			severityFor(category),
			suggest.Span{Start: start, End: end},
			message,
			replacements,
		))
		searchFrom = end
		return true
	})

	return out
}

func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// locate finds needle in haystack at or after from and returns the
// matched byte range: case-sensitive first, then rune-wise case
// folding over the original bytes. Folding can change byte lengths, so
// the fold scan never indexes through a lowercased copy; the returned
// range always lies on rune boundaries of haystack.
func locate(haystack, needle string, from int) (start, end int) {
	if from > len(haystack) {
		return -1, -1
	}
	if idx := strings.Index(haystack[from:], needle); idx >= 0 {
		return from + idx, from + idx + len(needle)
	}
	for i := from; i < len(haystack); {
		if n := foldMatch(haystack[i:], needle); n >= 0 {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(haystack[i:])
		i += size
	}
	return -1, -1
}

// foldMatch reports how many bytes at the start of s match needle under
// simple case folding, or -1.
func foldMatch(s, needle string) int {
	i := 0
	for _, nr := range needle {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 {
			return -1
		}
		if r != nr && unicode.ToLower(r) != unicode.ToLower(nr) {
			return -1
		}
		i += size
	}
	return i
}

var notesLineRe = regexp.MustCompile(`^\s*(?:[-*]\s*)?([A-Za-z]+)\s*:\s+(.+)$`)

// looksLikeRewrite decides whether the response is a corrected copy of
// the input rather than notes about it: roughly input-sized, and not a
// list of "Category: note" lines.
func looksLikeRewrite(raw, plain string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if m := jsonFenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		return "", false
	}
	for _, line := range strings.Split(candidate, "\n") {
		if notesLineRe.MatchString(line) {
			return "", false
		}
	}
	plainLen := len(strings.TrimSpace(plain))
	if plainLen == 0 {
		return "", false
	}
	ratio := float64(len(candidate)) / float64(plainLen)
	if ratio < 0.5 || ratio > 1.5 {
		return "", false
	}
	return candidate, true
}

// diffSuggestion reduces a full rewrite to one replacement suggestion
// spanning the changed region, found by trimming the common prefix and
// suffix.
func diffSuggestion(plain, corrected string) []suggest.Suggestion {
	trimmed := strings.TrimRight(plain, " \t\n")

	prefix := 0
	for prefix < len(trimmed) && prefix < len(corrected) && trimmed[prefix] == corrected[prefix] {
		prefix++
	}
	if prefix == len(trimmed) && prefix == len(corrected) {
		return nil // identical, nothing to suggest
	}

	suffix := 0
	for suffix < len(trimmed)-prefix && suffix < len(corrected)-prefix &&
		trimmed[len(trimmed)-1-suffix] == corrected[len(corrected)-1-suffix] {
		suffix++
	}

	start := prefix
	end := len(trimmed) - suffix
	if start >= end {
		// Pure insertion; anchor the span on the character before it.
		if start > 0 {
			start--
		} else {
			end++
		}
	}
	replacement := corrected[prefix : len(corrected)-suffix]

	return []suggest.Suggestion{
		suggest.NewSuggestion(
			suggest.SourceInference,
			suggest.CategoryInference,
			suggest.SeverityInfo,
			suggest.Span{Start: start, End: end},
			"Suggested rewrite",
			[]string{replacement},
		),
	}
}

// parseNotes maps "Category: note" lines onto the whole checkable
// text. When no line parses, the entire response becomes one note.
func parseNotes(raw, plain string) []suggest.Suggestion {
	span, ok := contentSpan(plain)
	if !ok {
		return nil
	}

	var out []suggest.Suggestion
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		m := notesLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		category := suggest.ParseCategory(strings.ToLower(m[1]))
		out = append(out, suggest.NewSuggestion(
			suggest.SourceInference,
			category,
			suggest.SeverityHint,
			span,
			m[2],
			nil,
		))
	}

	if len(out) == 0 {
		note := strings.TrimSpace(raw)
		if note == "" {
			return nil
		}
		out = append(out, suggest.NewSuggestion(
			suggest.SourceInference,
			suggest.CategoryInference,
			suggest.SeverityHint,
			span,
			note,
			nil,
		))
	}
	return out
}

// contentSpan returns the span of plain's non-whitespace content.
func contentSpan(plain string) (suggest.Span, bool) {
	start := 0
	for start < len(plain) && isSpace(plain[start]) {
		start++
	}
	if start == len(plain) {
		return suggest.Span{}, false
	}
	end := len(plain)
	for end > start && isSpace(plain[end-1]) {
		end--
	}
	return suggest.Span{Start: start, End: end}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func severityFor(category suggest.Category) suggest.Severity {
	switch category {
	case suggest.CategorySpelling, suggest.CategoryGrammar:
		return suggest.SeverityWarning
	case suggest.CategoryPunctuation:
		return suggest.SeverityInfo
	default:
		return suggest.SeverityHint
	}
}
