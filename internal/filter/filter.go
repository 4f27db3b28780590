// Package filter strips markup from document text before it is handed to
// a checking engine.
//
// Filters blank markup constructs with whitespace of equal byte length
// rather than deleting them, so byte offsets in the filtered text line up
// one-to-one with the original document and suggestion spans need no
// translation. The OffsetMap type still exposes an explicit mapping for
// callers, and supports variable-length filters should one be added.
package filter

import (
	"regexp"
	"sort"
	"strings"
)

// Result is the output of filtering a document.
type Result struct {
	// Text is the checkable plain text, same byte length as the input
	// for blanking filters.
	Text string

	// Map translates filtered-text offsets back to original offsets.
	Map OffsetMap
}

// IsBlank reports whether the filtered text has no checkable content.
// Callers must treat a blank result as nothing-to-check and skip the
// engines entirely.
func (r Result) IsBlank() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Filter produces a checkable plain-text view of a document.
type Filter interface {
	// Name identifies the filter for logging.
	Name() string

	// Filter strips markup from the document text.
	Filter(text string) Result
}

// Breakpoint records that filtered offset Filtered corresponds to
// original offset Original, with a constant shift until the next
// breakpoint.
type Breakpoint struct {
	Filtered int
	Original int
}

// OffsetMap is a monotonic non-decreasing mapping from filtered-text
// offsets to original-document offsets. The zero value is the identity
// mapping, which is what equal-length blanking filters produce.
type OffsetMap struct {
	breakpoints []Breakpoint
}

// NewOffsetMap builds a map from sorted breakpoints.
func NewOffsetMap(breakpoints []Breakpoint) OffsetMap {
	return OffsetMap{breakpoints: breakpoints}
}

// ToOriginal translates a filtered-text offset to an original-document
// offset in O(log n).
func (m OffsetMap) ToOriginal(offset int) int {
	if len(m.breakpoints) == 0 {
		return offset
	}
	i := sort.Search(len(m.breakpoints), func(i int) bool {
		return m.breakpoints[i].Filtered > offset
	})
	if i == 0 {
		return offset
	}
	bp := m.breakpoints[i-1]
	return bp.Original + (offset - bp.Filtered)
}

// Identity reports whether the map is the identity mapping.
func (m OffsetMap) Identity() bool {
	return len(m.breakpoints) == 0
}

// blankBytes replaces every byte of buf[start:end] except line breaks
// with a space. Operating on bytes keeps multi-byte runes the same
// length, preserving every byte offset in the document.
func blankBytes(buf []byte, start, end int) {
	for i := start; i < end && i < len(buf); i++ {
		if buf[i] != '\n' && buf[i] != '\r' {
			buf[i] = ' '
		}
	}
}

var (
	asciidocTitleRe = regexp.MustCompile(`(?m)^=+ \S`)
	asciidocAttrRe  = regexp.MustCompile(`(?m)^:[!\w][\w-]*!?:`)
	asciidocBlockRe = regexp.MustCompile(`(?m)^(----|\.\.\.\.|////|\+\+\+\+)\s*$`)
	markdownFenceRe = regexp.MustCompile("(?m)^(```|~~~)")
	markdownHeadRe  = regexp.MustCompile(`(?m)^#{1,6} \S`)
)

// Detect picks a filter by sniffing the document content. AsciiDoc is
// the host format, so it wins ambiguous cases; documents with Markdown
// fences or ATX headings and no AsciiDoc markers get the Markdown
// filter; everything else passes through the AsciiDoc filter, which
// leaves marker-free prose untouched.
func Detect(text string) Filter {
	if asciidocTitleRe.MatchString(text) || asciidocAttrRe.MatchString(text) || asciidocBlockRe.MatchString(text) {
		return NewAsciiDoc()
	}
	if markdownFenceRe.MatchString(text) || markdownHeadRe.MatchString(text) {
		return NewMarkdown()
	}
	return NewAsciiDoc()
}
