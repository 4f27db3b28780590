package filter

import (
	"regexp"
	"strings"
)

// AsciiDoc blanks AsciiDoc markup: comment lines and blocks, attribute
// entries, block and inline macros, block attribute lists, block
// titles, section title markers, and the contents of listing, literal,
// comment, and passthrough delimited blocks. Prose is left in place
// byte for byte.
type AsciiDoc struct{}

// NewAsciiDoc creates the AsciiDoc filter.
func NewAsciiDoc() *AsciiDoc {
	return &AsciiDoc{}
}

// Name implements Filter.
func (f *AsciiDoc) Name() string { return "asciidoc" }

var (
	// Attribute entries: ":name: value", ":name!:".
	attrEntryRe = regexp.MustCompile(`^:[!]?[A-Za-z0-9_][A-Za-z0-9_-]*[!]?:(\s.*)?$`)

	// Block macros: "image::target[attrs]", "include::file.adoc[]".
	blockMacroRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*::[^\s\[]*\[[^\]]*\]\s*$`)

	// Block attribute lists: "[source,go]", "[NOTE]".
	attrListRe = regexp.MustCompile(`^\[[^\]]*\]\s*$`)

	// Block titles: ".A title".
	blockTitleRe = regexp.MustCompile(`^\.[^\s.].*$`)

	// Delimited block fences, four or more of the same delimiter char.
	delimiterRe = regexp.MustCompile(`^(-{4,}|\.{4,}|/{4,}|\+{4,})\s*$`)

	// Inline macros: "image:icon.png[alt]", "kbd:[F11]",
	// "https://example.com[text]". The attribute list must follow the
	// target immediately.
	inlineMacroRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*:[^\s\[\]]*\[[^\]]*\]`)
)

// Filter implements Filter. Spans inside kept prose keep their original
// byte offsets, so the returned offset map is the identity.
func (f *AsciiDoc) Filter(text string) Result {
	buf := []byte(text)

	inBlock := false
	var blockDelim string

	offset := 0
	for _, line := range splitLinesKeepEnds(text) {
		content := strings.TrimRight(line, "\r\n")
		lineStart := offset
		offset += len(line)

		if inBlock {
			// Everything inside a non-prose delimited block is markup,
			// the closing fence included.
			blankBytes(buf, lineStart, lineStart+len(content))
			if delimiterRe.MatchString(content) && content[:1] == blockDelim {
				inBlock = false
			}
			continue
		}

		switch {
		case delimiterRe.MatchString(content):
			inBlock = true
			blockDelim = content[:1]
			blankBytes(buf, lineStart, lineStart+len(content))

		case strings.HasPrefix(content, "//"):
			blankBytes(buf, lineStart, lineStart+len(content))

		case attrEntryRe.MatchString(content),
			blockMacroRe.MatchString(content),
			attrListRe.MatchString(content),
			blockTitleRe.MatchString(content):
			blankBytes(buf, lineStart, lineStart+len(content))

		default:
			f.blankLineMarkup(buf, lineStart, content)
			for _, loc := range inlineMacroRe.FindAllStringIndex(content, -1) {
				blankBytes(buf, lineStart+loc[0], lineStart+loc[1])
			}
		}
	}

	return Result{Text: string(buf)}
}

// blankLineMarkup blanks inline markup on a kept line: section title
// markers ("== ") and list bullets keep their following prose checkable.
func (f *AsciiDoc) blankLineMarkup(buf []byte, lineStart int, content string) {
	trimmed := strings.TrimLeft(content, "=")
	if len(trimmed) != len(content) && strings.HasPrefix(trimmed, " ") {
		blankBytes(buf, lineStart, lineStart+len(content)-len(trimmed))
		return
	}
	trimmed = strings.TrimLeft(content, "*")
	if len(trimmed) != len(content) && strings.HasPrefix(trimmed, " ") {
		blankBytes(buf, lineStart, lineStart+len(content)-len(trimmed))
	}
}

// splitLinesKeepEnds splits text into lines, each retaining its
// terminator, so summed lengths equal len(text).
func splitLinesKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
