package filter

import (
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown blanks Markdown constructs that must not reach a checking
// engine: fenced and indented code blocks, HTML blocks, inline raw
// HTML, and link and image destination syntax. It locates them through
// the goldmark AST, whose segments carry source byte offsets, then
// blanks those ranges in place.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the Markdown filter.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New()}
}

// Name implements Filter.
func (f *Markdown) Name() string { return "markdown" }

// Filter implements Filter. The output has the same byte length as the
// input, so the offset map is the identity.
func (f *Markdown) Filter(input string) Result {
	src := []byte(input)
	buf := []byte(input)

	doc := f.md.Parser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			blankSegments(buf, node.Lines())
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			blankSegments(buf, node.Lines())
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			blankSegments(buf, node.Lines())
			if node.HasClosure() {
				seg := node.ClosureLine
				blankBytes(buf, seg.Start, seg.Stop)
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				blankBytes(buf, seg.Start, seg.Stop)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link, *ast.Image:
			// The link text stays checkable; the bracket syntax and the
			// destination are markup.
			blankLinkSyntax(buf, n)
			return ast.WalkContinue, nil
		}
		return ast.WalkContinue, nil
	})

	// Fence delimiter lines and link reference definitions are not part
	// of any node's line segments; blank them with a line pass.
	blankMarkupLines(buf)

	return Result{Text: string(buf)}
}

// blankLinkSyntax blanks the bracket and destination syntax around a
// link or image while keeping its text. Inline nodes carry no source
// segment for the destination, so it is located relative to the text
// extent: "[" (plus "!" for images) before it, "](...)" or "][label]"
// after it.
func blankLinkSyntax(buf []byte, n ast.Node) {
	start, end, ok := textExtent(n)
	if !ok {
		return
	}

	if i := start - 1; i >= 0 && buf[i] == '[' {
		blankBytes(buf, i, start)
		if _, isImage := n.(*ast.Image); isImage && i > 0 && buf[i-1] == '!' {
			blankBytes(buf, i-1, i)
		}
	}

	if end >= len(buf) || buf[end] != ']' {
		return
	}
	j := end + 1
	switch {
	case j < len(buf) && buf[j] == '(':
		depth := 0
		for ; j < len(buf); j++ {
			if buf[j] == '(' {
				depth++
			}
			if buf[j] == ')' {
				depth--
				if depth == 0 {
					j++
					break
				}
			}
		}
		blankBytes(buf, end, j)
	case j < len(buf) && buf[j] == '[':
		for ; j < len(buf); j++ {
			if buf[j] == ']' {
				j++
				break
			}
		}
		blankBytes(buf, end, j)
	default:
		blankBytes(buf, end, end+1)
	}
}

// textExtent returns the source byte range spanned by the node's text
// descendants.
func textExtent(n ast.Node) (start, stop int, ok bool) {
	start, stop = -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, isText := c.(*ast.Text); isText {
			seg := t.Segment
			if start == -1 || seg.Start < start {
				start = seg.Start
			}
			if seg.Stop > stop {
				stop = seg.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	return start, stop, start != -1
}

func blankSegments(buf []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		blankBytes(buf, seg.Start, seg.Stop)
	}
}

// Link reference definitions: "[label]: destination".
var linkDefRe = regexp.MustCompile(`^ {0,3}\[[^\]]+\]: *\S+`)

// blankMarkupLines blanks lines that open or close a fenced code block
// and link reference definition lines.
func blankMarkupLines(buf []byte) {
	lineStart := 0
	for i := 0; i <= len(buf); i++ {
		if i == len(buf) || buf[i] == '\n' {
			line := buf[lineStart:i]
			if isFenceLine(line) || linkDefRe.Match(line) {
				blankBytes(buf, lineStart, i)
			}
			lineStart = i + 1
		}
	}
}

func isFenceLine(line []byte) bool {
	j := 0
	for j < len(line) && j < 3 && line[j] == ' ' {
		j++
	}
	if j+3 > len(line) {
		return false
	}
	c := line[j]
	if c != '`' && c != '~' {
		return false
	}
	count := 0
	for j < len(line) && line[j] == c {
		count++
		j++
	}
	return count >= 3
}
