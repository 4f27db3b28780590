package infer

import "strings"

// Template is a named prompt pair. The user prompt contains a {{text}}
// placeholder the filtered document is substituted into.
type Template struct {
	Name   string
	System string
	User   string
}

// Render substitutes the document text into the user prompt.
func (t Template) Render(text string) (system, user string) {
	return t.System, strings.ReplaceAll(t.User, "{{text}}", text)
}

const structuredOutputInstructions = `Respond ONLY with a JSON array. Each element must be an object with these fields:
  "original": the exact text being flagged, quoted verbatim from the input
  "replacement": the suggested fix (empty string if none)
  "message": a short explanation
  "category": one of "grammar", "style", "spelling", "punctuation", "readability"
Return [] if the text has no issues. Do not add commentary outside the JSON.`

// templates holds the built-in prompt templates, addressable by name
// from configuration.
var templates = map[string]Template{
	"proofread": {
		Name: "proofread",
		System: "You are a meticulous proofreader for technical documentation. " +
			"You flag genuine problems only and never rewrite the author's voice.",
		User: "Review the text below for grammar, spelling, punctuation, style, and readability problems.\n\n" +
			structuredOutputInstructions + "\n\nText:\n{{text}}",
	},
	"style": {
		Name: "style",
		System: "You are an editor focused on clarity and concision in technical prose. " +
			"Flag wordiness, passive constructions, and unclear phrasing.",
		User: "Review the text below for style and readability only; ignore minor mechanical errors.\n\n" +
			structuredOutputInstructions + "\n\nText:\n{{text}}",
	},
}

// TemplateByName returns a prompt template. Unknown names fall back to
// the proofread template.
func TemplateByName(name string) Template {
	if t, ok := templates[name]; ok {
		return t
	}
	return templates["proofread"]
}
