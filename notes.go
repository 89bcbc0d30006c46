package main

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// NotesRenderer turns the Markdown notes kept beside a document into HTML
// safe to embed in the dashboard page.
type NotesRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewNotesRenderer() *NotesRenderer {
	return &NotesRenderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: newNotesPolicy(),
	}
}

func newNotesPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span", "table", "code")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func (n *NotesRenderer) Render(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := n.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(n.policy.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized above
}
