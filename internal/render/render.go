// Package render turns note content into HTML for the API preview and into
// styled text for the terminal.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/Paintersrp/weave/internal/links"
)

// Resolver maps a link title to a note id. ok is false for unresolved titles.
type Resolver func(title string) (id string, ok bool)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// HTML renders content as HTML. Resolved [[Title]] links become anchors to
// the target note; unresolved ones are kept as plain bracketed text.
func HTML(content string, resolve Resolver) (string, error) {
	source := WikiToMarkdown(content, resolve)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// WikiToMarkdown rewrites resolved [[Title]] links as markdown links to
// /notes/<id>.
func WikiToMarkdown(content string, resolve Resolver) string {
	if resolve == nil {
		return content
	}
	return links.Replace(content, func(title string) string {
		id, ok := resolve(title)
		if !ok {
			return "[[" + title + "]]"
		}
		return "[" + escapeLinkText(title) + "](/notes/" + url.PathEscape(id) + ")"
	})
}

func escapeLinkText(s string) string {
	return strings.NewReplacer(`[`, `\[`, `]`, `\]`).Replace(s)
}

// Heading is one entry of a note outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Outline lists the markdown headings in content in document order.
func Outline(content string) []Heading {
	source := []byte(content)
	document := markdown.Parser().Parse(text.NewReader(source))

	var headings []Heading
	ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, Heading{
				Level: h.Level,
				Text:  strings.TrimSpace(string(h.Text(source))),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return headings
}

// Terminal renders content for a terminal of the given width using glamour.
// style is a glamour standard style name such as "dark", "light" or "notty".
func Terminal(content string, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("render terminal: %w", err)
	}
	return out, nil
}
