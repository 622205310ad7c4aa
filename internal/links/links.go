// Package links extracts [[Title]] references from note content.
package links

import (
	"regexp"
	"strings"
)

// wikiRe matches the shortest span between [[ and the next ]]. The span may
// cross newlines and is never nested.
var wikiRe = regexp.MustCompile(`(?s)\[\[(.*?)\]\]`)

// Extract returns the distinct trimmed titles referenced by content, in order
// of first occurrence. Empty titles are dropped.
func Extract(content string) []string {
	if !strings.Contains(content, "[[") {
		return nil
	}

	seen := make(map[string]struct{})
	var titles []string
	for _, match := range wikiRe.FindAllStringSubmatch(content, -1) {
		if len(match) < 2 {
			continue
		}
		title := strings.TrimSpace(match[1])
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	return titles
}

// Change describes how the set of referenced titles moved between two
// versions of a note.
type Change struct {
	Added   []string
	Removed []string
}

// IsEmpty reports whether nothing was added or removed.
func (c Change) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Diff parses both versions and returns added = new - old and
// removed = old - new, each in first-occurrence order.
func Diff(oldContent, newContent string) Change {
	before := Extract(oldContent)
	after := Extract(newContent)
	return Change{
		Added:   subtract(after, before),
		Removed: subtract(before, after),
	}
}

func subtract(from, remove []string) []string {
	if len(from) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(remove))
	for _, title := range remove {
		drop[title] = struct{}{}
	}

	var out []string
	for _, title := range from {
		if _, ok := drop[title]; ok {
			continue
		}
		out = append(out, title)
	}
	return out
}

// Replace rewrites every [[...]] span with the result of fn, which receives
// the trimmed title. Spans with an empty title are left as written.
func Replace(content string, fn func(title string) string) string {
	if !strings.Contains(content, "[[") {
		return content
	}
	return wikiRe.ReplaceAllStringFunc(content, func(span string) string {
		title := strings.TrimSpace(span[2 : len(span)-2])
		if title == "" {
			return span
		}
		return fn(title)
	})
}
