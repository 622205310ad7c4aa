package fzf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/weave/internal/note"
)

// ErrNoSelection is returned when the user aborts the finder.
var ErrNoSelection = errors.New("no note selected")

// Finder runs an interactive fuzzy search over a set of notes.
type Finder struct {
	Header string
	notes  []note.Note
	// find is swapped out in tests; it defaults to fuzzyfinder.Find.
	find func(items []note.Note, label func(int) string, opts ...fuzzyfinder.Option) (int, error)
}

func NewFinder(notes []note.Note, header string) *Finder {
	return &Finder{
		Header: header,
		notes:  notes,
		find: func(items []note.Note, label func(int) string, opts ...fuzzyfinder.Option) (int, error) {
			return fuzzyfinder.Find(items, label, opts...)
		},
	}
}

// Run shows the finder seeded with query and returns the chosen note.
func (f *Finder) Run(query string) (note.Note, error) {
	if len(f.notes) == 0 {
		return note.Note{}, fmt.Errorf("no notes to search: %w", note.ErrNotFound)
	}

	options := []fuzzyfinder.Option{
		fuzzyfinder.WithPreviewWindow(f.renderMarkdownPreview),
	}
	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}
	if f.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(f.Header))
	}

	idx, err := f.find(f.notes, f.Label, options...)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return note.Note{}, ErrNoSelection
	}
	if err != nil {
		return note.Note{}, fmt.Errorf("error selecting note: %w", err)
	}
	if idx < 0 || idx >= len(f.notes) {
		return note.Note{}, ErrNoSelection
	}
	return f.notes[idx], nil
}

// Label is the line shown for note i.
func (f *Finder) Label(i int) string {
	n := f.notes[i]
	folder := n.Folder
	if folder == "" {
		folder = note.RootFolder
	}
	links := "no backlinks"
	if c := len(n.Backlinks); c == 1 {
		links = "1 backlink"
	} else if c > 1 {
		links = fmt.Sprintf("%d backlinks", c)
	}
	return fmt.Sprintf("%s [%s] (%s)", n.Title, folder, links)
}

func (f *Finder) renderMarkdownPreview(i, w, h int) string {
	if i == -1 {
		return ""
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(max(w-4, 20)),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return "Error creating renderer"
	}

	n := f.notes[i]
	markdown, err := r.Render("# " + n.Title + "\n\n" + n.Content)
	if err != nil {
		return "Error rendering markdown"
	}
	return strings.TrimRight(markdown, "\n")
}
