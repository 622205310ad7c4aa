// Package note defines the note model shared by the store, the backlink
// maintainer and the graph builder.
package note

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a note or folder does not exist or is not
	// owned by the requester. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")
	// ErrInvalid signals a validation failure on user input.
	ErrInvalid = errors.New("invalid input")
	// ErrConflict signals that a folder operation would collide with an
	// existing path.
	ErrConflict = errors.New("conflict")
)

// Note is a single owned document.
type Note struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Folder    string    `json:"folder,omitempty"`
	Backlinks []string  `json:"backlinks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TitleKey is the normalized form used to resolve link titles against note
// titles. Resolution is case-insensitive.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Draft carries the fields accepted when creating a note.
type Draft struct {
	Title   string
	Content string
	Folder  string
}

// Normalize trims the draft and validates the title.
func (d Draft) Normalize() (Draft, error) {
	out := Draft{
		Title:   strings.TrimSpace(d.Title),
		Content: strings.TrimSpace(d.Content),
		Folder:  NormalizeFolder(d.Folder),
	}
	if out.Title == "" {
		return Draft{}, fmt.Errorf("%w: note title is required", ErrInvalid)
	}
	return out, nil
}

// Update is a partial edit. Nil fields are left untouched.
type Update struct {
	Title   *string
	Content *string
	Folder  *string
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return u.Title == nil && u.Content == nil && u.Folder == nil
}

// Normalize trims every provided field and rejects an empty title.
func (u Update) Normalize() (Update, error) {
	var out Update
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return Update{}, fmt.Errorf("%w: note title cannot be empty", ErrInvalid)
		}
		out.Title = &title
	}
	if u.Content != nil {
		content := strings.TrimSpace(*u.Content)
		out.Content = &content
	}
	if u.Folder != nil {
		folder := NormalizeFolder(*u.Folder)
		out.Folder = &folder
	}
	return out, nil
}

// Apply returns a copy of n with the update applied.
func (u Update) Apply(n Note, at time.Time) Note {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.Folder != nil {
		n.Folder = *u.Folder
	}
	n.UpdatedAt = at
	return n
}

// SortField names a sortable note attribute.
type SortField string

const (
	SortCreated SortField = "createdAt"
	SortUpdated SortField = "updatedAt"
	SortTitle   SortField = "title"
)

// Sort selects listing order. The zero value orders by creation time
// ascending, which is the order the graph builder relies on.
type Sort struct {
	Field      SortField
	Descending bool
}

// ParseSort reads the sortBy/sortOrder pair used by the listing endpoints.
func ParseSort(field, order string) (Sort, error) {
	s := Sort{Field: SortField(strings.TrimSpace(field))}
	switch s.Field {
	case "":
		s.Field = SortUpdated
	case SortCreated, SortUpdated, SortTitle:
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalid, field)
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
		s.Descending = true
	case "asc":
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort order %q", ErrInvalid, order)
	}
	return s, nil
}

// Filter selects an owner's notes.
type Filter struct {
	Owner        string
	Scope        Scope
	UpdatedSince time.Time
	Sort         Sort
	// SkipBacklinks lets the store leave Backlinks empty. Graph reads set it
	// since edges come from content alone.
	SkipBacklinks bool
}

// Matches reports whether n passes the filter.
func (f Filter) Matches(n Note) bool {
	if n.Owner != f.Owner {
		return false
	}
	if !f.Scope.Contains(n.Folder) {
		return false
	}
	if !f.UpdatedSince.IsZero() && n.UpdatedAt.Before(f.UpdatedSince) {
		return false
	}
	return true
}

// SortNotes orders notes in place. Ties always fall back to creation time and
// then id so results are stable across stores.
func SortNotes(notes []Note, s Sort) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if s.Descending {
			a, b = b, a
		}
		switch s.Field {
		case SortUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case SortTitle:
			if ka, kb := TitleKey(a.Title), TitleKey(b.Title); ka != kb {
				return ka < kb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// WordCount counts whitespace-delimited tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// Ref is the compact form used when a note's backlinks are populated.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
