package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Paintersrp/weave/internal/note"
)

// Memory is an in-process Store. Each mutation runs inside a single critical
// section, which makes the backlink set operations atomic.
type Memory struct {
	mu     sync.RWMutex
	notes  map[string]note.Note
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{notes: make(map[string]note.Note)}
}

func (m *Memory) Insert(_ context.Context, n note.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	if _, ok := m.notes[n.ID]; ok {
		return fmt.Errorf("%w: note %s already exists", note.ErrConflict, n.ID)
	}
	n.Backlinks = cloneIDs(n.Backlinks)
	m.notes[n.ID] = n
	return nil
}

func (m *Memory) Get(_ context.Context, owner, id string) (note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return note.Note{}, err
	}
	n, ok := m.lookup(owner, id)
	if !ok {
		return note.Note{}, fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	return copyNote(n), nil
}

func (m *Memory) Find(_ context.Context, f note.Filter) ([]note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	var out []note.Note
	for _, n := range m.notes {
		if !f.Matches(n) {
			continue
		}
		if f.SkipBacklinks {
			n.Backlinks = []string{}
		}
		out = append(out, copyNote(n))
	}
	note.SortNotes(out, f.Sort)
	return out, nil
}

func (m *Memory) FindByTitle(_ context.Context, owner, title string) ([]note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	key := note.TitleKey(title)
	var out []note.Note
	for _, n := range m.notes {
		if n.Owner == owner && note.TitleKey(n.Title) == key {
			out = append(out, copyNote(n))
		}
	}
	note.SortNotes(out, note.Sort{})
	return out, nil
}

func (m *Memory) Update(_ context.Context, owner, id string, u note.Update, at time.Time) (note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return note.Note{}, err
	}
	n, ok := m.lookup(owner, id)
	if !ok {
		return note.Note{}, fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	n = u.Apply(n, at)
	m.notes[id] = n
	return copyNote(n), nil
}

func (m *Memory) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	if _, ok := m.lookup(owner, id); !ok {
		return fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	delete(m.notes, id)
	return nil
}

func (m *Memory) AddBacklink(_ context.Context, owner, targetID, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	n, ok := m.lookup(owner, targetID)
	if !ok {
		return nil
	}
	for _, id := range n.Backlinks {
		if id == sourceID {
			return nil
		}
	}
	n.Backlinks = append(cloneIDs(n.Backlinks), sourceID)
	m.notes[targetID] = n
	return nil
}

func (m *Memory) RemoveBacklink(_ context.Context, owner string, targetIDs []string, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	drop := map[string]struct{}{sourceID: {}}
	for _, targetID := range targetIDs {
		n, ok := m.lookup(owner, targetID)
		if !ok {
			continue
		}
		n.Backlinks = without(n.Backlinks, drop)
		m.notes[targetID] = n
	}
	return nil
}

func (m *Memory) PurgeBacklinks(_ context.Context, owner string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	m.purgeLocked(owner, idSet(ids))
	return nil
}

func (m *Memory) DeleteFolder(_ context.Context, owner, prefix string) ([]string, error) {
	prefix, err := requireFolder(prefix)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	var doomed []note.Note
	for _, n := range m.notes {
		if n.Owner == owner && note.InFolder(n.Folder, prefix) {
			doomed = append(doomed, n)
		}
	}
	note.SortNotes(doomed, note.Sort{})

	ids := make([]string, 0, len(doomed))
	for _, n := range doomed {
		delete(m.notes, n.ID)
		ids = append(ids, n.ID)
	}
	m.purgeLocked(owner, idSet(ids))
	return ids, nil
}

func (m *Memory) RewriteFolder(_ context.Context, owner, from, to string) (int, error) {
	from, err := requireFolder(from)
	if err != nil {
		return 0, err
	}
	to = note.NormalizeFolder(to)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	count := 0
	for id, n := range m.notes {
		if n.Owner != owner || !note.InFolder(n.Folder, from) {
			continue
		}
		n.Folder = note.RewritePrefix(n.Folder, from, to)
		m.notes[id] = n
		count++
	}
	return count, nil
}

func (m *Memory) FolderExists(_ context.Context, owner, prefix string) (bool, error) {
	prefix = note.NormalizeFolder(prefix)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if prefix == "" {
		return true, nil
	}
	for _, n := range m.notes {
		if n.Owner == owner && note.InFolder(n.Folder, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) checkOpen() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) lookup(owner, id string) (note.Note, bool) {
	n, ok := m.notes[id]
	if !ok || n.Owner != owner {
		return note.Note{}, false
	}
	return n, true
}

func (m *Memory) purgeLocked(owner string, drop map[string]struct{}) {
	if len(drop) == 0 {
		return
	}
	for id, n := range m.notes {
		if n.Owner != owner || len(n.Backlinks) == 0 {
			continue
		}
		n.Backlinks = without(n.Backlinks, drop)
		m.notes[id] = n
	}
}

func copyNote(n note.Note) note.Note {
	n.Backlinks = cloneIDs(n.Backlinks)
	return n
}

func cloneIDs(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func without(ids []string, drop map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
