package backlinks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, notes ...note.Note) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	for _, n := range notes {
		require.NoError(t, s.Insert(context.Background(), n))
	}
	return s
}

func mk(id, title string, minute int) note.Note {
	at := base.Add(time.Duration(minute) * time.Minute)
	return note.Note{ID: id, Owner: "u1", Title: title, CreatedAt: at, UpdatedAt: at}
}

func backlinksOf(t *testing.T, s store.Store, id string) []string {
	t.Helper()
	n, err := s.Get(context.Background(), "u1", id)
	require.NoError(t, err)
	return n.Backlinks
}

func TestApplyAddsAndRemovesBacklinks(t *testing.T) {
	s := newStore(t, mk("a", "Alpha", 0), mk("b", "Beta", 1), mk("c", "Gamma", 2))
	m := New(s, nil)
	ctx := context.Background()

	res := m.Apply(ctx, "u1", "c", "", "see [[Alpha]] and [[beta]] and [[Nowhere]]")
	assert.Equal(t, Result{Added: 2, Missed: 1}, res)
	assert.Equal(t, []string{"c"}, backlinksOf(t, s, "a"))
	assert.Equal(t, []string{"c"}, backlinksOf(t, s, "b"))

	res = m.Apply(ctx, "u1", "c", "see [[Alpha]] and [[beta]] and [[Nowhere]]", "only [[Beta]]")
	assert.Equal(t, 1, res.Removed)
	assert.Empty(t, backlinksOf(t, s, "a"))
	assert.Equal(t, []string{"c"}, backlinksOf(t, s, "b"), "case-only change keeps the link")
}

func TestApplyIsIdempotent(t *testing.T) {
	s := newStore(t, mk("a", "Alpha", 0), mk("b", "Beta", 1))
	m := New(s, nil)
	ctx := context.Background()

	m.Apply(ctx, "u1", "b", "", "[[Alpha]]")
	m.Apply(ctx, "u1", "b", "", "[[Alpha]]")
	assert.Equal(t, []string{"b"}, backlinksOf(t, s, "a"))

	res := m.Apply(ctx, "u1", "b", "[[Alpha]]", "[[Alpha]] again")
	assert.Equal(t, Result{}, res)
	assert.Equal(t, []string{"b"}, backlinksOf(t, s, "a"))
}

func TestApplySkipsSelfLinks(t *testing.T) {
	s := newStore(t, mk("a", "Alpha", 0))
	m := New(s, nil)

	res := m.Apply(context.Background(), "u1", "a", "", "I am [[Alpha]]")
	assert.Equal(t, Result{}, res)
	assert.Empty(t, backlinksOf(t, s, "a"))
}

func TestApplyResolvesDuplicateTitlesToNewest(t *testing.T) {
	s := newStore(t, mk("old", "Topic", 0), mk("new", "topic", 5), mk("src", "Source", 6))
	m := New(s, nil)
	ctx := context.Background()

	m.Apply(ctx, "u1", "src", "", "[[TOPIC]]")
	assert.Empty(t, backlinksOf(t, s, "old"))
	assert.Equal(t, []string{"src"}, backlinksOf(t, s, "new"))

	require.NoError(t, s.AddBacklink(ctx, "u1", "old", "src"))
	res := m.Apply(ctx, "u1", "src", "[[TOPIC]]", "")
	assert.Equal(t, 2, res.Removed, "removal clears every note carrying the title")
	assert.Empty(t, backlinksOf(t, s, "old"))
	assert.Empty(t, backlinksOf(t, s, "new"))
}

func TestApplyIgnoresLaterNotes(t *testing.T) {
	s := newStore(t, mk("src", "Source", 0))
	m := New(s, nil)
	ctx := context.Background()

	res := m.Apply(ctx, "u1", "src", "", "[[Future]]")
	assert.Equal(t, 1, res.Missed)

	require.NoError(t, s.Insert(ctx, mk("future", "Future", 1)))
	assert.Empty(t, backlinksOf(t, s, "future"), "backlinks are not gained retroactively")
}

func TestForgetPurgesDeletedIDs(t *testing.T) {
	s := newStore(t, mk("a", "Alpha", 0), mk("b", "Beta", 1), mk("c", "Gamma", 2))
	m := New(s, nil, WithConcurrency(1))
	ctx := context.Background()

	m.Apply(ctx, "u1", "c", "", "[[Alpha]] [[Beta]]")
	m.Apply(ctx, "u1", "b", "", "[[Alpha]]")
	require.NoError(t, s.Delete(ctx, "u1", "c"))
	m.Forget(ctx, "u1", "c")

	assert.Equal(t, []string{"b"}, backlinksOf(t, s, "a"))
	assert.Empty(t, backlinksOf(t, s, "b"))
}

type failingStore struct {
	store.Store
}

func (failingStore) AddBacklink(context.Context, string, string, string) error {
	return errors.New("disk on fire")
}

func (failingStore) PurgeBacklinks(context.Context, string, []string) error {
	return errors.New("disk on fire")
}

func TestStoreFailuresAreLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := failingStore{Store: newStore(t, mk("a", "Alpha", 0), mk("b", "Beta", 1))}
	m := New(s, logger)
	ctx := context.Background()

	res := m.Apply(ctx, "u1", "b", "", "[[Alpha]]")
	assert.Equal(t, Result{Failed: 1}, res)
	assert.Contains(t, buf.String(), "backlink update failed")
	assert.Contains(t, buf.String(), "disk on fire")

	buf.Reset()
	m.Forget(ctx, "u1", "b")
	assert.Contains(t, buf.String(), "backlink purge failed")
}

func TestConcurrentApplyIntoOneTitle(t *testing.T) {
	const sources = 30

	notes := []note.Note{mk("hub", "Hub", 0)}
	ids := make([]string, sources)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
		notes = append(notes, mk(ids[i], "Source "+ids[i], i+1))
	}
	s := newStore(t, notes...)
	m := New(s, nil, WithConcurrency(2))
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.Apply(ctx, "u1", id, "", "links to [[hub]]")
		}(id)
	}
	wg.Wait()
	assert.ElementsMatch(t, ids, backlinksOf(t, s, "hub"))

	// The first third unlink, the rest rewrite without touching the link.
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if i < sources/3 {
				m.Apply(ctx, "u1", id, "links to [[hub]]", "nothing here")
				return
			}
			m.Apply(ctx, "u1", id, "links to [[hub]]", "still [[Hub]], reworded")
		}(i, id)
	}
	wg.Wait()
	assert.ElementsMatch(t, ids[sources/3:], backlinksOf(t, s, "hub"))
}
