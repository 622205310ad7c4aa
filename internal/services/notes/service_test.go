package notes

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/store"
)

const owner = "user-1"

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { _ = s.Close() })

	svc := NewService(s, nil, graph.DefaultOptions(), nil)
	clock := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, s
}

func create(t *testing.T, svc *Service, title, content, folder string) note.Note {
	t.Helper()
	n, err := svc.Create(context.Background(), owner, note.Draft{Title: title, Content: content, Folder: folder})
	require.NoError(t, err)
	return n
}

func refs(t *testing.T, svc *Service, id string) []note.Ref {
	t.Helper()
	_, got, err := svc.GetWithBacklinks(context.Background(), owner, id)
	require.NoError(t, err)
	return got
}

func TestCreateTrimsAndIndexesLinks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := create(t, svc, "Target", "", "")
	src, err := svc.Create(ctx, owner, note.Draft{Title: "  Source  ", Content: " links [[target]] ", Folder: "/work/"})
	require.NoError(t, err)
	assert.Equal(t, "Source", src.Title)
	assert.Equal(t, "links [[target]]", src.Content)
	assert.Equal(t, "work", src.Folder)
	assert.NotEmpty(t, src.ID)

	assert.Equal(t, []note.Ref{{ID: src.ID, Title: "Source"}}, refs(t, svc, target.ID))

	_, err = svc.Create(ctx, owner, note.Draft{Title: "   "})
	assert.True(t, errors.Is(err, note.ErrInvalid))
}

func TestUpdateDiffsContentIntoBacklinks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := create(t, svc, "A", "", "")
	b := create(t, svc, "B", "", "")
	c := create(t, svc, "C", "[[A]]", "")

	content := "now [[B]] only"
	updated, err := svc.Update(ctx, owner, c.ID, note.Update{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	assert.Empty(t, refs(t, svc, a.ID))
	assert.Equal(t, []note.Ref{{ID: c.ID, Title: "C"}}, refs(t, svc, b.ID))

	title := "C renamed"
	_, err = svc.Update(ctx, owner, c.ID, note.Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, []note.Ref{{ID: c.ID, Title: "C renamed"}}, refs(t, svc, b.ID))

	blank := ""
	_, err = svc.Update(ctx, owner, c.ID, note.Update{Title: &blank})
	assert.True(t, errors.Is(err, note.ErrInvalid))

	_, err = svc.Update(ctx, "someone-else", c.ID, note.Update{Content: &content})
	assert.True(t, errors.Is(err, note.ErrNotFound))
}

func TestDeleteCleansUpBacklinksAndGraph(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := create(t, svc, "A", "", "")
	b := create(t, svc, "B", "[[A]]", "")
	c := create(t, svc, "C", "[[A]] [[B]]", "")

	require.NoError(t, svc.Delete(ctx, owner, c.ID))

	assert.Equal(t, []note.Ref{{ID: b.ID, Title: "B"}}, refs(t, svc, a.ID))
	assert.Empty(t, refs(t, svc, b.ID))

	g, err := svc.Graph(ctx, owner, note.AllFolders)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, b.ID+"-"+a.ID, g.Edges[0].ID)

	assert.True(t, errors.Is(svc.Delete(ctx, owner, c.ID), note.ErrNotFound))
}

func TestGraphScopesByFolder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	create(t, svc, "Root", "[[Plan]]", "")
	create(t, svc, "Plan", "[[Spec]]", "work")
	create(t, svc, "Spec", "", "work/docs")
	create(t, svc, "Shop", "[[Plan]]", "workshop")

	g, err := svc.Graph(ctx, owner, note.ParseScope("work"))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Stats.TotalNotes)
	assert.Equal(t, 1, g.Stats.TotalEdges)
	assert.Equal(t, map[string]int{"work": 1, "work/docs": 1}, g.Stats.FolderDistribution)

	g, err = svc.Graph(ctx, owner, note.ParseScope("root"))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Stats.TotalNotes)
	assert.Equal(t, 0, g.Stats.TotalEdges, "links out of scope are dropped")

	g, err = svc.Graph(ctx, owner, note.AllFolders)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Stats.TotalNotes)
	assert.Equal(t, 3, g.Stats.TotalEdges)

	g, err = svc.Graph(ctx, "nobody", note.AllFolders)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestMoveNote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	n := create(t, svc, "Note", "", "inbox")
	moved, err := svc.Move(ctx, owner, n.ID, "/archive/2024/")
	require.NoError(t, err)
	assert.Equal(t, "archive/2024", moved.Folder)

	moved, err = svc.Move(ctx, owner, n.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "", moved.Folder)
}

func TestRenameFolder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := create(t, svc, "A", "[[B]]", "work/ideas")
	b := create(t, svc, "B", "", "work/ideas/raw")
	create(t, svc, "C", "", "work/archive")

	change, err := svc.RenameFolder(ctx, owner, "work/ideas", "thoughts")
	require.NoError(t, err)
	assert.Equal(t, FolderChange{From: "work/ideas", To: "work/thoughts", Notes: 2}, change)

	got, err := svc.Get(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "work/thoughts/raw", got.Folder)
	assert.Equal(t, []string{a.ID}, got.Backlinks, "rename leaves backlinks alone")

	_, err = svc.RenameFolder(ctx, owner, "work/thoughts", "archive")
	assert.True(t, errors.Is(err, note.ErrConflict))

	_, err = svc.RenameFolder(ctx, owner, "work/missing", "x")
	assert.True(t, errors.Is(err, note.ErrNotFound))

	_, err = svc.RenameFolder(ctx, owner, "work/thoughts", "a/b")
	assert.True(t, errors.Is(err, note.ErrInvalid))
}

func TestMoveFolder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	create(t, svc, "A", "", "work/ideas")
	create(t, svc, "B", "", "personal")

	change, err := svc.MoveFolder(ctx, owner, "work/ideas", "personal")
	require.NoError(t, err)
	assert.Equal(t, "personal/ideas", change.To)
	assert.Equal(t, 1, change.Notes)

	_, err = svc.MoveFolder(ctx, owner, "personal", "personal/ideas")
	assert.True(t, errors.Is(err, note.ErrInvalid))

	create(t, svc, "C", "", "ideas")
	_, err = svc.MoveFolder(ctx, owner, "personal/ideas", "")
	assert.True(t, errors.Is(err, note.ErrConflict))

	change, err = svc.MoveFolder(ctx, owner, "personal/ideas", "personal")
	require.NoError(t, err)
	assert.Equal(t, 0, change.Notes, "moving to the current parent is a no-op")
}

func TestDeleteFolderCascades(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	keep := create(t, svc, "Keep", "", "")
	w1 := create(t, svc, "W1", "[[Keep]]", "work")
	w2 := create(t, svc, "W2", "[[Keep]] [[W1]]", "work/sub")

	ids, err := svc.DeleteFolder(ctx, owner, "work")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{w1.ID, w2.ID}, ids)

	assert.Empty(t, refs(t, svc, keep.ID))

	list, err := svc.List(ctx, note.Filter{Owner: owner})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = svc.DeleteFolder(ctx, owner, "work")
	assert.True(t, errors.Is(err, note.ErrNotFound))
}

func TestListSortsAndFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := create(t, svc, "Zeta", "", "")
	second := create(t, svc, "alpha", "", "")
	content := "touched"
	_, err := svc.Update(ctx, owner, first.ID, note.Update{Content: &content})
	require.NoError(t, err)

	sort, err := note.ParseSort("", "")
	require.NoError(t, err)
	list, err := svc.List(ctx, note.Filter{Owner: owner, Sort: sort})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})

	sort, err = note.ParseSort("title", "asc")
	require.NoError(t, err)
	list, err = svc.List(ctx, note.Filter{Owner: owner, Sort: sort})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, []string{list[0].ID, list[1].ID})

	empty, err := svc.List(ctx, note.Filter{Owner: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRestoreRebuildsBacklinks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	exported := []note.Note{
		{ID: "n1", Title: "One", Content: "[[Two]]", Backlinks: []string{"stale"}},
		{ID: "n2", Title: "Two", Content: "[[One]]"},
	}
	restored, skipped, err := svc.Restore(ctx, owner, exported)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Equal(t, 0, skipped)

	one, err := svc.Get(ctx, owner, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, one.Backlinks)
	two, err := svc.Get(ctx, owner, "n2")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, two.Backlinks)

	restored, skipped, err = svc.Restore(ctx, owner, exported)
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
	assert.Equal(t, 2, skipped)
}

func TestLinkTargetsResolvesNewestAndSkipsSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	create(t, svc, "Topic", "", "")
	newer := create(t, svc, "topic", "", "")
	self := create(t, svc, "Self", "", "")

	got, err := svc.LinkTargets(ctx, owner, self.ID, "[[TOPIC]] [[Self]] [[Nowhere]] [[topic]]")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"topic": newer.ID}, got)
}

func TestResolveByIDOrTitle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := create(t, svc, "Daily", "", "")
	second := create(t, svc, "daily", "", "")

	got, err := svc.Resolve(ctx, owner, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = svc.Resolve(ctx, owner, "DAILY")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = svc.Resolve(ctx, owner, "missing")
	assert.True(t, errors.Is(err, note.ErrNotFound))

	_, err = svc.Resolve(ctx, "someone-else", first.ID)
	assert.True(t, errors.Is(err, note.ErrNotFound))
}

func TestRestoreReassignsIDsHeldByAnotherOwner(t *testing.T) {
	s := store.NewMemory()
	t.Cleanup(func() { _ = s.Close() })
	var logs bytes.Buffer
	svc := NewService(s, nil, graph.DefaultOptions(), slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	taken := note.Note{ID: "n1", Owner: "someone-else", Title: "Theirs", Backlinks: []string{},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	taken.UpdatedAt = taken.CreatedAt
	require.NoError(t, s.Insert(ctx, taken))

	restored, skipped, err := svc.Restore(ctx, owner, []note.Note{
		{ID: "n1", Title: "One", Content: "[[Two]]"},
		{ID: "n2", Title: "Two"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Equal(t, 0, skipped)
	assert.Contains(t, logs.String(), "held by another owner")
	assert.Contains(t, logs.String(), "id=n1")

	one, err := svc.Resolve(ctx, owner, "One")
	require.NoError(t, err)
	assert.NotEqual(t, "n1", one.ID)

	two, err := svc.Get(ctx, owner, "n2")
	require.NoError(t, err)
	assert.Equal(t, []string{one.ID}, two.Backlinks)

	theirs, err := s.Get(ctx, "someone-else", "n1")
	require.NoError(t, err)
	assert.Equal(t, "Theirs", theirs.Title)
}

func TestTitleOnlyUpdateLeavesIndexUntilLinkersAreEdited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := create(t, svc, "Old", "", "")
	oldLinker := create(t, svc, "Old linker", "[[Old]]", "")
	newLinker := create(t, svc, "New linker", "[[New]]", "")

	title := "New"
	_, err := svc.Update(ctx, owner, target.ID, note.Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, []note.Ref{{ID: oldLinker.ID, Title: "Old linker"}}, refs(t, svc, target.ID))

	g, err := svc.Graph(ctx, owner, note.AllFolders)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, newLinker.ID, g.Edges[0].Source)
	assert.Equal(t, target.ID, g.Edges[0].Target)

	unlinked, relinked := "draft", "[[New]] again"
	_, err = svc.Update(ctx, owner, newLinker.ID, note.Update{Content: &relinked})
	require.NoError(t, err)
	assert.Len(t, refs(t, svc, target.ID), 1, "an unchanged link set is not re-indexed")

	_, err = svc.Update(ctx, owner, newLinker.ID, note.Update{Content: &unlinked})
	require.NoError(t, err)
	_, err = svc.Update(ctx, owner, newLinker.ID, note.Update{Content: &relinked})
	require.NoError(t, err)
	assert.ElementsMatch(t, []note.Ref{
		{ID: oldLinker.ID, Title: "Old linker"},
		{ID: newLinker.ID, Title: "New linker"},
	}, refs(t, svc, target.ID))
}
