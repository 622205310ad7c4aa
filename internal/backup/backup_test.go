package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/services/notes"
	"github.com/Paintersrp/weave/internal/store"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, note.ErrNotFound)
	}
	return data, nil
}

func (m *memObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newService(t *testing.T) *notes.Service {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { _ = s.Close() })
	return notes.NewService(s, nil, graph.DefaultOptions(), nil)
}

func TestExportThenImportRebuildsBacklinks(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()

	src := newService(t)
	a, err := src.Create(ctx, "alice", note.Draft{Title: "A", Content: "see [[B]]", Folder: "work"})
	require.NoError(t, err)
	b, err := src.Create(ctx, "alice", note.Draft{Title: "B", Content: "back to [[A]]"})
	require.NoError(t, err)

	exporter := NewManager(objects, src, "weave", nil)
	exporter.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	res, err := exporter.Export(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Key: "weave/alice/20240506T070809Z.json", Notes: 2}, res)
	assert.Equal(t, []string{"weave/alice/20240506T070809Z.json", "weave/alice/latest.json"}, objects.keys())

	dst := newService(t)
	imported, err := NewManager(objects, dst, "weave", nil).Import(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Key: "weave/alice/latest.json", Restored: 2}, imported)

	restoredA, refs, err := dst.GetWithBacklinks(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", restoredA.Folder)
	assert.True(t, restoredA.CreatedAt.Equal(a.CreatedAt))
	assert.Equal(t, []note.Ref{{ID: b.ID, Title: "B"}}, refs)

	_, refs, err = dst.GetWithBacklinks(ctx, "alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, []note.Ref{{ID: a.ID, Title: "A"}}, refs)

	again, err := NewManager(objects, dst, "weave", nil).Import(ctx, "alice", res.Key)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Restored)
	assert.Equal(t, 2, again.Skipped)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	m := NewManager(objects, newService(t), "", nil)

	_, err := m.Import(ctx, "alice", "")
	assert.True(t, errors.Is(err, note.ErrNotFound), "got %v", err)

	require.NoError(t, objects.Put(ctx, "bad.json", strings.NewReader("{")))
	_, err = m.Import(ctx, "alice", "bad.json")
	assert.True(t, errors.Is(err, note.ErrInvalid), "got %v", err)

	require.NoError(t, objects.Put(ctx, "future.json", strings.NewReader(`{"version":99,"notes":[]}`)))
	_, err = m.Import(ctx, "alice", "future.json")
	assert.True(t, errors.Is(err, note.ErrInvalid), "got %v", err)
}

type failingObjects struct{ *memObjects }

func (failingObjects) Put(context.Context, string, io.Reader) error {
	return errors.New("bucket unavailable")
}

func TestExportPropagatesUploadFailure(t *testing.T) {
	m := NewManager(failingObjects{newMemObjects()}, newService(t), "p", nil)
	_, err := m.Export(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Options{})
	assert.True(t, errors.Is(err, note.ErrInvalid), "got %v", err)
}
