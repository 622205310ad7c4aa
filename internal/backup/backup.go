// Package backup exports an owner's notes as a JSON snapshot to object
// storage and restores them, rebuilding backlinks from the note text.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/weave/internal/note"
)

// SnapshotVersion is written into every snapshot and checked on import.
const SnapshotVersion = 1

// LatestName is the object name that always holds the newest snapshot.
const LatestName = "latest.json"

// Snapshot is the exported form of an owner's corpus. Backlink sets are not
// exported; they are rebuilt from content on import.
type Snapshot struct {
	Version    int         `json:"version"`
	Owner      string      `json:"owner"`
	ExportedAt time.Time   `json:"exportedAt"`
	Notes      []note.Note `json:"notes"`
}

// ObjectStore is the blob storage a snapshot is written to.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Corpus is the note service surface the backup reads from and restores
// into.
type Corpus interface {
	List(ctx context.Context, f note.Filter) ([]note.Note, error)
	Restore(ctx context.Context, owner string, notes []note.Note) (restored, skipped int, err error)
}

type Manager struct {
	objects ObjectStore
	corpus  Corpus
	prefix  string
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(objects ObjectStore, corpus Corpus, prefix string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		objects: objects,
		corpus:  corpus,
		prefix:  prefix,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ExportResult describes a written snapshot.
type ExportResult struct {
	Key   string `json:"key"`
	Notes int    `json:"notes"`
}

// Export writes every note the owner holds to a timestamped object and to
// the owner's latest object.
func (m *Manager) Export(ctx context.Context, owner string) (ExportResult, error) {
	list, err := m.corpus.List(ctx, note.Filter{Owner: owner, Sort: note.Sort{Field: note.SortCreated}})
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: %w", err)
	}
	for i := range list {
		list[i].Backlinks = nil
	}

	at := m.now()
	snap := Snapshot{Version: SnapshotVersion, Owner: owner, ExportedAt: at, Notes: list}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := m.key(owner, at.Format("20060102T150405Z")+".json")
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range []string{key, m.key(owner, LatestName)} {
		g.Go(func() error {
			if err := m.objects.Put(gctx, k, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("upload %s: %w", k, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportResult{}, err
	}

	m.logger.InfoContext(ctx, "snapshot exported", "owner", owner, "key", key, "notes", len(list))
	return ExportResult{Key: key, Notes: len(list)}, nil
}

// ImportResult describes a restore.
type ImportResult struct {
	Key      string `json:"key"`
	Restored int    `json:"restored"`
	Skipped  int    `json:"skipped"`
}

// Import restores the snapshot at key into owner's corpus. An empty key
// reads the owner's latest snapshot. Notes that already exist are skipped.
func (m *Manager) Import(ctx context.Context, owner, key string) (ImportResult, error) {
	if key == "" {
		key = m.key(owner, LatestName)
	}

	data, err := m.objects.Get(ctx, key)
	if err != nil {
		return ImportResult{}, fmt.Errorf("download %s: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ImportResult{}, fmt.Errorf("%w: snapshot %s is not valid JSON: %v", note.ErrInvalid, key, err)
	}
	if snap.Version != SnapshotVersion {
		return ImportResult{}, fmt.Errorf("%w: unsupported snapshot version %d", note.ErrInvalid, snap.Version)
	}

	restored, skipped, err := m.corpus.Restore(ctx, owner, snap.Notes)
	res := ImportResult{Key: key, Restored: restored, Skipped: skipped}
	if err != nil {
		return res, fmt.Errorf("import %s: %w", key, err)
	}

	m.logger.InfoContext(ctx, "snapshot imported",
		"owner", owner,
		"key", key,
		"from", snap.Owner,
		"restored", restored,
		"skipped", skipped,
	)
	return res, nil
}

func (m *Manager) key(owner, name string) string {
	return path.Join(m.prefix, owner, name)
}
