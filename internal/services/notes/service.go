// Package notes orchestrates note writes, their backlink side effects and
// graph reads on top of a store.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Paintersrp/weave/internal/backlinks"
	"github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/links"
	"github.com/Paintersrp/weave/internal/metrics"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/store"
)

// Service is the single entry point for reading and mutating an owner's
// notes. It is safe for concurrent use.
type Service struct {
	store      store.Store
	maintainer *backlinks.Maintainer
	graphOpts  graph.Options
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a service over s. A nil maintainer gets a default one.
func NewService(s store.Store, m *backlinks.Maintainer, opts graph.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = backlinks.New(s, logger)
	}
	return &Service{
		store:      s,
		maintainer: m,
		graphOpts:  opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Create stores a new note and indexes the links it holds.
func (s *Service) Create(ctx context.Context, owner string, d note.Draft) (note.Note, error) {
	d, err := d.Normalize()
	if err != nil {
		return note.Note{}, err
	}

	at := s.now()
	n := note.Note{
		ID:        s.newID(),
		Owner:     owner,
		Title:     d.Title,
		Content:   d.Content,
		Folder:    d.Folder,
		Backlinks: []string{},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return note.Note{}, fmt.Errorf("create note: %w", err)
	}
	s.maintainer.Apply(ctx, owner, n.ID, "", n.Content)

	s.logger.InfoContext(ctx, "note created", "owner", owner, "note", n.ID, "folder", n.Folder)
	return n, nil
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, owner, id string) (note.Note, error) {
	return s.store.Get(ctx, owner, id)
}

// Resolve finds a note by id, falling back to a case-insensitive title match.
// On duplicate titles the most recently created note is returned.
func (s *Service) Resolve(ctx context.Context, owner, ref string) (note.Note, error) {
	n, err := s.store.Get(ctx, owner, ref)
	if err == nil || !errors.Is(err, note.ErrNotFound) {
		return n, err
	}
	matches, err := s.store.FindByTitle(ctx, owner, ref)
	if err != nil {
		return note.Note{}, fmt.Errorf("resolve %q: %w", ref, err)
	}
	if len(matches) == 0 {
		return note.Note{}, fmt.Errorf("note %q: %w", ref, note.ErrNotFound)
	}
	return matches[len(matches)-1], nil
}

// GetWithBacklinks returns a note and the id and title of every note that
// links to it. Backlinks whose source no longer exists are skipped.
func (s *Service) GetWithBacklinks(ctx context.Context, owner, id string) (note.Note, []note.Ref, error) {
	n, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return note.Note{}, nil, err
	}

	refs := make([]note.Ref, 0, len(n.Backlinks))
	for _, sourceID := range n.Backlinks {
		source, err := s.store.Get(ctx, owner, sourceID)
		if errors.Is(err, note.ErrNotFound) {
			continue
		}
		if err != nil {
			return note.Note{}, nil, fmt.Errorf("resolve backlink %s: %w", sourceID, err)
		}
		refs = append(refs, note.Ref{ID: source.ID, Title: source.Title})
	}
	return n, refs, nil
}

// LinkTargets resolves the wiki links in content to note ids, keyed by
// note.TitleKey. Unresolved titles and self links are left out.
func (s *Service) LinkTargets(ctx context.Context, owner, selfID, content string) (map[string]string, error) {
	targets := make(map[string]string)
	for _, title := range links.Extract(content) {
		key := note.TitleKey(title)
		if _, ok := targets[key]; ok {
			continue
		}
		matches, err := s.store.FindByTitle(ctx, owner, title)
		if err != nil {
			return nil, fmt.Errorf("resolve link %q: %w", title, err)
		}
		if len(matches) == 0 {
			continue
		}
		if id := matches[len(matches)-1].ID; id != selfID {
			targets[key] = id
		}
	}
	return targets, nil
}

// List returns the notes matching f.
func (s *Service) List(ctx context.Context, f note.Filter) ([]note.Note, error) {
	notes, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []note.Note{}
	}
	return notes, nil
}

// Update applies a partial edit. A content change is diffed against the
// previous content and drives the backlink maintainer.
func (s *Service) Update(ctx context.Context, owner, id string, u note.Update) (note.Note, error) {
	u, err := u.Normalize()
	if err != nil {
		return note.Note{}, err
	}

	current, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return note.Note{}, err
	}
	if u.IsZero() {
		return current, nil
	}

	updated, err := s.store.Update(ctx, owner, id, u, s.now())
	if err != nil {
		return note.Note{}, err
	}
	if u.Content != nil && current.Content != updated.Content {
		s.maintainer.Apply(ctx, owner, id, current.Content, updated.Content)
	}
	return updated, nil
}

// Move places a single note in folder. An empty folder moves it to the root.
func (s *Service) Move(ctx context.Context, owner, id, folder string) (note.Note, error) {
	return s.Update(ctx, owner, id, note.Update{Folder: &folder})
}

// Delete removes a note and purges its id from every backlink set.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.maintainer.Forget(ctx, owner, id)

	s.logger.InfoContext(ctx, "note deleted", "owner", owner, "note", id)
	return nil
}

// FolderChange reports the outcome of a folder rename or move.
type FolderChange struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Notes int    `json:"notes"`
}

// RenameFolder renames the last segment of path to newName, carrying every
// note below it along.
func (s *Service) RenameFolder(ctx context.Context, owner, path, newName string) (FolderChange, error) {
	target, err := note.RenameTarget(path, newName)
	if err != nil {
		return FolderChange{}, err
	}
	return s.relocate(ctx, owner, note.NormalizeFolder(path), target)
}

// MoveFolder moves dragged, with everything below it, under target. An empty
// target moves it to the root.
func (s *Service) MoveFolder(ctx context.Context, owner, dragged, target string) (FolderChange, error) {
	destination, err := note.MoveTarget(dragged, target)
	if err != nil {
		return FolderChange{}, err
	}
	return s.relocate(ctx, owner, note.NormalizeFolder(dragged), destination)
}

func (s *Service) relocate(ctx context.Context, owner, from, to string) (FolderChange, error) {
	change := FolderChange{From: from, To: to}

	exists, err := s.store.FolderExists(ctx, owner, from)
	if err != nil {
		return FolderChange{}, fmt.Errorf("check folder: %w", err)
	}
	if !exists {
		return FolderChange{}, fmt.Errorf("folder %s: %w", from, note.ErrNotFound)
	}
	if from == to {
		return change, nil
	}

	taken, err := s.store.FolderExists(ctx, owner, to)
	if err != nil {
		return FolderChange{}, fmt.Errorf("check folder: %w", err)
	}
	if taken {
		return FolderChange{}, fmt.Errorf("%w: folder %s already exists", note.ErrConflict, to)
	}

	change.Notes, err = s.store.RewriteFolder(ctx, owner, from, to)
	if err != nil {
		return FolderChange{}, fmt.Errorf("relocate folder: %w", err)
	}

	s.logger.InfoContext(ctx, "folder relocated", "owner", owner, "from", from, "to", to, "notes", change.Notes)
	return change, nil
}

// DeleteFolder removes every note at or below path. The store purges the
// deleted ids from the remaining backlink sets in the same batch.
func (s *Service) DeleteFolder(ctx context.Context, owner, path string) ([]string, error) {
	ids, err := s.store.DeleteFolder(ctx, owner, path)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("folder %s: %w", note.NormalizeFolder(path), note.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "folder deleted", "owner", owner, "folder", note.NormalizeFolder(path), "notes", len(ids))
	return ids, nil
}

// Graph builds the link graph over the owner's notes in scope. Edges come
// from the note text, not the stored backlink sets.
func (s *Service) Graph(ctx context.Context, owner string, scope note.Scope) (graph.Graph, error) {
	notes, err := s.store.Find(ctx, note.Filter{Owner: owner, Scope: scope, SkipBacklinks: true})
	if err != nil {
		return graph.Graph{}, fmt.Errorf("load graph notes: %w", err)
	}

	start := time.Now()
	g := graph.Compose(notes, s.graphOpts)
	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	metrics.GraphNodes.Set(float64(len(g.Nodes)))
	metrics.GraphEdges.Set(float64(len(g.Edges)))

	s.logger.DebugContext(ctx, "graph built",
		"owner", owner,
		"scope", scope.String(),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
	)
	return g, nil
}

// Restore inserts previously exported notes, keeping their ids and
// timestamps, and replays every note's links so backlinks are rebuilt from
// the content. Notes whose id the owner already holds are skipped and
// counted. An id taken by another owner is replaced with a fresh one.
func (s *Service) Restore(ctx context.Context, owner string, notes []note.Note) (restored, skipped int, err error) {
	var inserted []note.Note
	for _, n := range notes {
		d, err := note.Draft{Title: n.Title, Content: n.Content, Folder: n.Folder}.Normalize()
		if err != nil {
			return restored, skipped, fmt.Errorf("restore note %s: %w", n.ID, err)
		}
		n.Title, n.Content, n.Folder = d.Title, d.Content, d.Folder
		if n.ID == "" {
			n.ID = s.newID()
		}
		n.Owner = owner
		n.Backlinks = []string{}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = s.now()
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		err = s.store.Insert(ctx, n)
		if errors.Is(err, note.ErrConflict) {
			owned, ownErr := s.ownsID(ctx, owner, n.ID)
			if ownErr != nil {
				return restored, skipped, ownErr
			}
			if owned {
				s.logger.DebugContext(ctx, "restore skipped existing note", "owner", owner, "id", n.ID)
				skipped++
				continue
			}
			fresh := s.newID()
			s.logger.WarnContext(ctx, "restore id held by another owner; assigning a new id",
				"owner", owner,
				"id", n.ID,
				"new_id", fresh,
			)
			n.ID = fresh
			err = s.store.Insert(ctx, n)
		}
		if err != nil {
			return restored, skipped, fmt.Errorf("restore note %s: %w", n.ID, err)
		}
		inserted = append(inserted, n)
		restored++
	}

	// Replay after every note exists so links between restored notes resolve.
	for _, n := range inserted {
		s.maintainer.Apply(ctx, owner, n.ID, "", n.Content)
	}
	return restored, skipped, nil
}

func (s *Service) ownsID(ctx context.Context, owner, id string) (bool, error) {
	_, err := s.store.Get(ctx, owner, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, note.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("restore note %s: %w", id, err)
	}
}
