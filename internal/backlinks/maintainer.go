// Package backlinks keeps each note's backlink set in step with the links
// other notes hold to it.
package backlinks

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/weave/internal/links"
	"github.com/Paintersrp/weave/internal/metrics"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/store"
)

// DefaultConcurrency bounds the target updates issued for one diff.
const DefaultConcurrency = 4

// Maintainer applies link diffs to the backlink index. Store failures are
// logged and counted but never returned, so a note write always succeeds
// independently of its backlink side effects.
type Maintainer struct {
	store       store.Store
	logger      *slog.Logger
	concurrency int
}

// Option configures a Maintainer.
type Option func(*Maintainer)

// WithConcurrency sets the worker bound for target updates. Values below one
// fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(m *Maintainer) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// New constructs a Maintainer over s.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Maintainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Maintainer{store: s, logger: logger, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result summarizes one Apply call.
type Result struct {
	// Added is the number of targets that gained the editing note.
	Added int
	// Removed is the number of targets the editing note was removed from.
	Removed int
	// Missed is the number of added titles that resolved to no note.
	Missed int
	// Failed is the number of store operations that returned an error.
	Failed int
}

// Apply updates backlinks after note noteID changed from oldContent to
// newContent. Removals run before additions so a title that only changed
// case, or two titles resolving to the same note, leave the link in place.
func (m *Maintainer) Apply(ctx context.Context, owner, noteID, oldContent, newContent string) Result {
	added, removed := m.diff(oldContent, newContent)
	if len(added) == 0 && len(removed) == 0 {
		return Result{}
	}

	var (
		mu  sync.Mutex
		res Result
	)
	record := func(fn func(*Result)) {
		mu.Lock()
		fn(&res)
		mu.Unlock()
	}

	m.each(ctx, removed, func(ctx context.Context, title string) {
		targets, err := m.store.FindByTitle(ctx, owner, title)
		if err != nil {
			m.fail(ctx, "remove", noteID, title, err)
			record(func(r *Result) { r.Failed++ })
			return
		}
		ids := make([]string, 0, len(targets))
		for _, t := range targets {
			if t.ID != noteID {
				ids = append(ids, t.ID)
			}
		}
		if len(ids) == 0 {
			return
		}
		err = m.store.RemoveBacklink(ctx, owner, ids, noteID)
		metrics.BacklinkUpdates.WithLabelValues("remove", metrics.Outcome(err)).Inc()
		if err != nil {
			m.fail(ctx, "remove", noteID, title, err)
			record(func(r *Result) { r.Failed++ })
			return
		}
		record(func(r *Result) { r.Removed += len(ids) })
	})

	m.each(ctx, added, func(ctx context.Context, title string) {
		targets, err := m.store.FindByTitle(ctx, owner, title)
		if err != nil {
			m.fail(ctx, "add", noteID, title, err)
			record(func(r *Result) { r.Failed++ })
			return
		}
		if len(targets) == 0 {
			metrics.UnresolvedLinks.Inc()
			record(func(r *Result) { r.Missed++ })
			return
		}
		// Most recently created note wins on duplicate titles.
		target := targets[len(targets)-1]
		if target.ID == noteID {
			return
		}
		err = m.store.AddBacklink(ctx, owner, target.ID, noteID)
		metrics.BacklinkUpdates.WithLabelValues("add", metrics.Outcome(err)).Inc()
		if err != nil {
			m.fail(ctx, "add", noteID, title, err)
			record(func(r *Result) { r.Failed++ })
			return
		}
		record(func(r *Result) { r.Added++ })
	})

	m.logger.DebugContext(ctx, "backlinks applied",
		"owner", owner,
		"note", noteID,
		"added", res.Added,
		"removed", res.Removed,
		"missed", res.Missed,
		"failed", res.Failed,
	)
	return res
}

// Forget removes ids from every backlink set the owner holds. It is called
// after notes are deleted.
func (m *Maintainer) Forget(ctx context.Context, owner string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	err := m.store.PurgeBacklinks(ctx, owner, ids)
	metrics.BacklinkUpdates.WithLabelValues("purge", metrics.Outcome(err)).Inc()
	if err != nil {
		m.logger.ErrorContext(ctx, "backlink purge failed",
			"owner", owner,
			"ids", ids,
			"error", err,
		)
	}
}

// diff returns the added and removed titles, ignoring titles whose
// case-folded form appears on both sides.
func (m *Maintainer) diff(oldContent, newContent string) (added, removed []string) {
	change := links.Diff(oldContent, newContent)
	if change.IsEmpty() {
		return nil, nil
	}
	oldKeys := keys(links.Extract(oldContent))
	newKeys := keys(links.Extract(newContent))

	added = foldUnique(change.Added, oldKeys)
	removed = foldUnique(change.Removed, newKeys)
	return added, removed
}

func (m *Maintainer) each(ctx context.Context, titles []string, fn func(context.Context, string)) {
	if len(titles) == 0 {
		return
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, title := range titles {
		title := title
		g.Go(func() error {
			fn(gCtx, title)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Maintainer) fail(ctx context.Context, op, noteID, title string, err error) {
	m.logger.ErrorContext(ctx, "backlink update failed",
		"op", op,
		"note", noteID,
		"title", title,
		"error", err,
	)
}

func keys(titles []string) map[string]struct{} {
	out := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		out[note.TitleKey(title)] = struct{}{}
	}
	return out
}

// foldUnique keeps titles whose key is not in skip, one per key.
func foldUnique(titles []string, skip map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		key := note.TitleKey(title)
		if _, ok := skip[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
	}
	return out
}
