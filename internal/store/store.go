// Package store persists notes and their backlink sets.
//
// Every query is scoped to an owner; a note that exists but belongs to someone
// else is reported as note.ErrNotFound.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Paintersrp/weave/internal/note"
)

// ErrClosed is returned by every method once Close has been called.
var ErrClosed = errors.New("store closed")

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the document store behind the note service and the backlink
// maintainer.
type Store interface {
	// Insert adds a new note. The id must be unique.
	Insert(ctx context.Context, n note.Note) error
	Get(ctx context.Context, owner, id string) (note.Note, error)
	// Find returns the notes matching f, ordered by f.Sort.
	Find(ctx context.Context, f note.Filter) ([]note.Note, error)
	// FindByTitle returns the owner's notes whose title matches
	// case-insensitively, oldest first.
	FindByTitle(ctx context.Context, owner, title string) ([]note.Note, error)
	Update(ctx context.Context, owner, id string, u note.Update, at time.Time) (note.Note, error)
	// Delete removes a note and its own backlink set. Callers purge the id
	// from other notes separately.
	Delete(ctx context.Context, owner, id string) error

	// AddBacklink records that sourceID links to targetID. Adding an existing
	// entry or targeting a missing note is a no-op.
	AddBacklink(ctx context.Context, owner, targetID, sourceID string) error
	// RemoveBacklink drops sourceID from each target's backlink set.
	RemoveBacklink(ctx context.Context, owner string, targetIDs []string, sourceID string) error
	// PurgeBacklinks drops every id in ids from all of the owner's backlink
	// sets in one operation.
	PurgeBacklinks(ctx context.Context, owner string, ids []string) error

	// DeleteFolder removes every note at or below prefix and purges their ids
	// from the remaining backlink sets as one batch. It returns the deleted ids.
	DeleteFolder(ctx context.Context, owner, prefix string) ([]string, error)
	// RewriteFolder moves every note at or below from to the same relative
	// place below to, returning the number of notes touched.
	RewriteFolder(ctx context.Context, owner, from, to string) (int, error)
	FolderExists(ctx context.Context, owner, prefix string) (bool, error)

	Close() error
}

// Open constructs the store named by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(ctx, dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func requireFolder(prefix string) (string, error) {
	prefix = note.NormalizeFolder(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: folder path is required", note.ErrInvalid)
	}
	return prefix, nil
}

// likeEscaper escapes LIKE metacharacters; queries use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func childPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "/%"
}
