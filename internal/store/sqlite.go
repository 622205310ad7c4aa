package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Paintersrp/weave/internal/note"
)

// SQLite is a Store backed by a single SQLite database through the
// database/sql driver. Backlinks live in their own table so add and remove
// are single-statement set operations.
type SQLite struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    title TEXT NOT NULL,
    title_key TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    folder TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner_title ON notes(owner, title_key);
CREATE INDEX IF NOT EXISTS idx_notes_owner_folder ON notes(owner, folder);

CREATE TABLE IF NOT EXISTS backlinks (
    owner TEXT NOT NULL,
    target_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    PRIMARY KEY (owner, target_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_backlinks_source ON backlinks(owner, source_id);
`

const noteColumns = `n.id, n.owner, n.title, n.content, n.folder, n.created_at, n.updated_at`

// sqliteMaxVars keeps bound id lists well under SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxVars = 500

// sqliteInFolder matches a folder at or below a prefix. SQLite's LIKE ignores
// ASCII case, so the child test compares a character-counted substr instead.
const sqliteInFolder = `(n.folder = ? OR substr(n.folder, 1, ?) = ?)`

func folderArgs(prefix string) []any {
	return []any{prefix, utf8.RuneCountInString(prefix) + 1, prefix + "/"}
}

// NewSQLite opens dsn (a file path, or ":memory:" when empty) and creates the
// schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Insert(ctx context.Context, n note.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, n.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: note %s already exists", note.ErrConflict, n.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check note %s: %w", n.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, owner, title, title_key, content, folder, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Owner, n.Title, note.TitleKey(n.Title), n.Content, n.Folder,
		n.CreatedAt.UnixNano(), n.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert note %s: %w", n.ID, err)
	}
	for _, source := range n.Backlinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO backlinks (owner, target_id, source_id) VALUES (?, ?, ?)`,
			n.Owner, n.ID, source,
		); err != nil {
			return fmt.Errorf("insert backlinks for %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, owner, id string) (note.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return note.Note{}, ErrClosed
	}
	return s.get(ctx, s.db, owner, id)
}

func (s *SQLite) Find(ctx context.Context, f note.Filter) ([]note.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	where := `n.owner = ?`
	args := []any{f.Owner}
	switch f.Scope.Kind {
	case note.ScopeRoot:
		where += ` AND n.folder = ''`
	case note.ScopePrefix:
		where += ` AND ` + sqliteInFolder
		args = append(args, folderArgs(f.Scope.Path)...)
	}
	if !f.UpdatedSince.IsZero() {
		where += ` AND n.updated_at >= ?`
		args = append(args, f.UpdatedSince.UnixNano())
	}

	notes, err := s.query(ctx, s.db, where+` ORDER BY n.created_at, n.id`, args...)
	if err != nil {
		return nil, err
	}
	if !f.SkipBacklinks {
		if err := s.attachBacklinks(ctx, s.db, notes, where, args...); err != nil {
			return nil, err
		}
	}
	note.SortNotes(notes, f.Sort)
	return notes, nil
}

func (s *SQLite) FindByTitle(ctx context.Context, owner, title string) ([]note.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	where := `n.owner = ? AND n.title_key = ?`
	args := []any{owner, note.TitleKey(title)}
	notes, err := s.query(ctx, s.db, where+` ORDER BY n.created_at, n.id`, args...)
	if err != nil {
		return nil, err
	}
	if err := s.attachBacklinks(ctx, s.db, notes, where, args...); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *SQLite) Update(ctx context.Context, owner, id string, u note.Update, at time.Time) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return note.Note{}, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return note.Note{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := s.get(ctx, tx, owner, id)
	if err != nil {
		return note.Note{}, err
	}
	updated := u.Apply(current, at)
	_, err = tx.ExecContext(ctx,
		`UPDATE notes SET title = ?, title_key = ?, content = ?, folder = ?, updated_at = ?
		 WHERE owner = ? AND id = ?`,
		updated.Title, note.TitleKey(updated.Title), updated.Content, updated.Folder,
		updated.UpdatedAt.UnixNano(), owner, id,
	)
	if err != nil {
		return note.Note{}, fmt.Errorf("update note %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return note.Note{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (s *SQLite) Delete(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM backlinks WHERE owner = ? AND target_id = ?`, owner, id,
	); err != nil {
		return fmt.Errorf("delete backlinks of %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLite) AddBacklink(ctx context.Context, owner, targetID, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO backlinks (owner, target_id, source_id)
		 SELECT owner, id, ? FROM notes WHERE owner = ? AND id = ?`,
		sourceID, owner, targetID,
	)
	if err != nil {
		return fmt.Errorf("add backlink %s -> %s: %w", sourceID, targetID, err)
	}
	return nil
}

func (s *SQLite) RemoveBacklink(ctx context.Context, owner string, targetIDs []string, sourceID string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, batch := range chunk(targetIDs, sqliteMaxVars) {
		in, args := inClause(batch)
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM backlinks WHERE owner = ? AND source_id = ? AND target_id IN (`+in+`)`,
			append([]any{owner, sourceID}, args...)...,
		)
		if err != nil {
			return fmt.Errorf("remove backlink %s: %w", sourceID, err)
		}
	}
	return nil
}

func (s *SQLite) PurgeBacklinks(ctx context.Context, owner string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return purgeSQLite(ctx, s.db, owner, ids)
}

func (s *SQLite) DeleteFolder(ctx context.Context, owner, prefix string) ([]string, error) {
	prefix, err := requireFolder(prefix)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin folder delete: %w", err)
	}
	defer tx.Rollback()

	inFolder := `SELECT n.id FROM notes n WHERE n.owner = ? AND ` + sqliteInFolder
	args := append([]any{owner}, folderArgs(prefix)...)

	rows, err := tx.QueryContext(ctx, inFolder+` ORDER BY n.created_at, n.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("select folder %s: %w", prefix, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	// Backlinks go first; the subqueries still see the folder's notes.
	withOwner := append([]any{owner}, args...)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM backlinks WHERE owner = ? AND (target_id IN (`+inFolder+`) OR source_id IN (`+inFolder+`))`,
		append(withOwner, args...)...,
	); err != nil {
		return nil, fmt.Errorf("delete folder backlinks %s: %w", prefix, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notes WHERE id IN (`+inFolder+`)`, args...,
	); err != nil {
		return nil, fmt.Errorf("delete folder %s: %w", prefix, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit folder delete: %w", err)
	}
	return ids, nil
}

func (s *SQLite) RewriteFolder(ctx context.Context, owner, from, to string) (int, error) {
	from, err := requireFolder(from)
	if err != nil {
		return 0, err
	}
	to = note.NormalizeFolder(to)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	args := append([]any{to, utf8.RuneCountInString(from) + 1, owner}, folderArgs(from)...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes AS n SET folder = ? || substr(n.folder, ?) WHERE n.owner = ? AND `+sqliteInFolder,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("rewrite folder %s: %w", from, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLite) FolderExists(ctx context.Context, owner, prefix string) (bool, error) {
	prefix = note.NormalizeFolder(prefix)
	if prefix == "" {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notes n WHERE n.owner = ? AND `+sqliteInFolder+`)`,
		append([]any{owner}, folderArgs(prefix)...)...,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check folder %s: %w", prefix, err)
	}
	return exists == 1, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLite) get(ctx context.Context, q sqlQuerier, owner, id string) (note.Note, error) {
	where := `n.owner = ? AND n.id = ?`
	notes, err := s.query(ctx, q, where, owner, id)
	if err != nil {
		return note.Note{}, err
	}
	if len(notes) == 0 {
		return note.Note{}, fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	if err := s.attachBacklinks(ctx, q, notes, where, owner, id); err != nil {
		return note.Note{}, err
	}
	return notes[0], nil
}

// query selects the notes matching where, a predicate over the alias n.
func (s *SQLite) query(ctx context.Context, q sqlQuerier, where string, args ...any) ([]note.Note, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes n WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		var (
			n                note.Note
			created, updated int64
		)
		if err := rows.Scan(&n.ID, &n.Owner, &n.Title, &n.Content, &n.Folder, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = time.Unix(0, created).UTC()
		n.UpdatedAt = time.Unix(0, updated).UTC()
		n.Backlinks = []string{}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// attachBacklinks loads the backlink sets of notes, which must be the result
// of query with the same where and args. The join keeps the bound argument
// count independent of how many notes matched.
func (s *SQLite) attachBacklinks(ctx context.Context, q sqlQuerier, notes []note.Note, where string, args ...any) error {
	if len(notes) == 0 {
		return nil
	}
	index := make(map[string]int, len(notes))
	for i, n := range notes {
		index[n.ID] = i
	}

	rows, err := q.QueryContext(ctx,
		`SELECT b.target_id, b.source_id FROM backlinks b
		 JOIN notes n ON n.id = b.target_id AND n.owner = b.owner
		 WHERE `+where+` ORDER BY b.rowid`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("query backlinks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var target, source string
		if err := rows.Scan(&target, &source); err != nil {
			return fmt.Errorf("scan backlink: %w", err)
		}
		if i, ok := index[target]; ok {
			notes[i].Backlinks = append(notes[i].Backlinks, source)
		}
	}
	return rows.Err()
}

func purgeSQLite(ctx context.Context, q sqlQuerier, owner string, ids []string) error {
	for _, batch := range chunk(ids, sqliteMaxVars) {
		in, args := inClause(batch)
		_, err := q.ExecContext(ctx,
			`DELETE FROM backlinks WHERE owner = ? AND source_id IN (`+in+`)`,
			append([]any{owner}, args...)...,
		)
		if err != nil {
			return fmt.Errorf("purge backlinks: %w", err)
		}
	}
	return nil
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
