package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Paintersrp/weave/internal/note"
)

// Postgres is a Store backed by a pgx connection pool. Backlinks are a TEXT[]
// column updated with array_append and array_remove, so every set operation
// is a single statement.
type Postgres struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    title TEXT NOT NULL,
    title_key TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    folder TEXT NOT NULL DEFAULT '',
    backlinks TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner_title ON notes(owner, title_key);
CREATE INDEX IF NOT EXISTS idx_notes_owner_folder ON notes(owner, folder);
`

const pgColumns = `id, owner, title, content, folder, backlinks, created_at, updated_at`

// NewPostgres connects to dsn and creates the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Insert(ctx context.Context, n note.Note) error {
	backlinks := n.Backlinks
	if backlinks == nil {
		backlinks = []string{}
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO notes (id, owner, title, title_key, content, folder, backlinks, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.Owner, n.Title, note.TitleKey(n.Title), n.Content, n.Folder, backlinks,
		n.CreatedAt, n.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: note %s already exists", note.ErrConflict, n.ID)
	}
	if err != nil {
		return fmt.Errorf("insert note %s: %w", n.ID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, owner, id string) (note.Note, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+pgColumns+` FROM notes WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return note.Note{}, fmt.Errorf("query note %s: %w", id, err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanPgNote)
	if errors.Is(err, pgx.ErrNoRows) {
		return note.Note{}, fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	if err != nil {
		return note.Note{}, fmt.Errorf("scan note %s: %w", id, err)
	}
	return n, nil
}

func (p *Postgres) Find(ctx context.Context, f note.Filter) ([]note.Note, error) {
	query := `SELECT ` + pgColumns + ` FROM notes WHERE owner = $1`
	args := []any{f.Owner}
	switch f.Scope.Kind {
	case note.ScopeRoot:
		query += ` AND folder = ''`
	case note.ScopePrefix:
		args = append(args, f.Scope.Path, childPattern(f.Scope.Path))
		query += fmt.Sprintf(` AND (folder = $%d OR folder LIKE $%d ESCAPE '\')`, len(args)-1, len(args))
	}
	if !f.UpdatedSince.IsZero() {
		args = append(args, f.UpdatedSince)
		query += fmt.Sprintf(` AND updated_at >= $%d`, len(args))
	}
	query += ` ORDER BY created_at, id`

	notes, err := p.collect(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	note.SortNotes(notes, f.Sort)
	return notes, nil
}

func (p *Postgres) FindByTitle(ctx context.Context, owner, title string) ([]note.Note, error) {
	return p.collect(ctx,
		`SELECT `+pgColumns+` FROM notes WHERE owner = $1 AND title_key = $2 ORDER BY created_at, id`,
		owner, note.TitleKey(title),
	)
}

func (p *Postgres) Update(ctx context.Context, owner, id string, u note.Update, at time.Time) (note.Note, error) {
	var updated note.Note
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+pgColumns+` FROM notes WHERE owner = $1 AND id = $2 FOR UPDATE`, owner, id)
		if err != nil {
			return err
		}
		current, err := pgx.CollectExactlyOneRow(rows, scanPgNote)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("note %s: %w", id, note.ErrNotFound)
		}
		if err != nil {
			return err
		}

		updated = u.Apply(current, at)
		_, err = tx.Exec(ctx,
			`UPDATE notes SET title = $1, title_key = $2, content = $3, folder = $4, updated_at = $5
			 WHERE owner = $6 AND id = $7`,
			updated.Title, note.TitleKey(updated.Title), updated.Content, updated.Folder,
			updated.UpdatedAt, owner, id,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			return note.Note{}, err
		}
		return note.Note{}, fmt.Errorf("update note %s: %w", id, err)
	}
	return updated, nil
}

func (p *Postgres) Delete(ctx context.Context, owner, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM notes WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, note.ErrNotFound)
	}
	return nil
}

func (p *Postgres) AddBacklink(ctx context.Context, owner, targetID, sourceID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE notes SET backlinks = array_append(backlinks, $3)
		 WHERE owner = $1 AND id = $2 AND NOT ($3 = ANY(backlinks))`,
		owner, targetID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("add backlink %s -> %s: %w", sourceID, targetID, err)
	}
	return nil
}

func (p *Postgres) RemoveBacklink(ctx context.Context, owner string, targetIDs []string, sourceID string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx,
		`UPDATE notes SET backlinks = array_remove(backlinks, $3)
		 WHERE owner = $1 AND id = ANY($2) AND $3 = ANY(backlinks)`,
		owner, targetIDs, sourceID,
	)
	if err != nil {
		return fmt.Errorf("remove backlink %s: %w", sourceID, err)
	}
	return nil
}

func (p *Postgres) PurgeBacklinks(ctx context.Context, owner string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := purgePg(ctx, p.pool, owner, ids); err != nil {
		return fmt.Errorf("purge backlinks: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteFolder(ctx context.Context, owner, prefix string) ([]string, error) {
	prefix, err := requireFolder(prefix)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM notes WHERE owner = $1 AND (folder = $2 OR folder LIKE $3 ESCAPE '\')
			 RETURNING id`,
			owner, prefix, childPattern(prefix),
		)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil || len(ids) == 0 {
			return err
		}
		return purgePg(ctx, tx, owner, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("delete folder %s: %w", prefix, err)
	}
	return ids, nil
}

func (p *Postgres) RewriteFolder(ctx context.Context, owner, from, to string) (int, error) {
	from, err := requireFolder(from)
	if err != nil {
		return 0, err
	}
	to = note.NormalizeFolder(to)

	tag, err := p.pool.Exec(ctx,
		`UPDATE notes SET folder = $1 || substr(folder, $2)
		 WHERE owner = $3 AND (folder = $4 OR folder LIKE $5 ESCAPE '\')`,
		to, utf8.RuneCountInString(from)+1, owner, from, childPattern(from),
	)
	if err != nil {
		return 0, fmt.Errorf("rewrite folder %s: %w", from, err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) FolderExists(ctx context.Context, owner, prefix string) (bool, error) {
	prefix = note.NormalizeFolder(prefix)
	if prefix == "" {
		return true, nil
	}
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notes WHERE owner = $1 AND (folder = $2 OR folder LIKE $3 ESCAPE '\'))`,
		owner, prefix, childPattern(prefix),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check folder %s: %w", prefix, err)
	}
	return exists, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func purgePg(ctx context.Context, q pgExecer, owner string, ids []string) error {
	_, err := q.Exec(ctx,
		`UPDATE notes SET backlinks = ARRAY(SELECT b FROM unnest(backlinks) AS b WHERE b <> ALL($2))
		 WHERE owner = $1 AND backlinks && $2`,
		owner, ids,
	)
	return err
}

func (p *Postgres) collect(ctx context.Context, query string, args ...any) ([]note.Note, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	notes, err := pgx.CollectRows(rows, scanPgNote)
	if err != nil {
		return nil, fmt.Errorf("scan notes: %w", err)
	}
	return notes, nil
}

func scanPgNote(row pgx.CollectableRow) (note.Note, error) {
	var n note.Note
	err := row.Scan(&n.ID, &n.Owner, &n.Title, &n.Content, &n.Folder, &n.Backlinks, &n.CreatedAt, &n.UpdatedAt)
	if n.Backlinks == nil {
		n.Backlinks = []string{}
	}
	return n, err
}
