package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

// Backend stores one document per row in the documents table.
type Backend struct {
	db *DB
}

func NewBackend(db *DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) Get(ctx context.Context, path string) ([]byte, bool, error) {
	var raw []byte
	err := b.db.Pool.QueryRow(ctx, `SELECT body FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b *Backend) Entries(ctx context.Context, path string) ([]doctree.Entry, error) {
	rows, err := b.db.Pool.Query(ctx, `
		SELECT path, body FROM documents
		WHERE $1 = '' OR path = $1 OR path LIKE $2 ESCAPE '\'
	`, path, likePrefix(path))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []doctree.Entry
	for rows.Next() {
		var e doctree.Entry
		if err := rows.Scan(&e.Path, &e.Raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *Backend) Put(ctx context.Context, path string, raw []byte) error {
	_, err := b.db.Pool.Exec(ctx, `
		INSERT INTO documents (path, body, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, path, string(raw))
	return err
}

func (b *Backend) DeleteTree(ctx context.Context, path string) error {
	_, err := b.db.Pool.Exec(ctx, `
		DELETE FROM documents
		WHERE $1 = '' OR path = $1 OR path LIKE $2 ESCAPE '\'
	`, path, likePrefix(path))
	return err
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.db.Pool.Ping(ctx)
}

func likePrefix(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(path) + "/%"
}
