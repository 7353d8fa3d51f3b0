package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements DocStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var (
		doc  Document
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, collection, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&doc.ID, &doc.Collection, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s/%s", collection, id)
	}
	doc.Data = json.RawMessage(data)
	return &doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection, data, created_at, updated_at FROM documents WHERE collection = ? ORDER BY created_at`,
		collection,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", collection)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			data string
		)
		if err := rows.Scan(&doc.ID, &doc.Collection, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal document")
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(data), now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: add to %s", collection)
	}
	return id, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal document")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(data), now, now,
	)
	return eris.Wrapf(err, "sqlite: set %s/%s", collection, id)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return mergeFields(data, fields)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete %s/%s", collection, id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ArrayUnion(ctx context.Context, collection, id, field string, elems ...any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return applyArrayMutation(data, field, elems, false)
	})
}

func (s *SQLiteStore) ArrayRemove(ctx context.Context, collection, id, field string, elems ...any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return applyArrayMutation(data, field, elems, true)
	})
}

// rewrite applies fn to an existing document body inside one
// transaction, so concurrent mutations of the same document cannot
// interleave.
func (s *SQLiteStore) rewrite(ctx context.Context, collection, id string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get %s/%s", collection, id)
	}

	updated, err := fn(json.RawMessage(data))
	if err != nil {
		return eris.Wrapf(err, "sqlite: rewrite %s/%s", collection, id)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(updated), time.Now().UTC(), collection, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s/%s", collection, id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}
