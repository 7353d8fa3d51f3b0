package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements DocStore using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var (
		doc  Document
		data []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, collection, data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&doc.ID, &doc.Collection, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s/%s", collection, id)
	}
	doc.Data = data
	return &doc, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, collection, data, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY created_at`,
		collection,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", collection)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			data []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Collection, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Add(ctx context.Context, collection string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal document")
	}
	id := uuid.NewString()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, data,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: add to %s", collection)
	}
	return id, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal document")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, data,
	)
	return eris.Wrapf(err, "postgres: set %s/%s", collection, id)
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return mergeFields(data, fields)
	})
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete %s/%s", collection, id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ArrayUnion(ctx context.Context, collection, id, field string, elems ...any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return applyArrayMutation(data, field, elems, false)
	})
}

func (s *PostgresStore) ArrayRemove(ctx context.Context, collection, id, field string, elems ...any) error {
	return s.rewrite(ctx, collection, id, func(data json.RawMessage) (json.RawMessage, error) {
		return applyArrayMutation(data, field, elems, true)
	})
}

// rewrite applies fn to a document body inside one transaction with
// the row locked, so concurrent array mutations serialize.
func (s *PostgresStore) rewrite(ctx context.Context, collection, id string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var data []byte
	err = tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: get %s/%s", collection, id)
	}

	updated, err := fn(data)
	if err != nil {
		return eris.Wrapf(err, "postgres: rewrite %s/%s", collection, id)
	}

	_, err = tx.Exec(ctx,
		`UPDATE documents SET data = $1, updated_at = now() WHERE collection = $2 AND id = $3`,
		[]byte(updated), collection, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s/%s", collection, id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}
