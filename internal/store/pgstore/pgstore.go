// Package pgstore is the PostgreSQL driver for the document store. All
// collections live in a single documents table keyed by (user, collection,
// id) with the payload in a jsonb column. Batch writes run inside one
// database transaction, which is what gives the import pipeline its
// all-or-nothing commit.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/financas/server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	user_id    text        NOT NULL,
	collection text        NOT NULL,
	id         uuid        NOT NULL,
	data       jsonb       NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, collection, id)
);

CREATE INDEX IF NOT EXISTS documents_scope_idx
	ON documents (user_id, collection, created_at);
`

// Store implements store.Store on top of a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	fanout *store.Fanout
}

// New wraps an existing pool. Call EnsureSchema before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, fanout: store.NewFanout()}
}

// Connect parses the URL, opens a pool and verifies the connection.
func Connect(ctx context.Context, url string, maxConns, minConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return New(pool), nil
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, userID, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (user_id, collection, id, data) VALUES ($1, $2, $3, $4)`,
		userID, collection, id, data)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	s.fanout.PublishCurrent(ctx, userID, collection, s.List)
	return id, nil
}

func (s *Store) Update(ctx context.Context, userID, collection, id string, data json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = $4, updated_at = now()
		 WHERE user_id = $1 AND collection = $2 AND id = $3`,
		userID, collection, id, data)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	s.fanout.PublishCurrent(ctx, userID, collection, s.List)
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE user_id = $1 AND collection = $2 AND id = $3`,
		userID, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	s.fanout.PublishCurrent(ctx, userID, collection, s.List)
	return nil
}

func (s *Store) Get(ctx context.Context, userID, collection, id string) (store.Document, error) {
	doc := store.Document{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE user_id = $1 AND collection = $2 AND id = $3`,
		userID, collection, id).Scan(&doc.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, userID, collection string) ([]store.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents
		 WHERE user_id = $1 AND collection = $2
		 ORDER BY created_at, id`,
		userID, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// BatchWrite applies every write in one transaction. An update of a
// missing document fails the whole batch.
func (s *Store) BatchWrite(ctx context.Context, userID string, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range writes {
		switch w.Op {
		case store.OpCreate:
			_, err = tx.Exec(ctx,
				`INSERT INTO documents (user_id, collection, id, data) VALUES ($1, $2, $3, $4)`,
				userID, w.Collection, uuid.NewString(), w.Data)
			if err != nil {
				return fmt.Errorf("batch create in %s: %w", w.Collection, err)
			}
		case store.OpUpdate:
			tag, err := tx.Exec(ctx,
				`UPDATE documents SET data = $4, updated_at = now()
				 WHERE user_id = $1 AND collection = $2 AND id = $3`,
				userID, w.Collection, w.ID, w.Data)
			if err != nil {
				return fmt.Errorf("batch update in %s: %w", w.Collection, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("batch update in %s: %w", w.Collection, store.ErrNotFound)
			}
		default:
			return fmt.Errorf("unknown batch op %d", w.Op)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	seen := map[string]bool{}
	for _, w := range writes {
		if !seen[w.Collection] {
			seen[w.Collection] = true
			s.fanout.PublishCurrent(ctx, userID, w.Collection, s.List)
		}
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, userID, collection string) (<-chan []store.Document, store.CancelFunc) {
	// Initial snapshot so the listener sees current state without waiting
	// for the first mutation.
	return s.fanout.AddCurrent(userID, collection, func() ([]store.Document, error) {
		return s.List(ctx, userID, collection)
	})
}

func (s *Store) Close() {
	s.pool.Close()
}

// IsNotFound reports whether err is (or wraps) store.ErrNotFound or a
// pgx no-rows error.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
