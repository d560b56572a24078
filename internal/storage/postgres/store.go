// Package postgres implements the document store on PostgreSQL, keeping
// each entity as a jsonb document so the pipeline's merge-upsert runs as
// one atomic statement.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanworks/storygraph/internal/storage"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists documents in two tables: documents (one row per entity,
// unique on collection + natural key) and links (one row per association
// pair).
type Store struct {
	pool  Pool
	clock storage.Clock
}

// New connects a pool and returns a Store.
func New(ctx context.Context, cfg Config, clock storage.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, clock: clock}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool Pool, clock storage.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertSQL = `
INSERT INTO documents (id, collection, natural_key, doc, is_preliminary, created_at, updated_at)
VALUES (gen_random_uuid(), $1, $2, $3::jsonb || $4::jsonb, $5, $6, $6)
ON CONFLICT (collection, natural_key) DO UPDATE
SET doc = documents.doc || $4::jsonb,
    is_preliminary = documents.is_preliminary AND $5,
    updated_at = $6
RETURNING id, (xmax = 0) AS inserted`

const mergeByIDSQL = `
UPDATE documents
SET doc = doc || $2::jsonb,
    is_preliminary = is_preliminary AND $3,
    updated_at = $4
WHERE id = $1`

// Upsert implements storage.Store. The unique (collection, natural_key)
// index is the conflict target, so the insert-or-merge is one atomic
// round trip. Name-variant keys first try to match a curated alias
// (name2/name3) with a plain SELECT; a miss falls through to the atomic
// path keyed on the requested value, which still cannot duplicate.
func (s *Store) Upsert(ctx context.Context, coll storage.Collection, key storage.Key, up storage.Upsert) (storage.Result, error) {
	setJSON, err := json.Marshal(orEmpty(up.Set))
	if err != nil {
		return storage.Result{}, fmt.Errorf("marshal set fields: %w", err)
	}
	now := s.clock.Now()

	if key.Name != "" {
		id, err := s.findVariant(ctx, coll, key)
		switch {
		case err == nil:
			if _, err := s.pool.Exec(ctx, mergeByIDSQL, id, setJSON, up.Preliminary, now); err != nil {
				return storage.Result{}, fmt.Errorf("merge %s document: %w", coll, err)
			}
			return storage.Result{ID: id}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return storage.Result{}, err
		}
	}

	insertJSON, err := json.Marshal(orEmpty(up.SetOnInsert))
	if err != nil {
		return storage.Result{}, fmt.Errorf("marshal insert fields: %w", err)
	}
	var res storage.Result
	row := s.pool.QueryRow(ctx, upsertSQL, string(coll), key.Canonical(), insertJSON, setJSON, up.Preliminary, now)
	if err := row.Scan(&res.ID, &res.Created); err != nil {
		return storage.Result{}, fmt.Errorf("upsert %s document: %w", coll, err)
	}
	return res, nil
}

// FindID implements storage.Store.
func (s *Store) FindID(ctx context.Context, coll storage.Collection, key storage.Key) (string, error) {
	if key.Name != "" {
		return s.findVariant(ctx, coll, key)
	}
	var id string
	row := s.pool.QueryRow(ctx,
		`SELECT id FROM documents WHERE collection = $1 AND natural_key = $2`,
		string(coll), key.Canonical())
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("find %s document: %w", coll, err)
	}
	return id, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, coll storage.Collection, id string) (storage.Document, error) {
	var (
		raw         []byte
		preliminary bool
		createdAt   time.Time
		updatedAt   time.Time
	)
	row := s.pool.QueryRow(ctx,
		`SELECT doc, is_preliminary, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		string(coll), id)
	if err := row.Scan(&raw, &preliminary, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get %s document: %w", coll, err)
	}
	var doc storage.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", coll, err)
	}
	doc["id"] = id
	doc["isPreliminary"] = preliminary
	doc["createdAt"] = createdAt
	doc["updatedAt"] = updatedAt
	return doc, nil
}

// EnsureLink implements storage.Store.
func (s *Store) EnsureLink(ctx context.Context, coll storage.Collection, parentID, childID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO links (collection, parent_id, child_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection, parent_id, child_id) DO NOTHING`,
		string(coll), parentID, childID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("insert %s link: %w", coll, err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementCounter implements storage.Store. The increment happens
// inside one UPDATE statement, so concurrent increments serialize in the
// store rather than racing through read-modify-write round trips.
func (s *Store) IncrementCounter(ctx context.Context, coll storage.Collection, id, field string, delta int64) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE documents
SET doc = jsonb_set(doc, $3, to_jsonb(COALESCE((doc->>$4)::bigint, 0) + $5), true),
    updated_at = $6
WHERE collection = $1 AND id = $2`,
		string(coll), id, []string{field}, field, delta, s.clock.Now())
	if err != nil {
		return fmt.Errorf("increment %s.%s: %w", coll, field, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) findVariant(ctx context.Context, coll storage.Collection, key storage.Key) (string, error) {
	sql, args := variantQuery(coll, key)
	var id string
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("find %s by name: %w", coll, err)
	}
	return id, nil
}

func variantQuery(coll storage.Collection, key storage.Key) (string, []any) {
	args := []any{string(coll), key.Name}
	sql := `SELECT id FROM documents WHERE collection = $1
AND (doc->>'name1' = $2 OR doc->>'name2' = $2 OR doc->>'name3' = $2)`

	fields := make([]string, 0, len(key.Eq))
	for field := range key.Eq {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if v := key.Eq[field]; v != nil {
			args = append(args, v)
			sql += fmt.Sprintf(" AND doc->>'%s' = $%d", field, len(args))
		} else {
			sql += fmt.Sprintf(" AND doc->>'%s' IS NULL", field)
		}
	}
	return sql, args
}

func orEmpty(f storage.Fields) storage.Fields {
	if f == nil {
		return storage.Fields{}
	}
	return f
}
