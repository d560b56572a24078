package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order and must stay idempotent; serve runs
// them on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		collection TEXT NOT NULL,
		natural_key TEXT NOT NULL,
		doc JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_preliminary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS documents_collection_natural_key
		ON documents (collection, natural_key)`,
	`CREATE INDEX IF NOT EXISTS documents_url
		ON documents (collection, (doc->>'url'))`,
	`CREATE INDEX IF NOT EXISTS documents_author
		ON documents (collection, (doc->>'authorId'))`,
	`CREATE INDEX IF NOT EXISTS documents_story
		ON documents (collection, (doc->>'storyId'))`,
	`CREATE INDEX IF NOT EXISTS documents_fandom
		ON documents (collection, (doc->>'fandomId'))`,
	`CREATE INDEX IF NOT EXISTS documents_reviewable
		ON documents (collection, (doc->>'reviewableId'), (doc->>'reviewableType'))`,
	`CREATE INDEX IF NOT EXISTS documents_parent_review
		ON documents (collection, (doc->>'parentId'))`,
	`CREATE TABLE IF NOT EXISTS links (
		collection TEXT NOT NULL,
		parent_id UUID NOT NULL,
		child_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, parent_id, child_id)
	)`,
	`CREATE INDEX IF NOT EXISTS links_child ON links (collection, child_id)`,
}

// Migrate creates the schema when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
