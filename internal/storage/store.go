package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FindID and Get when no document matches.
var ErrNotFound = errors.New("document not found")

// Store is the document-store contract the pipeline runs against.
//
// Upsert is the only operation that creates entity documents, and it must
// be atomic per natural key: concurrent calls for the same key yield one
// document, never two. EnsureLink and IncrementCounter must likewise be
// single round trips, so at-least-once redelivery of a record is safe.
type Store interface {
	// Upsert finds one document by key and merges up.Set into it, or
	// inserts a new document from up.Set plus up.SetOnInsert when none
	// matches. It reports the document id and whether it was created.
	Upsert(ctx context.Context, coll Collection, key Key, up Upsert) (Result, error)

	// FindID looks a document up without creating it.
	FindID(ctx context.Context, coll Collection, key Key) (string, error)

	// Get fetches a document by id, including its "id" and
	// "isPreliminary" fields.
	Get(ctx context.Context, coll Collection, id string) (Document, error)

	// EnsureLink inserts a link document for (parentID, childID) unless
	// one already exists, and reports whether it inserted.
	EnsureLink(ctx context.Context, coll Collection, parentID, childID string) (bool, error)

	// IncrementCounter adds delta to a numeric document field as a
	// relative update, never a read-modify-write.
	IncrementCounter(ctx context.Context, coll Collection, id, field string, delta int64) error

	// Close releases backend resources.
	Close()
}
