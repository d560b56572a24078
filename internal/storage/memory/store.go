// Package memory provides an in-process document store for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fanworks/storygraph/internal/storage"
)

// Store keeps all documents in mutex-guarded maps. A single lock makes
// every operation atomic, matching the contract the real backends meet
// with single-statement upserts.
type Store struct {
	mu    sync.Mutex
	clock storage.Clock
	docs  map[storage.Collection]map[string]storage.Document
	links map[storage.Collection]map[string]struct{}
}

// New constructs an empty Store.
func New(clock storage.Clock) *Store {
	return &Store{
		clock: clock,
		docs:  make(map[storage.Collection]map[string]storage.Document),
		links: make(map[storage.Collection]map[string]struct{}),
	}
}

// Upsert implements storage.Store.
func (s *Store) Upsert(_ context.Context, coll storage.Collection, key storage.Key, up storage.Upsert) (storage.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if id, doc, ok := s.findLocked(coll, key); ok {
		merged := storage.Merge(doc, up.Set)
		merged["isPreliminary"] = doc.Bool("isPreliminary") && up.Preliminary
		merged["updatedAt"] = now
		s.docs[coll][id] = merged
		return storage.Result{ID: id}, nil
	}

	id := uuid.NewString()
	doc := make(storage.Document, len(up.Set)+len(up.SetOnInsert)+2)
	for k, v := range up.SetOnInsert {
		doc[k] = v
	}
	for k, v := range storage.PruneFields(up.Set) {
		doc[k] = v
	}
	doc["isPreliminary"] = up.Preliminary
	doc["createdAt"] = now
	doc["updatedAt"] = now
	if s.docs[coll] == nil {
		s.docs[coll] = make(map[string]storage.Document)
	}
	s.docs[coll][id] = doc
	return storage.Result{ID: id, Created: true}, nil
}

// FindID implements storage.Store.
func (s *Store) FindID(_ context.Context, coll storage.Collection, key storage.Key) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, _, ok := s.findLocked(coll, key); ok {
		return id, nil
	}
	return "", storage.ErrNotFound
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, coll storage.Collection, id string) (storage.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[coll][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make(storage.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out, nil
}

// EnsureLink implements storage.Store.
func (s *Store) EnsureLink(_ context.Context, coll storage.Collection, parentID, childID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := parentID + "|" + childID
	if _, exists := s.links[coll][pair]; exists {
		return false, nil
	}
	if s.links[coll] == nil {
		s.links[coll] = make(map[string]struct{})
	}
	s.links[coll][pair] = struct{}{}
	return true, nil
}

// IncrementCounter implements storage.Store.
func (s *Store) IncrementCounter(_ context.Context, coll storage.Collection, id, field string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[coll][id]
	if !ok {
		return storage.ErrNotFound
	}
	doc[field] = doc.Int64(field) + delta
	doc["updatedAt"] = s.clock.Now()
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() {}

// Len reports how many documents a collection holds. Test helper.
func (s *Store) Len(coll storage.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[coll])
}

// LinkCount reports how many link documents a link collection holds.
// Test helper.
func (s *Store) LinkCount(coll storage.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links[coll])
}

func (s *Store) findLocked(coll storage.Collection, key storage.Key) (string, storage.Document, bool) {
	for id, doc := range s.docs[coll] {
		if key.Matches(doc) {
			return id, doc, true
		}
	}
	return "", nil, false
}
