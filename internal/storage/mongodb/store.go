// Package mongodb implements the document store on MongoDB, the layout
// the original fan-fiction archive used: one collection per entity kind
// and FindOneAndUpdate upserts.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fanworks/storygraph/internal/storage"
)

// Config locates the Mongo deployment.
type Config struct {
	URI      string
	Database string
}

// Store runs the pipeline's store contract against a mongo.Database.
// Entity ids are UUID strings (stored as _id) so ids stay comparable
// across backends.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	clock  storage.Clock
}

// New connects and pings the deployment.
func New(ctx context.Context, cfg Config, clock storage.Clock) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("storage.mongodb.uri and storage.mongodb.database are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(cfg.Database), clock: clock}, nil
}

// Close disconnects the client.
func (s *Store) Close() {
	if s == nil || s.client == nil {
		return
	}
	_ = s.client.Disconnect(context.Background())
}

// Upsert implements storage.Store. The whole find-or-create runs as one
// FindOneAndUpdate with upsert, so the find-then-insert race of the old
// pipeline cannot happen; the unique naturalKey index covers the
// remaining concurrent-insert window.
func (s *Store) Upsert(ctx context.Context, coll storage.Collection, key storage.Key, up storage.Upsert) (storage.Result, error) {
	now := s.clock.Now()
	newID := uuid.NewString()

	set := bson.M{"updatedAt": now}
	for k, v := range up.Set {
		set[k] = v
	}
	insert := bson.M{"_id": newID, "naturalKey": key.Canonical(), "createdAt": now}
	for k, v := range up.SetOnInsert {
		if _, taken := set[k]; !taken {
			insert[k] = v
		}
	}
	// Monotonic preliminary flag: a false request always lowers, a true
	// request only applies to a brand-new document.
	if up.Preliminary {
		insert["isPreliminary"] = true
	} else {
		set["isPreliminary"] = false
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)
	var before bson.M
	err := s.db.Collection(string(coll)).
		FindOneAndUpdate(ctx, filterFor(key), bson.M{"$set": set, "$setOnInsert": insert}, opts).
		Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.Result{ID: newID, Created: true}, nil
	}
	if err != nil {
		return storage.Result{}, fmt.Errorf("upsert %s document: %w", coll, err)
	}
	id, _ := before["_id"].(string)
	return storage.Result{ID: id}, nil
}

// FindID implements storage.Store.
func (s *Store) FindID(ctx context.Context, coll storage.Collection, key storage.Key) (string, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	var doc bson.M
	err := s.db.Collection(string(coll)).FindOne(ctx, filterFor(key), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find %s document: %w", coll, err)
	}
	id, _ := doc["_id"].(string)
	return id, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, coll storage.Collection, id string) (storage.Document, error) {
	var raw bson.M
	err := s.db.Collection(string(coll)).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s document: %w", coll, err)
	}
	doc := make(storage.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			doc["id"] = v
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			v = dt.Time()
		}
		doc[k] = v
	}
	return doc, nil
}

// EnsureLink implements storage.Store.
func (s *Store) EnsureLink(ctx context.Context, coll storage.Collection, parentID, childID string) (bool, error) {
	res, err := s.db.Collection(string(coll)).UpdateOne(ctx,
		bson.M{"parentId": parentID, "childId": childID},
		bson.M{"$setOnInsert": bson.M{"_id": uuid.NewString(), "createdAt": s.clock.Now()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("insert %s link: %w", coll, err)
	}
	return res.UpsertedCount == 1, nil
}

// IncrementCounter implements storage.Store.
func (s *Store) IncrementCounter(ctx context.Context, coll storage.Collection, id, field string, delta int64) error {
	res, err := s.db.Collection(string(coll)).UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updatedAt": s.clock.Now()},
	})
	if err != nil {
		return fmt.Errorf("increment %s.%s: %w", coll, field, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func filterFor(key storage.Key) bson.M {
	filter := bson.M{}
	for field, v := range key.Eq {
		filter[field] = v
	}
	if key.Name != "" {
		filter["$or"] = bson.A{
			bson.M{"name1": key.Name},
			bson.M{"name2": key.Name},
			bson.M{"name3": key.Name},
		}
	}
	return filter
}
