// Package normalize turns raw scraped records into a deduplicated
// entity graph in the document store.
package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/storage"
)

// Resolver is the find-or-create operation every entity kind goes
// through. It is the only place new entity documents come from; the
// store's atomic upsert guarantees one document per natural key no
// matter how many workers resolve it concurrently.
type Resolver struct {
	store  storage.Store
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store storage.Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve finds the document matching key in coll and merges fields into
// it, or creates it when absent. Empty field values are pruned before
// the write, so a shallow observation never blanks out data a deeper one
// supplied. The preliminary flag only ever lowers the stored one.
func (r *Resolver) Resolve(ctx context.Context, coll storage.Collection, key storage.Key, fields storage.Fields, preliminary bool) (storage.Result, error) {
	set := storage.PruneFields(fields)

	insert := storage.Fields{}
	for k, v := range counterSeeds[coll] {
		insert[k] = v
	}
	for field, v := range key.Eq {
		if v == nil {
			continue
		}
		if _, taken := set[field]; taken {
			continue
		}
		insert[field] = v
	}
	if key.Name != "" {
		if _, taken := set["name1"]; !taken {
			insert["name1"] = key.Name
		}
	}

	res, err := r.store.Upsert(ctx, coll, key, storage.Upsert{
		Set:         set,
		SetOnInsert: insert,
		Preliminary: preliminary,
	})
	if err != nil {
		return storage.Result{}, fmt.Errorf("resolve %s: %w", coll, err)
	}
	if res.Created {
		metrics.ObserveEntityCreated(string(coll))
		r.logger.Debug("entity created",
			zap.String("collection", string(coll)),
			zap.String("id", res.ID),
			zap.Bool("preliminary", preliminary),
		)
	}
	return res, nil
}
