package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/storage"
)

// Linker maintains many-to-many association documents. Re-linking an
// existing pair is a no-op, so a re-crawled story never duplicates its
// fandom or character links.
type Linker struct {
	store  storage.Store
	logger *zap.Logger
}

// NewLinker constructs a Linker.
func NewLinker(store storage.Store, logger *zap.Logger) *Linker {
	return &Linker{store: store, logger: logger}
}

// Link ensures one link document for (parentID, childID) exists. Both
// endpoints must already be resolved ids.
func (l *Linker) Link(ctx context.Context, coll storage.Collection, parentID, childID string) error {
	if parentID == "" || childID == "" {
		return fmt.Errorf("link %s: both endpoints must be resolved", coll)
	}
	created, err := l.store.EnsureLink(ctx, coll, parentID, childID)
	if err != nil {
		return fmt.Errorf("link %s: %w", coll, err)
	}
	if created {
		metrics.ObserveLinkCreated(string(coll))
		l.logger.Debug("link created",
			zap.String("collection", string(coll)),
			zap.String("parent_id", parentID),
			zap.String("child_id", childID),
		)
	}
	return nil
}
