package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/record"
	"github.com/fanworks/storygraph/internal/storage"
)

// Counters maintains the derived aggregates on Story documents that the
// external crawl scheduler compares against advertised totals. Callers
// invoke them only when the resolver reports an actual insert, so a
// re-visited child can never double count.
type Counters struct {
	store  storage.Store
	logger *zap.Logger
}

// NewCounters constructs a Counters.
func NewCounters(store storage.Store, logger *zap.Logger) *Counters {
	return &Counters{store: store, logger: logger}
}

// ChapterCreated bumps the owning story's chapter count by one.
func (c *Counters) ChapterCreated(ctx context.Context, storyID string) error {
	if storyID == "" {
		return fmt.Errorf("chapter counter: story id is required")
	}
	if err := c.store.IncrementCounter(ctx, storage.Stories, storyID, "currentChapterCount", 1); err != nil {
		return fmt.Errorf("increment chapter count: %w", err)
	}
	metrics.ObserveCounterIncrement("currentChapterCount")
	return nil
}

// ReviewCreated bumps the review count on the story that transitively
// owns the reviewable target: directly for a story target, via the
// chapter's story reference for a chapter target. A preliminary chapter
// whose story is still unknown has nothing to count against.
func (c *Counters) ReviewCreated(ctx context.Context, reviewableType, targetID string) error {
	storyID := targetID
	if reviewableType == record.ReviewableChapter {
		chapter, err := c.store.Get(ctx, storage.Chapters, targetID)
		if err != nil {
			return fmt.Errorf("load reviewed chapter: %w", err)
		}
		storyID = chapter.String("storyId")
		if storyID == "" {
			c.logger.Debug("reviewed chapter has no story yet", zap.String("chapter_id", targetID))
			return nil
		}
	}
	if err := c.store.IncrementCounter(ctx, storage.Stories, storyID, "currentReviewCount", 1); err != nil {
		return fmt.Errorf("increment review count: %w", err)
	}
	metrics.ObserveCounterIncrement("currentReviewCount")
	return nil
}
