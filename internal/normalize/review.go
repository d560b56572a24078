package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/record"
	"github.com/fanworks/storygraph/internal/storage"
)

// ReviewThread resolves a review record: its reply chain parent-first,
// its author, its reviewable target, and finally the review itself.
// Every referenced entity not yet crawled directly is created as a
// preliminary stub.
type ReviewThread struct {
	resolver *Resolver
	counters *Counters
	logger   *zap.Logger
}

// NewReviewThread constructs a ReviewThread.
func NewReviewThread(resolver *Resolver, counters *Counters, logger *zap.Logger) *ReviewThread {
	return &ReviewThread{resolver: resolver, counters: counters, logger: logger}
}

// Resolve persists the review and returns its id. The recursion over
// Parent terminates because each parent carries the fields of an
// already-observed review; the algorithm does not assume the site's
// one-reply depth limit.
func (t *ReviewThread) Resolve(ctx context.Context, rec record.Review) (string, error) {
	if rec.ReviewedAt.IsZero() {
		return "", fmt.Errorf("%w: review without timestamp", ErrMalformedRecord)
	}

	parentID := ""
	if rec.Parent != nil {
		id, err := t.Resolve(ctx, *rec.Parent)
		if err != nil {
			return "", fmt.Errorf("resolve parent review: %w", err)
		}
		parentID = id
	}

	// An empty author URL is a valid anonymous review, not an error.
	authorID := ""
	if rec.UserURL != "" {
		author, err := t.resolver.Resolve(ctx, storage.Users,
			keyURL(rec.UserURL), storage.Fields{"url": rec.UserURL}, true)
		if err != nil {
			return "", err
		}
		authorID = author.ID
	}

	targetID, err := t.resolveTarget(ctx, rec)
	if err != nil {
		return "", err
	}

	var userKey any
	if authorID != "" {
		userKey = authorID
	}
	key := storage.Key{Eq: map[string]any{
		"userId":         userKey,
		"reviewedAt":     rec.ReviewedAt.UTC(),
		"reviewableType": rec.ReviewableType,
		"reviewableId":   targetID,
	}}
	fields := storage.Fields{
		"url":      rec.URL,
		"content":  rec.Content,
		"parentId": parentID,
	}
	res, err := t.resolver.Resolve(ctx, storage.Reviews, key, fields, false)
	if err != nil {
		return "", err
	}

	// Only a brand-new top-level review counts toward the target's
	// story; replies are not reviews of the target.
	if res.Created && parentID == "" {
		if err := t.counters.ReviewCreated(ctx, rec.ReviewableType, targetID); err != nil {
			return "", err
		}
	}
	return res.ID, nil
}

func (t *ReviewThread) resolveTarget(ctx context.Context, rec record.Review) (string, error) {
	switch rec.ReviewableType {
	case record.ReviewableChapter:
		if rec.ReviewableURL == "" {
			return "", fmt.Errorf("%w: chapter review without chapter url", ErrMalformedRecord)
		}
		fields := storage.Fields{
			"url":    rec.ReviewableURL,
			"number": rec.ChapterNumber,
		}
		storyID := ""
		if rec.StoryURL != "" {
			story, err := t.resolver.Resolve(ctx, storage.Stories,
				keyURL(rec.StoryURL), storage.Fields{"url": rec.StoryURL}, true)
			if err != nil {
				return "", err
			}
			storyID = story.ID
			fields["storyId"] = storyID
		}
		chapter, err := t.resolver.Resolve(ctx, storage.Chapters, keyURL(rec.ReviewableURL), fields, true)
		if err != nil {
			return "", err
		}
		// A chapter stub minted here is still this story's chapter; the
		// later direct crawl resolves to it without creating, so this is
		// the only chance to count it.
		if chapter.Created && storyID != "" {
			if err := t.counters.ChapterCreated(ctx, storyID); err != nil {
				return "", err
			}
		}
		return chapter.ID, nil
	case record.ReviewableStory:
		if rec.ReviewableURL == "" {
			return "", fmt.Errorf("%w: story review without story url", ErrMalformedRecord)
		}
		story, err := t.resolver.Resolve(ctx, storage.Stories,
			keyURL(rec.ReviewableURL), storage.Fields{"url": rec.ReviewableURL}, true)
		if err != nil {
			return "", err
		}
		return story.ID, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReviewable, rec.ReviewableType)
	}
}
