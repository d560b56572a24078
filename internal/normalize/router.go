package normalize

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/record"
	"github.com/fanworks/storygraph/internal/storage"
)

// Router dispatches raw records to the resolution sequence for their
// kind and composes the pipeline components. It holds no state of its
// own; any number of workers may call Process concurrently.
type Router struct {
	store    storage.Store
	resolver *Resolver
	linker   *Linker
	counters *Counters
	reviews  *ReviewThread
	logger   *zap.Logger
}

// NewRouter wires the pipeline components onto one store handle.
func NewRouter(store storage.Store, logger *zap.Logger) *Router {
	resolver := NewResolver(store, logger)
	counters := NewCounters(store, logger)
	return &Router{
		store:    store,
		resolver: resolver,
		linker:   NewLinker(store, logger),
		counters: counters,
		reviews:  NewReviewThread(resolver, counters, logger),
		logger:   logger,
	}
}

// Process persists one raw record and returns the id of the entity it
// describes.
func (r *Router) Process(ctx context.Context, rec record.Record) (string, error) {
	id, err := r.process(ctx, rec)
	switch {
	case err == nil:
		metrics.ObserveRecord(string(rec.Kind()), "ok")
	case Rejected(err):
		metrics.ObserveRecord(string(rec.Kind()), "rejected")
	default:
		metrics.ObserveRecord(string(rec.Kind()), "error")
	}
	return id, err
}

func (r *Router) process(ctx context.Context, rec record.Record) (string, error) {
	switch rec := rec.(type) {
	case record.Story:
		return r.processStory(ctx, rec)
	case record.Chapter:
		return r.processChapter(ctx, rec)
	case record.User:
		return r.processUser(ctx, rec)
	case record.Review:
		return r.reviews.Resolve(ctx, rec)
	default:
		return "", fmt.Errorf("%w: unsupported record type %T", record.ErrUnknownKind, rec)
	}
}

func (r *Router) processStory(ctx context.Context, rec record.Story) (string, error) {
	if rec.URL == "" {
		return "", fmt.Errorf("%w: story without url", ErrMalformedRecord)
	}

	fields := storage.Fields{
		"url":               rec.URL,
		"title":             rec.Title,
		"summary":           rec.Summary,
		"status":            rec.Status,
		"likes":             rec.Likes,
		"follows":           rec.Follows,
		"hits":              rec.Hits,
		"publishedOn":       rec.PublishedOn,
		"reviewedOn":        rec.ReviewedOn,
		"totalChapterCount": rec.TotalChapters,
		"totalReviewCount":  rec.TotalReviews,
		"ageVerification":   rec.AgeVerification,
		"isRedirected":      rec.Redirected,
		"isLocked":          rec.Locked,
	}

	sourceID, err := r.findSource(ctx, rec.Source)
	if err != nil {
		return "", err
	}
	fields["sourceId"] = sourceID

	refs := storyRefs{}
	if refs.genreID, err = r.lookup(ctx, storage.Genres, rec.Genre); err != nil {
		return "", err
	}
	fields["genreId"] = refs.genreID
	if fields["categoryId"], err = r.lookup(ctx, storage.Categories, rec.Category); err != nil {
		return "", err
	}
	if fields["ratingId"], err = r.lookup(ctx, storage.Ratings, rec.Rating); err != nil {
		return "", err
	}
	if fields["pairingId"], err = r.lookup(ctx, storage.Pairings, rec.Pairing); err != nil {
		return "", err
	}

	// The story may be visited before its author's profile page; a stub
	// user carries the reference until then.
	if rec.AuthorURL != "" {
		author, err := r.resolver.Resolve(ctx, storage.Users,
			keyURL(rec.AuthorURL), storage.Fields{"url": rec.AuthorURL, "sourceId": sourceID}, true)
		if err != nil {
			return "", err
		}
		fields["authorId"] = author.ID
	}

	story, err := r.resolver.Resolve(ctx, storage.Stories, keyURL(rec.URL), fields, false)
	if err != nil {
		return "", err
	}

	for _, cls := range classifications {
		for _, value := range cls.values(rec) {
			if value == "" {
				continue
			}
			key := storage.Key{Name: value}
			if cls.scope != nil {
				field, id := cls.scope(refs)
				var scope any
				if id != "" {
					scope = id
				}
				key.Eq = map[string]any{field: scope}
			}
			child, err := r.resolver.Resolve(ctx, cls.target, key, nil, false)
			if err != nil {
				return "", err
			}
			if cls.target == storage.Fandoms && refs.fandomID == "" {
				refs.fandomID = child.ID
			}
			if err := r.linker.Link(ctx, cls.link, story.ID, child.ID); err != nil {
				return "", err
			}
		}
	}
	return story.ID, nil
}

func (r *Router) processChapter(ctx context.Context, rec record.Chapter) (string, error) {
	if rec.URL == "" {
		return "", fmt.Errorf("%w: chapter without url", ErrMalformedRecord)
	}

	fields := storage.Fields{
		"url":         rec.URL,
		"number":      rec.Number,
		"title":       rec.Title,
		"content":     rec.Content,
		"notes":       rec.Notes,
		"publishedOn": rec.PublishedOn,
		"reviewedOn":  rec.ReviewedOn,
	}

	storyID := ""
	if rec.StoryURL != "" {
		story, err := r.resolver.Resolve(ctx, storage.Stories,
			keyURL(rec.StoryURL), storage.Fields{"url": rec.StoryURL}, true)
		if err != nil {
			return "", err
		}
		storyID = story.ID
		fields["storyId"] = storyID
	}

	chapter, err := r.resolver.Resolve(ctx, storage.Chapters, keyURL(rec.URL), fields, false)
	if err != nil {
		return "", err
	}
	if chapter.Created && storyID != "" {
		if err := r.counters.ChapterCreated(ctx, storyID); err != nil {
			return "", err
		}
	}
	return chapter.ID, nil
}

func (r *Router) processUser(ctx context.Context, rec record.User) (string, error) {
	if rec.URL == "" {
		return "", fmt.Errorf("%w: user without url", ErrMalformedRecord)
	}

	sourceID, err := r.findSource(ctx, rec.Source)
	if err != nil {
		return "", err
	}
	fields := storage.Fields{
		"url":       rec.URL,
		"username":  rec.Username,
		"firstName": rec.FirstName,
		"lastName":  rec.LastName,
		"joinedOn":  rec.JoinedOn,
		"locatedAt": rec.LocatedAt,
		"country":   rec.Country,
		"gender":    rec.Gender,
		"age":       rec.Age,
		"bio":       rec.Bio,
		"sourceId":  sourceID,
	}
	user, err := r.resolver.Resolve(ctx, storage.Users, keyURL(rec.URL), fields, false)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// lookup finds or creates a free-text classification entity by name
// variant and returns its id; "" when no value was scraped.
func (r *Router) lookup(ctx context.Context, coll storage.Collection, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	res, err := r.resolver.Resolve(ctx, coll, storage.Key{Name: value}, nil, false)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// findSource looks a source up by name. Sources are seeded statically
// and never auto-created; an unknown name is logged and dropped.
func (r *Router) findSource(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	id, err := r.store.FindID(ctx, storage.Sources, storage.Key{Eq: map[string]any{"name": name}})
	if errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("unknown source", zap.String("name", name))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find source: %w", err)
	}
	return id, nil
}
