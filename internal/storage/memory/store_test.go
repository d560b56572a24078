package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fanworks/storygraph/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestStore() *Store {
	return New(fixedClock{t: time.Unix(1700000000, 0).UTC()})
}

func TestUpsertCreatesThenMatches(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	key := storage.Key{Eq: map[string]any{"url": "https://example.org/s/1"}}

	first, err := store.Upsert(ctx, storage.Stories, key, storage.Upsert{
		Set:         storage.Fields{"url": "https://example.org/s/1", "title": "Die Reise"},
		SetOnInsert: storage.Fields{"currentChapterCount": int64(0)},
	})
	require.NoError(t, err)
	require.True(t, first.Created)
	require.NotEmpty(t, first.ID)

	second, err := store.Upsert(ctx, storage.Stories, key, storage.Upsert{
		Set: storage.Fields{"summary": "from the detail page"},
	})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, store.Len(storage.Stories))

	doc, err := store.Get(ctx, storage.Stories, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Die Reise", doc.String("title"))
	require.Equal(t, "from the detail page", doc.String("summary"))
	require.Equal(t, int64(0), doc.Int64("currentChapterCount"))
}

func TestUpsertNeverRaisesPreliminary(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	key := storage.Key{Eq: map[string]any{"url": "https://example.org/u/1"}}

	stub, err := store.Upsert(ctx, storage.Users, key, storage.Upsert{
		Set:         storage.Fields{"url": "https://example.org/u/1"},
		Preliminary: true,
	})
	require.NoError(t, err)

	doc, err := store.Get(ctx, storage.Users, stub.ID)
	require.NoError(t, err)
	require.True(t, doc.Bool("isPreliminary"))

	// A direct observation lowers the flag.
	_, err = store.Upsert(ctx, storage.Users, key, storage.Upsert{
		Set: storage.Fields{"username": "anna"},
	})
	require.NoError(t, err)
	doc, err = store.Get(ctx, storage.Users, stub.ID)
	require.NoError(t, err)
	require.False(t, doc.Bool("isPreliminary"))

	// A later stub reference must not raise it again.
	_, err = store.Upsert(ctx, storage.Users, key, storage.Upsert{Preliminary: true})
	require.NoError(t, err)
	doc, err = store.Get(ctx, storage.Users, stub.ID)
	require.NoError(t, err)
	require.False(t, doc.Bool("isPreliminary"))
}

func TestUpsertMatchesNameVariant(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	seeded, err := store.Upsert(ctx, storage.Genres, storage.Key{Name: "Bücher"}, storage.Upsert{
		Set: storage.Fields{"name1": "Bücher", "name2": "Books"},
	})
	require.NoError(t, err)
	require.True(t, seeded.Created)

	byAlias, err := store.Upsert(ctx, storage.Genres, storage.Key{Name: "Books"}, storage.Upsert{})
	require.NoError(t, err)
	require.False(t, byAlias.Created)
	require.Equal(t, seeded.ID, byAlias.ID)
	require.Equal(t, 1, store.Len(storage.Genres))
}

func TestFindIDAndGetMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	_, err := store.FindID(ctx, storage.Sources, storage.Key{Eq: map[string]any{"name": "nope"}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, storage.Sources, "missing-id")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEnsureLinkIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	created, err := store.EnsureLink(ctx, storage.StoryFandoms, "s-1", "f-1")
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.EnsureLink(ctx, storage.StoryFandoms, "s-1", "f-1")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, store.LinkCount(storage.StoryFandoms))

	// The reverse pair is a different link.
	created, err = store.EnsureLink(ctx, storage.StoryFandoms, "f-1", "s-1")
	require.NoError(t, err)
	require.True(t, created)
}

func TestIncrementCounter(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	res, err := store.Upsert(ctx, storage.Stories, storage.Key{Eq: map[string]any{"url": "u"}}, storage.Upsert{
		SetOnInsert: storage.Fields{"currentChapterCount": int64(0)},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementCounter(ctx, storage.Stories, res.ID, "currentChapterCount", 1))
	}

	doc, err := store.Get(ctx, storage.Stories, res.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), doc.Int64("currentChapterCount"))

	err = store.IncrementCounter(ctx, storage.Stories, "missing", "currentChapterCount", 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
