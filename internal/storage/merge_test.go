package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMergeKeepsKnownValuesOverBlanks(t *testing.T) {
	t.Parallel()

	existing := Document{
		"title":   "Die Reise",
		"summary": "A long summary from the detail page.",
		"likes":   int64(42),
	}
	incoming := Fields{
		"title":   "Die Reise (updated)",
		"summary": "",
		"likes":   int64(0),
		"status":  "complete",
	}

	merged := Merge(existing, incoming)

	require.Equal(t, "Die Reise (updated)", merged.String("title"))
	require.Equal(t, "A long summary from the detail page.", merged.String("summary"))
	require.Equal(t, int64(42), merged.Int64("likes"))
	require.Equal(t, "complete", merged.String("status"))
}

func TestMergeLeavesUntouchedFieldsAlone(t *testing.T) {
	t.Parallel()

	existing := Document{"summary": "kept", "hits": int64(7)}
	merged := Merge(existing, Fields{"title": "new"})

	require.Equal(t, "kept", merged.String("summary"))
	require.Equal(t, int64(7), merged.Int64("hits"))
	require.Equal(t, "new", merged.String("title"))
}

func TestMergeFillsEmptyExisting(t *testing.T) {
	t.Parallel()

	existing := Document{"summary": ""}
	merged := Merge(existing, Fields{"summary": "now known"})
	require.Equal(t, "now known", merged.String("summary"))
}

func TestPruneFieldsDropsZeroValues(t *testing.T) {
	t.Parallel()

	pruned := PruneFields(Fields{
		"title":       "set",
		"summary":     "",
		"likes":       int64(0),
		"hits":        int64(3),
		"locked":      false,
		"verified":    true,
		"publishedOn": time.Time{},
		"fandoms":     []string{},
		"topics":      []string{"Drama"},
		"authorId":    nil,
	})

	require.Equal(t, Fields{
		"title":    "set",
		"hits":     int64(3),
		"verified": true,
		"topics":   []string{"Drama"},
	}, pruned)
}

func TestKeyCanonicalIsStable(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	a := Key{Eq: map[string]any{"userId": "u-1", "reviewedAt": at, "reviewableId": "s-1"}}
	b := Key{Eq: map[string]any{"reviewableId": "s-1", "reviewedAt": at.In(time.FixedZone("x", 3600)), "userId": "u-1"}}

	require.Equal(t, a.Canonical(), b.Canonical())
}

func TestKeyCanonicalDistinguishesNilFromValue(t *testing.T) {
	t.Parallel()

	anon := Key{Eq: map[string]any{"userId": nil}}
	named := Key{Eq: map[string]any{"userId": "u-1"}}
	require.NotEqual(t, anon.Canonical(), named.Canonical())
}

func TestKeyMatches(t *testing.T) {
	t.Parallel()

	doc := Document{"url": "https://example.org/s/1", "name1": "Drama"}

	require.True(t, Key{Eq: map[string]any{"url": "https://example.org/s/1"}}.Matches(doc))
	require.False(t, Key{Eq: map[string]any{"url": "https://example.org/s/2"}}.Matches(doc))

	// nil requires the field to be absent.
	require.True(t, Key{Eq: map[string]any{"userId": nil}}.Matches(doc))
	require.False(t, Key{Eq: map[string]any{"url": nil}}.Matches(doc))
}

func TestKeyMatchesNameVariants(t *testing.T) {
	t.Parallel()

	doc := Document{"name1": "Bücher", "name2": "Books"}

	require.True(t, Key{Name: "Bücher"}.Matches(doc))
	require.True(t, Key{Name: "Books"}.Matches(doc))
	require.False(t, Key{Name: "Libros"}.Matches(doc))

	scoped := Key{Name: "Books", Eq: map[string]any{"genreId": "g-1"}}
	require.False(t, scoped.Matches(doc))
	doc["genreId"] = "g-1"
	require.True(t, scoped.Matches(doc))
}
