// Package storage defines the document-store contract shared by the
// normalization pipeline and its backends.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Collection names one logical document collection. Every backend maps
// these onto its own storage layout (Mongo collections, Postgres rows).
type Collection string

// Entity collections.
const (
	Sources    Collection = "sources"
	Genres     Collection = "genres"
	Categories Collection = "categories"
	Topics     Collection = "topics"
	Ratings    Collection = "ratings"
	Pairings   Collection = "pairings"
	Tags       Collection = "tags"
	Fandoms    Collection = "fandoms"
	Characters Collection = "characters"
	Users      Collection = "users"
	Stories    Collection = "stories"
	Chapters   Collection = "chapters"
	Reviews    Collection = "reviews"
)

// Link collections (many-to-many association documents).
const (
	StoryFandoms    Collection = "story_fandoms"
	StoryCharacters Collection = "story_characters"
	StoryTopics     Collection = "story_topics"
	StoryRatings    Collection = "story_ratings"
	StoryPairings   Collection = "story_pairings"
	StoryTags       Collection = "story_tags"
)

// Document is a stored entity as a flat field mapping. The id is kept
// outside the document by backends that store it separately; Get
// implementations fold it back in under "id".
type Document map[string]any

// Fields is a partial document used for writes.
type Fields map[string]any

// String returns the named field as a string, or "" when absent or of
// another type.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int64 returns the named field as an int64, tolerating the numeric
// types JSON and BSON decoding produce.
func (d Document) Int64(field string) int64 {
	return asInt64(d[field])
}

// Bool returns the named field as a bool, false when absent.
func (d Document) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Key identifies a document by its natural key: a set of exact-match
// fields, optionally combined with a name-variant match (an entity whose
// name1, name2 or name3 equals Name). A nil value in Eq matches a
// document where the field is absent.
type Key struct {
	Eq   map[string]any
	Name string
}

// Canonical renders the key as a stable string suitable for a unique
// index. Times are rendered as Unix seconds so equality does not depend
// on time zone or monotonic clock data.
func (k Key) Canonical() string {
	parts := make([]string, 0, len(k.Eq)+1)
	for field, v := range k.Eq {
		parts = append(parts, field+"="+canonicalValue(v))
	}
	sort.Strings(parts)
	if k.Name != "" {
		parts = append(parts, "name="+k.Name)
	}
	return strings.Join(parts, "&")
}

// Matches reports whether the document satisfies the key. Used by
// backends that filter in process rather than in the store.
func (k Key) Matches(doc Document) bool {
	for field, want := range k.Eq {
		got, ok := doc[field]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || canonicalValue(got) != canonicalValue(want) {
			return false
		}
	}
	if k.Name != "" {
		if doc.String("name1") != k.Name && doc.String("name2") != k.Name && doc.String("name3") != k.Name {
			return false
		}
	}
	return true
}

func canonicalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case time.Time:
		return fmt.Sprintf("%d", t.Unix())
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Upsert describes one atomic find-and-modify operation. Set fields are
// merged into a matched document (callers prune empty values first, see
// PruneFields); SetOnInsert fields are written only when no document
// matches and a new one is created. The two field sets must be disjoint.
// Preliminary is applied monotonically: a stored non-preliminary
// document never becomes preliminary again.
type Upsert struct {
	Set         Fields
	SetOnInsert Fields
	Preliminary bool
}

// Result reports the outcome of an Upsert.
type Result struct {
	ID      string
	Created bool
}

// Clock supplies timestamps so tests can pin them.
type Clock interface {
	Now() time.Time
}
