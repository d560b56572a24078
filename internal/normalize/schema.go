package normalize

import (
	"github.com/fanworks/storygraph/internal/record"
	"github.com/fanworks/storygraph/internal/storage"
)

// counterSeeds lists the derived counters written as zero when an entity
// of the collection is first created.
var counterSeeds = map[storage.Collection]storage.Fields{
	storage.Stories: {
		"currentChapterCount": int64(0),
		"currentReviewCount":  int64(0),
	},
}

// storyRefs carries the ids resolved while processing a story record
// that scope later lookups.
type storyRefs struct {
	genreID  string
	fandomID string
}

// classification maps one multi-valued story field onto its target
// collection, its link collection, and the field that scopes the lookup.
// A character name is only unique within its fandom (or within "no
// fandom"), so the scope field participates in the natural key.
type classification struct {
	target storage.Collection
	link   storage.Collection
	values func(rec record.Story) []string
	scope  func(refs storyRefs) (field string, id string)
}

// classifications is consumed in order by the router; fandoms come first
// so the primary fandom id is available to scope character lookups.
var classifications = []classification{
	{
		target: storage.Fandoms,
		link:   storage.StoryFandoms,
		values: func(rec record.Story) []string { return rec.Fandoms },
		scope:  func(refs storyRefs) (string, string) { return "genreId", refs.genreID },
	},
	{
		target: storage.Characters,
		link:   storage.StoryCharacters,
		values: func(rec record.Story) []string { return rec.Characters },
		scope:  func(refs storyRefs) (string, string) { return "fandomId", refs.fandomID },
	},
	{
		target: storage.Topics,
		link:   storage.StoryTopics,
		values: func(rec record.Story) []string { return rec.Topics },
	},
	{
		target: storage.Tags,
		link:   storage.StoryTags,
		values: func(rec record.Story) []string { return rec.Tags },
	},
	{
		target: storage.Ratings,
		link:   storage.StoryRatings,
		values: func(rec record.Story) []string { return rec.Ratings },
	},
	{
		target: storage.Pairings,
		link:   storage.StoryPairings,
		values: func(rec record.Story) []string { return rec.Pairings },
	},
}

func keyURL(url string) storage.Key {
	return storage.Key{Eq: map[string]any{"url": url}}
}
