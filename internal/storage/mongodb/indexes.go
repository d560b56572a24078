package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fanworks/storygraph/internal/storage"
)

var entityCollections = []storage.Collection{
	storage.Sources, storage.Genres, storage.Categories, storage.Topics,
	storage.Ratings, storage.Pairings, storage.Tags, storage.Fandoms,
	storage.Characters, storage.Users, storage.Stories, storage.Chapters,
	storage.Reviews,
}

var linkCollections = []storage.Collection{
	storage.StoryFandoms, storage.StoryCharacters, storage.StoryTopics,
	storage.StoryRatings, storage.StoryPairings, storage.StoryTags,
}

// Secondary indexes per collection, mirroring the archive's original
// index set.
var secondaryIndexes = map[storage.Collection][]bson.D{
	storage.Stories: {
		{{Key: "url", Value: 1}},
		{{Key: "authorId", Value: 1}},
		{{Key: "sourceId", Value: 1}},
		{{Key: "isPreliminary", Value: 1}},
		{{Key: "ageVerification", Value: 1}},
	},
	storage.Chapters: {
		{{Key: "url", Value: 1}},
		{{Key: "storyId", Value: 1}},
	},
	storage.Characters: {
		{{Key: "fandomId", Value: 1}},
	},
	storage.Fandoms: {
		{{Key: "genreId", Value: 1}},
	},
	storage.Reviews: {
		{{Key: "parentId", Value: 1}},
		{{Key: "userId", Value: 1}},
		{{Key: "reviewableId", Value: 1}, {Key: "reviewableType", Value: 1}},
	},
	storage.Users: {
		{{Key: "url", Value: 1}},
		{{Key: "sourceId", Value: 1}},
	},
}

// EnsureIndexes creates the unique natural-key index on every entity
// collection, the unique pair index on every link collection, and the
// secondary lookup indexes. Safe to run on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, coll := range entityCollections {
		models := []mongo.IndexModel{{
			Keys:    bson.D{{Key: "naturalKey", Value: 1}},
			Options: options.Index().SetName("uniq_natural_key").SetUnique(true),
		}}
		for _, keys := range secondaryIndexes[coll] {
			models = append(models, mongo.IndexModel{Keys: keys})
		}
		if _, err := s.db.Collection(string(coll)).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	for _, coll := range linkCollections {
		models := []mongo.IndexModel{{
			Keys:    bson.D{{Key: "parentId", Value: 1}, {Key: "childId", Value: 1}},
			Options: options.Index().SetName("uniq_pair").SetUnique(true),
		}}
		if _, err := s.db.Collection(string(coll)).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}
