// Package seed loads the static reference entities the pipeline never
// auto-creates (sources) or benefits from knowing up front (the
// classification vocabularies of the supported archives).
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/normalize"
	"github.com/fanworks/storygraph/internal/storage"
)

type source struct {
	Name string
	URL  string
}

type variants struct {
	Name1 string
	Name2 string
	Name3 string
}

var sources = []source{
	{Name: "FanFiktion", URL: "https://www.fanfiktion.de/"},
	{Name: "ArchiveOfOurOwn", URL: "https://archiveofourown.org/"},
}

var genres = []variants{
	{Name1: "Anime & Manga"},
	{Name1: "Bücher", Name2: "Books"},
	{Name1: "Cartoons & Comics"},
	{Name1: "Computerspiele"},
	{Name1: "Crossover"},
	{Name1: "Kino- & TV-Filme"},
	{Name1: "Musicals"},
	{Name1: "Prominente"},
	{Name1: "Serien & Podcasts"},
	{Name1: "Tabletop- & Rollenspiele"},
}

var categories = []variants{
	{Name1: "Aufzählung/Liste"},
	{Name1: "Chat/Interview/Quiz"},
	{Name1: "Crossover"},
	{Name1: "Drabble"},
	{Name1: "Gedicht"},
	{Name1: "Geschichte"},
	{Name1: "Kurzgeschichte"},
	{Name1: "Leseprobe"},
	{Name1: "Liedtext"},
	{Name1: "Mitmachgeschichte"},
	{Name1: "Oneshot"},
	{Name1: "Sammlung"},
	{Name1: "Songfic"},
}

var topics = []variants{
	{Name1: "Abenteuer", Name2: "Adventure"},
	{Name1: "Action"},
	{Name1: "Allgemein"},
	{Name1: "Angst"},
	{Name1: "Drama"},
	{Name1: "Erotik"},
	{Name1: "Familie"},
	{Name1: "Fantasy"},
	{Name1: "Freundschaft"},
	{Name1: "Historisch"},
	{Name1: "Horror"},
	{Name1: "Humor"},
	{Name1: "Krimi"},
	{Name1: "Liebesgeschichte"},
	{Name1: "Mistery"},
	{Name1: "Parodie"},
	{Name1: "Poesie"},
	{Name1: "Romance"},
	{Name1: "Schmerz/Trost"},
	{Name1: "Sci-Fi"},
	{Name1: "Suspense"},
	{Name1: "Thriller"},
	{Name1: "Tragödie"},
	{Name1: "Übernatürlich"},
}

var ratings = []variants{
	{Name1: "P6"},
	{Name1: "P12"},
	{Name1: "P16"},
	{Name1: "P18"},
	{Name1: "P18-AVL"},
}

var pairings = []variants{
	{Name1: "Gen"},
	{Name1: "Het"},
	{Name1: "MaleSlash"},
	{Name1: "FemSlash"},
	{Name1: "Mix"},
	{Name1: "Div"},
}

// Apply upserts the seed data. Running it repeatedly is a no-op beyond
// updatedAt, so serve can apply it on every start.
func Apply(ctx context.Context, store storage.Store, logger *zap.Logger) error {
	resolver := normalize.NewResolver(store, logger)

	for _, s := range sources {
		key := storage.Key{Eq: map[string]any{"name": s.Name}}
		if _, err := resolver.Resolve(ctx, storage.Sources, key, storage.Fields{"name": s.Name, "url": s.URL}, false); err != nil {
			return fmt.Errorf("seed source %q: %w", s.Name, err)
		}
	}

	vocabularies := []struct {
		coll    storage.Collection
		entries []variants
	}{
		{storage.Genres, genres},
		{storage.Categories, categories},
		{storage.Topics, topics},
		{storage.Ratings, ratings},
		{storage.Pairings, pairings},
	}
	for _, v := range vocabularies {
		for _, entry := range v.entries {
			key := storage.Key{Name: entry.Name1}
			fields := storage.Fields{
				"name1": entry.Name1,
				"name2": entry.Name2,
				"name3": entry.Name3,
			}
			if _, err := resolver.Resolve(ctx, v.coll, key, fields, false); err != nil {
				return fmt.Errorf("seed %s %q: %w", v.coll, entry.Name1, err)
			}
		}
	}

	logger.Info("seed data applied",
		zap.Int("sources", len(sources)),
		zap.Int("genres", len(genres)),
		zap.Int("categories", len(categories)),
		zap.Int("topics", len(topics)),
		zap.Int("ratings", len(ratings)),
		zap.Int("pairings", len(pairings)),
	)
	return nil
}
