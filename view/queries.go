// Package view composes cache entries into render-ready page states.
package view

import (
	"context"
	"strconv"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// PlaceholderCount is the number of skeleton cards shown while loading.
const PlaceholderCount = 10

const (
	ResourceGames          = "games"
	ResourceDevelopers     = "developers"
	ResourceDeveloperGames = "developer-games"
	ResourceGenres         = "genres"
	ResourcePlatforms      = "platforms"
)

type GamesSource interface {
	ListGames(ctx context.Context, q rawg.GameQuery) (*rawg.Page[rawg.Game], error)
}

type DeveloperSource interface {
	GamesSource
	GetDeveloper(ctx context.Context, ref string) (*rawg.Developer, error)
}

type CatalogSource interface {
	ListGenres(ctx context.Context) (*rawg.Page[rawg.Genre], error)
	ListPlatforms(ctx context.Context) (*rawg.Page[rawg.Platform], error)
}

// Query pairs a key with the fetcher that fills it.
type Query struct {
	Key   cache.Key
	Fetch cache.Fetcher
}

func ListingKey(f filters.Filters) cache.Key {
	return cache.BuildKey(ResourceGames, f.Params()...)
}

func ListingQuery(src GamesSource, f filters.Filters) Query {
	q := f.Query()
	return Query{
		Key: ListingKey(f),
		Fetch: cache.Typed(func(ctx context.Context) (*rawg.Page[rawg.Game], error) {
			return src.ListGames(ctx, q)
		}),
	}
}

func DeveloperKey(ref string) cache.Key {
	return cache.BuildKey(ResourceDevelopers, cache.Value("id", ref))
}

func DeveloperQuery(src DeveloperSource, ref string) Query {
	return Query{
		Key: DeveloperKey(ref),
		Fetch: cache.Typed(func(ctx context.Context) (*rawg.Developer, error) {
			return src.GetDeveloper(ctx, ref)
		}),
	}
}

func DeveloperGamesKey(developerID int) cache.Key {
	return cache.BuildKey(ResourceDeveloperGames, cache.IntValue("developers", developerID))
}

func DeveloperGamesQuery(src GamesSource, developerID int) Query {
	q := rawg.GameQuery{Developer: strconv.Itoa(developerID)}
	return Query{
		Key: DeveloperGamesKey(developerID),
		Fetch: cache.Typed(func(ctx context.Context) (*rawg.Page[rawg.Game], error) {
			return src.ListGames(ctx, q)
		}),
	}
}

func GenresQuery(src CatalogSource) Query {
	return Query{
		Key:   cache.BuildKey(ResourceGenres),
		Fetch: cache.Typed(src.ListGenres),
	}
}

func PlatformsQuery(src CatalogSource) Query {
	return Query{
		Key:   cache.BuildKey(ResourcePlatforms),
		Fetch: cache.Typed(src.ListPlatforms),
	}
}
