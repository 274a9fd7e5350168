package view

import (
	"context"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// Genres resolves the genre list through the engine.
func Genres(ctx context.Context, engine *cache.Engine, src CatalogSource) (cache.Result[*rawg.Page[rawg.Genre]], error) {
	q := GenresQuery(src)
	st, err := engine.Await(ctx, q.Key, q.Fetch)
	return cache.As[*rawg.Page[rawg.Genre]](st), err
}

// Platforms resolves the parent platform list through the engine.
func Platforms(ctx context.Context, engine *cache.Engine, src CatalogSource) (cache.Result[*rawg.Page[rawg.Platform]], error) {
	q := PlatformsQuery(src)
	st, err := engine.Await(ctx, q.Key, q.Fetch)
	return cache.As[*rawg.Page[rawg.Platform]](st), err
}

// FindGenre looks id up in a resolved genre list.
func FindGenre(page *rawg.Page[rawg.Genre], id int) (filters.Selection, bool) {
	if page == nil {
		return filters.Selection{}, false
	}
	for _, g := range page.Results {
		if g.ID == id {
			return filters.Selection{ID: g.ID, Name: g.Name}, true
		}
	}
	return filters.Selection{}, false
}

// FindPlatform looks id up in a resolved platform list.
func FindPlatform(page *rawg.Page[rawg.Platform], id int) (filters.Selection, bool) {
	if page == nil {
		return filters.Selection{}, false
	}
	for _, p := range page.Results {
		if p.ID == id {
			return filters.Selection{ID: p.ID, Name: p.Name}, true
		}
	}
	return filters.Selection{}, false
}
