package pages

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/view"
)

// Source is everything the pages read from the catalog.
type Source interface {
	view.DeveloperSource
	view.CatalogSource
}

// GamesPage prints the games listing for a genre/platform selection
type GamesPage struct {
	engine *cache.Engine
	src    Source
	log    zerolog.Logger
}

// NewGamesPage creates the games listing page
func NewGamesPage(engine *cache.Engine, src Source, log zerolog.Logger) *GamesPage {
	return &GamesPage{engine: engine, src: src, log: log}
}

func (p *GamesPage) Name() string { return "games" }

func (p *GamesPage) Usage() string {
	return "games [-genre ID] [-platform ID] [-watch]"
}

// Run resolves the selection names from the catalog lists, then awaits the
// listing. With -watch, skeleton rows are printed while it loads.
func (p *GamesPage) Run(ctx context.Context, w io.Writer, args []string) error {
	fs := flag.NewFlagSet(p.Name(), flag.ContinueOnError)
	fs.SetOutput(w)
	genre := fs.Int("genre", 0, "genre id, see the genres command")
	platform := fs.Int("platform", 0, "parent platform id, see the platforms command")
	watch := fs.Bool("watch", false, "print placeholders while loading")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var changes []filters.Change
	if *genre != 0 {
		res, err := view.Genres(ctx, p.engine, p.src)
		if err != nil {
			return err
		}
		if res.IsError {
			return fmt.Errorf("failed to load genres: %w", res.Err)
		}
		sel, ok := view.FindGenre(res.Data, *genre)
		if !ok {
			return fmt.Errorf("unknown genre %d", *genre)
		}
		changes = append(changes, filters.SetGenre(sel))
	}
	if *platform != 0 {
		res, err := view.Platforms(ctx, p.engine, p.src)
		if err != nil {
			return err
		}
		if res.IsError {
			return fmt.Errorf("failed to load platforms: %w", res.Err)
		}
		sel, ok := view.FindPlatform(res.Data, *platform)
		if !ok {
			return fmt.Errorf("unknown platform %d", *platform)
		}
		changes = append(changes, filters.SetPlatform(sel))
	}

	store := filters.NewStore(changes...)
	l := view.NewListing(p.engine, p.src, store, view.WithLogger(p.log))
	defer l.Close()

	if *watch {
		var mu sync.Mutex
		printed := false
		l.OnChange(func(st view.ListingState) {
			mu.Lock()
			defer mu.Unlock()
			if st.IsLoading && !printed {
				printed = true
				fmt.Fprint(w, "## "+st.Heading+"\n"+formatPlaceholders(st.Placeholders))
			}
		})
	}

	st, err := l.Await(ctx)
	if err != nil {
		return err
	}
	if st.IsError {
		return fmt.Errorf("failed to load %s: %w", st.Heading, st.Err)
	}

	output := "## " + st.Heading + "\n"
	output += fmt.Sprintf("%d games\n", st.Count)
	output += formatGames(st.Games)
	_, err = io.WriteString(w, output)
	return err
}

var _ Page = (*GamesPage)(nil)
