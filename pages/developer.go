package pages

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/rawg"
	"github.com/lazyboycode/rawg-game-hub/view"
)

// DeveloperPage prints a developer profile with the developer's games
type DeveloperPage struct {
	engine *cache.Engine
	src    Source
	log    zerolog.Logger
}

func NewDeveloperPage(engine *cache.Engine, src Source, log zerolog.Logger) *DeveloperPage {
	return &DeveloperPage{engine: engine, src: src, log: log}
}

func (p *DeveloperPage) Name() string  { return "developer" }
func (p *DeveloperPage) Usage() string { return "developer <id|slug>" }

func (p *DeveloperPage) Run(ctx context.Context, w io.Writer, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: " + p.Usage())
	}

	d := view.NewDeveloperDetail(p.engine, p.src, args[0], view.WithLogger(p.log))
	defer d.Close()

	st, err := d.Await(ctx)
	if err != nil {
		return err
	}
	if st.IsError {
		if rawg.IsNotFound(st.Err) {
			return fmt.Errorf("developer %q not found", st.Ref)
		}
		return fmt.Errorf("failed to load developer %q: %w", st.Ref, st.Err)
	}

	_, err = io.WriteString(w, formatDeveloper(st))
	return err
}

// formatDeveloper generates the profile block followed by the games list
func formatDeveloper(st view.DeveloperState) string {
	var output string
	name := st.Ref
	if st.Developer != nil && st.Developer.Name != "" {
		name = st.Developer.Name
	}
	output += fmt.Sprintf("## %s\n", name)
	output += fmt.Sprintf("Published games: %d\n", st.PublishedCount)
	output += "Games:\n"
	output += formatGames(st.Games)
	return output
}

var _ Page = (*DeveloperPage)(nil)
