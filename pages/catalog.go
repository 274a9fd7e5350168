package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/view"
)

// GenresPage lists the genre ids accepted by `games -genre`
type GenresPage struct {
	engine *cache.Engine
	src    Source
}

func NewGenresPage(engine *cache.Engine, src Source) *GenresPage {
	return &GenresPage{engine: engine, src: src}
}

func (p *GenresPage) Name() string  { return "genres" }
func (p *GenresPage) Usage() string { return "genres" }

func (p *GenresPage) Run(ctx context.Context, w io.Writer, _ []string) error {
	res, err := view.Genres(ctx, p.engine, p.src)
	if err != nil {
		return err
	}
	if res.IsError {
		return fmt.Errorf("failed to load genres: %w", res.Err)
	}
	if res.Data == nil {
		return nil
	}
	var output string
	for _, g := range res.Data.Results {
		output += fmt.Sprintf("%4d  %s\n", g.ID, g.Name)
	}
	_, err = io.WriteString(w, output)
	return err
}

// PlatformsPage lists the parent platform ids accepted by `games -platform`
type PlatformsPage struct {
	engine *cache.Engine
	src    Source
}

func NewPlatformsPage(engine *cache.Engine, src Source) *PlatformsPage {
	return &PlatformsPage{engine: engine, src: src}
}

func (p *PlatformsPage) Name() string  { return "platforms" }
func (p *PlatformsPage) Usage() string { return "platforms" }

func (p *PlatformsPage) Run(ctx context.Context, w io.Writer, _ []string) error {
	res, err := view.Platforms(ctx, p.engine, p.src)
	if err != nil {
		return err
	}
	if res.IsError {
		return fmt.Errorf("failed to load platforms: %w", res.Err)
	}
	if res.Data == nil {
		return nil
	}
	var output string
	for _, pl := range res.Data.Results {
		output += fmt.Sprintf("%4d  %s\n", pl.ID, pl.Name)
	}
	_, err = io.WriteString(w, output)
	return err
}

var (
	_ Page = (*GenresPage)(nil)
	_ Page = (*PlatformsPage)(nil)
)
