package view

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// DeveloperState is what the developer page renders.
type DeveloperState struct {
	Ref            string
	Developer      *rawg.Developer
	Games          []rawg.Game
	PublishedCount int
	IsLoading      bool
	IsError        bool
	Err            error
	Placeholders   int
}

// DeveloperDetail binds a developer profile to the developer's games.
//
// A numeric ref is the developer id, so both requests are known up front
// and run in parallel. A slug only yields the id once the profile has
// resolved, so the games request waits for it.
type DeveloperDetail struct {
	ref     string
	binding Binding
	log     zerolog.Logger
}

func NewDeveloperDetail(engine *cache.Engine, src DeveloperSource, ref string, opts ...Option) *DeveloperDetail {
	o := buildOptions(opts)
	profile := DeveloperQuery(src, ref)

	var b Binding
	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		b = BindParallel(engine, profile, DeveloperGamesQuery(src, id))
	} else {
		b = BindDependent(engine, profile, func(v any) (Query, error) {
			d, ok := v.(*rawg.Developer)
			if !ok || d == nil || d.ID == 0 {
				return Query{}, fmt.Errorf("developer %q: profile has no id", ref)
			}
			return DeveloperGamesQuery(src, d.ID), nil
		})
	}
	o.log.Debug().Str("ref", ref).Bool("parallel", isParallel(b)).Msg("developer detail bound")
	return &DeveloperDetail{ref: ref, binding: b, log: o.log}
}

func isParallel(b Binding) bool {
	_, ok := b.(*Parallel)
	return ok
}

func (d *DeveloperDetail) Start() { d.binding.Start() }
func (d *DeveloperDetail) Close() { d.binding.Close() }

func (d *DeveloperDetail) OnChange(fn func(DeveloperState)) {
	d.binding.OnChange(func(Aggregate) { fn(d.State()) })
}

func (d *DeveloperDetail) Await(ctx context.Context) (DeveloperState, error) {
	err := d.binding.Await(ctx)
	return d.State(), err
}

func (d *DeveloperDetail) State() DeveloperState {
	states, agg := d.binding.Snapshot()

	s := DeveloperState{
		Ref:       d.ref,
		IsLoading: agg.IsLoading,
		IsError:   agg.IsError,
		Err:       agg.Err,
	}
	if s.IsLoading {
		s.Placeholders = PlaceholderCount
	}
	if dev := cache.As[*rawg.Developer](states[0]); dev.Data != nil {
		s.Developer = dev.Data
		s.PublishedCount = dev.Data.GamesCount
	}
	if len(states) > 1 {
		if games := cache.As[*rawg.Page[rawg.Game]](states[1]); games.Data != nil {
			s.Games = games.Data.Results
		}
	}
	return s
}
