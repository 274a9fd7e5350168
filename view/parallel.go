package view

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lazyboycode/rawg-game-hub/cache"
)

// Parallel tracks independent queries that are all started at once.
type Parallel struct {
	engine *cache.Engine

	mu        sync.Mutex
	slots     []*slot
	listeners []func(Aggregate)
	started   bool
	closed    bool
}

var _ Binding = (*Parallel)(nil)

func BindParallel(engine *cache.Engine, queries ...Query) *Parallel {
	p := &Parallel{engine: engine}
	for _, q := range queries {
		p.slots = append(p.slots, newSlot(q))
	}
	return p
}

func (p *Parallel) Start() {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	for i, s := range p.slots {
		s.cancel = p.engine.Subscribe(s.query.Key, func(st cache.State) { p.apply(i, st) })
	}
	p.mu.Unlock()

	// Resolve may publish synchronously, so it runs without p.mu held.
	for i, s := range p.slots {
		p.apply(i, p.engine.Resolve(s.query.Key, s.query.Fetch))
	}
}

func (p *Parallel) apply(i int, st cache.State) {
	p.mu.Lock()
	if p.closed || !p.slots[i].commit(st) {
		p.mu.Unlock()
		return
	}
	agg := p.aggregateLocked()
	listeners := append([]func(Aggregate){}, p.listeners...)
	p.mu.Unlock()

	notifyAll(listeners, agg)
}

func (p *Parallel) States() []cache.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statesLocked()
}

func (p *Parallel) statesLocked() []cache.State {
	out := make([]cache.State, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.state
	}
	return out
}

func (p *Parallel) Aggregate() Aggregate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aggregateLocked()
}

func (p *Parallel) Snapshot() ([]cache.State, Aggregate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := p.statesLocked()
	return states, Combine(states...)
}

func (p *Parallel) aggregateLocked() Aggregate {
	return Combine(p.statesLocked()...)
}

func (p *Parallel) OnChange(fn func(Aggregate)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Await starts the binding if needed and waits for every query.
func (p *Parallel) Await(ctx context.Context) error {
	p.Start()

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range p.slots {
		q := s.query
		g.Go(func() error {
			st, err := p.engine.Await(gctx, q.Key, q.Fetch)
			if err != nil {
				return err
			}
			p.apply(i, st)
			return nil
		})
	}
	return g.Wait()
}

func (p *Parallel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, s := range p.slots {
		s.stop()
	}
}
