package view

import (
	"context"
	"sync"

	"github.com/lazyboycode/rawg-game-hub/cache"
)

// Derive builds the secondary query from the resolved primary value.
type Derive func(primary any) (Query, error)

// Dependent runs a secondary query whose parameters are only known once
// the primary query has resolved.
type Dependent struct {
	engine *cache.Engine
	derive Derive

	mu        sync.Mutex
	primary   *slot
	secondary *slot // nil until derived
	deriveErr error
	listeners []func(Aggregate)
	started   bool
	closed    bool
}

var _ Binding = (*Dependent)(nil)

func BindDependent(engine *cache.Engine, primary Query, derive Derive) *Dependent {
	return &Dependent{engine: engine, derive: derive, primary: newSlot(primary)}
}

func (d *Dependent) Start() {
	d.mu.Lock()
	if d.started || d.closed {
		d.mu.Unlock()
		return
	}
	d.started = true
	q := d.primary.query
	d.primary.cancel = d.engine.Subscribe(q.Key, d.applyPrimary)
	d.mu.Unlock()

	d.applyPrimary(d.engine.Resolve(q.Key, q.Fetch))
}

func (d *Dependent) applyPrimary(st cache.State) {
	d.mu.Lock()
	if d.closed || !d.primary.commit(st) {
		d.mu.Unlock()
		return
	}
	next, ok := d.deriveLocked()
	agg := d.aggregateLocked()
	listeners := append([]func(Aggregate){}, d.listeners...)
	d.mu.Unlock()

	notifyAll(listeners, agg)
	if ok {
		d.applySecondary(d.engine.Resolve(next.Key, next.Fetch))
	}
}

// deriveLocked creates the secondary slot the first time the primary is
// resolved. It reports whether the caller has to resolve the new query.
func (d *Dependent) deriveLocked() (Query, bool) {
	if d.primary.state.Status != cache.StatusResolved || d.secondary != nil || d.deriveErr != nil {
		return Query{}, false
	}
	q, err := d.derive(d.primary.state.Data)
	if err != nil {
		d.deriveErr = err
		return Query{}, false
	}
	d.secondary = newSlot(q)
	d.secondary.cancel = d.engine.Subscribe(q.Key, d.applySecondary)
	return q, true
}

func (d *Dependent) applySecondary(st cache.State) {
	d.mu.Lock()
	if d.closed || d.secondary == nil || !d.secondary.commit(st) {
		d.mu.Unlock()
		return
	}
	agg := d.aggregateLocked()
	listeners := append([]func(Aggregate){}, d.listeners...)
	d.mu.Unlock()

	notifyAll(listeners, agg)
}

func (d *Dependent) States() []cache.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statesLocked()
}

func (d *Dependent) statesLocked() []cache.State {
	out := []cache.State{d.primary.state, {}}
	if d.secondary != nil {
		out[1] = d.secondary.state
	}
	return out
}

func (d *Dependent) Aggregate() Aggregate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.aggregateLocked()
}

func (d *Dependent) Snapshot() ([]cache.State, Aggregate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statesLocked(), d.aggregateLocked()
}

// aggregateLocked stops at the primary when it failed or could not be
// turned into a secondary query; the secondary will never run then.
func (d *Dependent) aggregateLocked() Aggregate {
	if d.primary.state.IsError() {
		return Combine(d.primary.state)
	}
	if d.deriveErr != nil {
		return Aggregate{IsError: true, Err: d.deriveErr}
	}
	return Combine(d.statesLocked()...)
}

func (d *Dependent) OnChange(fn func(Aggregate)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// Await waits for the primary, then for the secondary if one was derived.
func (d *Dependent) Await(ctx context.Context) error {
	d.Start()

	st, err := d.engine.Await(ctx, d.primary.query.Key, d.primary.query.Fetch)
	if err != nil {
		return err
	}
	d.applyPrimary(st)

	d.mu.Lock()
	var next *Query
	if d.secondary != nil {
		q := d.secondary.query
		next = &q
	}
	d.mu.Unlock()
	if next == nil {
		return nil
	}

	// Resolve joins the fetch started by applyPrimary, or starts it if
	// that call has not reached the engine yet.
	st, err = d.engine.Await(ctx, next.Key, next.Fetch)
	if err != nil {
		return err
	}
	d.applySecondary(st)
	return nil
}

func (d *Dependent) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.primary.stop()
	if d.secondary != nil {
		d.secondary.stop()
	}
}
