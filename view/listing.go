package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// ListingState is what the games listing page renders.
type ListingState struct {
	Filters      filters.Filters
	Heading      string
	Key          cache.Key
	Games        []rawg.Game
	Count        int
	Next         string
	IsLoading    bool
	IsError      bool
	Err          error
	Placeholders int
}

type Option func(*options)

type options struct {
	log zerolog.Logger
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Listing keeps the games listing in sync with a filter store. Every
// filter update moves it to the key of the new snapshot; results that
// arrive for any other key are discarded.
type Listing struct {
	engine *cache.Engine
	src    GamesSource
	store  *filters.Store
	log    zerolog.Logger

	mu          sync.Mutex
	filters     filters.Filters
	selected    bool
	key         cache.Key
	entry       cache.State
	unwatch     func()
	unsubscribe func()
	listeners   []func(ListingState)
	started     bool
	closed      bool
}

func NewListing(engine *cache.Engine, src GamesSource, store *filters.Store, opts ...Option) *Listing {
	o := buildOptions(opts)
	return &Listing{engine: engine, src: src, store: store, log: o.log}
}

// Start follows the store from its current snapshot on.
func (l *Listing) Start() {
	l.mu.Lock()
	if l.started || l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.unsubscribe = l.store.Subscribe(l.selectFilters)
	l.mu.Unlock()

	l.selectFilters(l.store.Get())
}

func (l *Listing) selectFilters(f filters.Filters) {
	q := ListingQuery(l.src, f)

	l.mu.Lock()
	if l.closed || (l.selected && f.Generation <= l.filters.Generation) {
		l.mu.Unlock()
		return
	}
	l.filters = f
	l.selected = true
	if q.Key != l.key {
		if l.unwatch != nil {
			l.unwatch()
		}
		l.log.Debug().Str("from", l.key.String()).Str("to", q.Key.String()).Uint64("generation", f.Generation).Msg("listing key changed")
		l.key = q.Key
		l.entry = cache.State{Key: q.Key}
		l.unwatch = l.engine.Subscribe(q.Key, l.apply)
	}
	snap := l.stateLocked()
	listeners := append([]func(ListingState){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	l.apply(l.engine.Resolve(q.Key, q.Fetch))
}

// apply commits st only while its key is the active one.
func (l *Listing) apply(st cache.State) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if st.Key != l.key {
		active := l.key
		l.mu.Unlock()
		l.log.Debug().Str("key", st.Key.String()).Str("active", active.String()).Msg("discarding result for inactive key")
		return
	}
	if !st.Supersedes(l.entry) {
		l.mu.Unlock()
		return
	}
	l.entry = st
	snap := l.stateLocked()
	listeners := append([]func(ListingState){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (l *Listing) State() ListingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *Listing) stateLocked() ListingState {
	s := ListingState{
		Filters: l.filters,
		Heading: l.filters.Heading(),
		Key:     l.key,
	}
	r := cache.As[*rawg.Page[rawg.Game]](l.entry)
	s.IsLoading, s.IsError, s.Err = r.IsLoading, r.IsError, r.Err
	if s.IsLoading {
		s.Placeholders = PlaceholderCount
	}
	if page := r.Data; page != nil {
		s.Games = page.Results
		s.Count = page.Count
		if page.Next != nil {
			s.Next = *page.Next
		}
	}
	return s
}

// OnChange registers fn for every state the listing commits.
func (l *Listing) OnChange(fn func(ListingState)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Await starts the listing if needed and waits until the entry of the
// key active at call time is terminal.
func (l *Listing) Await(ctx context.Context) (ListingState, error) {
	l.Start()

	l.mu.Lock()
	q := ListingQuery(l.src, l.filters)
	l.mu.Unlock()

	st, err := l.engine.Await(ctx, q.Key, q.Fetch)
	if err != nil {
		return l.State(), err
	}
	l.apply(st)
	return l.State(), nil
}

func (l *Listing) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	if l.unwatch != nil {
		l.unwatch()
	}
}
