package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/lazyboycode/rawg-game-hub/cache"

var (
	// ErrNotFound is returned by Wait when no entry exists for the key.
	ErrNotFound = errors.New("cache entry not found")
	// ErrNoFetcher fails an entry that was resolved without a fetcher.
	ErrNoFetcher = errors.New("no fetcher for key")
)

type entry struct {
	state State
	done  chan struct{} // closed once state is terminal
}

// Engine maps keys to entries. A key has at most one entry and at most one
// fetch in flight; concurrent Resolve calls for a pending key join it.
type Engine struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	watchers map[Key]map[uint64]func(State)
	nextSeq  uint64
	nextSub  uint64
	stats    Stats

	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	ttl     time.Duration
	retry   time.Duration
	now     func() time.Time
	log     zerolog.Logger
	tracer  trace.Tracer
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithFetchTimeout bounds every fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithTTL makes resolved entries older than d eligible for replacement by
// a fresh entry on the next Resolve. Zero keeps entries forever.
func WithTTL(d time.Duration) Option {
	return func(e *Engine) { e.ttl = d }
}

// WithRetryFailedAfter makes failed entries older than d eligible for
// replacement by a fresh entry on the next Resolve. Zero keeps failures
// until Invalidate.
func WithRetryFailedAfter(d time.Duration) Option {
	return func(e *Engine) { e.retry = d }
}

// WithTracerProvider sets where fetch spans go. Defaults to the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		entries:  make(map[Key]*entry),
		watchers: make(map[Key]map[uint64]func(State)),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		log:      zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resolve returns the state of key, starting fetch if no usable entry
// exists. It never blocks on the fetch and never panics; failures are
// reported through the returned and published states.
func (e *Engine) Resolve(key Key, fetch Fetcher) State {
	e.mu.Lock()
	if ent, ok := e.entries[key]; ok && !e.expired(ent) {
		st := ent.state
		if st.Terminal() {
			e.stats.Hits++
		} else {
			e.stats.Joins++
		}
		e.mu.Unlock()
		e.log.Debug().Str("key", key.String()).Str("status", string(st.Status)).Msg("cache hit")
		return st
	}

	e.nextSeq++
	now := e.now()
	ent := &entry{
		state: State{Key: key, Status: StatusPending, Seq: e.nextSeq, CreatedAt: now, UpdatedAt: now},
		done:  make(chan struct{}),
	}
	e.entries[key] = ent

	if fetch == nil {
		st := e.finishLocked(ent, nil, fmt.Errorf("%w %s", ErrNoFetcher, key))
		subs := e.subscribersLocked(key)
		e.mu.Unlock()
		notify(subs, st)
		return st
	}

	e.stats.Fetches++
	st := ent.state
	subs := e.subscribersLocked(key)
	e.mu.Unlock()

	notify(subs, st)
	go e.run(key, ent, fetch)
	return st
}

// Await resolves key and blocks until its entry is terminal.
func (e *Engine) Await(ctx context.Context, key Key, fetch Fetcher) (State, error) {
	e.Resolve(key, fetch)
	return e.Wait(ctx, key)
}

// Wait blocks until the entry stored under key is terminal or ctx ends.
func (e *Engine) Wait(ctx context.Context, key Key) (State, error) {
	e.mu.Lock()
	ent, ok := e.entries[key]
	e.mu.Unlock()
	if !ok {
		return State{Key: key}, ErrNotFound
	}

	select {
	case <-ent.done:
	case <-ctx.Done():
		e.mu.Lock()
		st := ent.state
		e.mu.Unlock()
		return st, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return ent.state, nil
}

// Peek returns the current state of key without fetching.
func (e *Engine) Peek(key Key) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[key]
	if !ok {
		return State{Key: key}, false
	}
	return ent.state, true
}

// Subscribe calls fn with every state published for key from now on,
// until cancel is called. fn runs on the goroutine that completed the
// fetch and must not block.
func (e *Engine) Subscribe(key Key, fn func(State)) (cancel func()) {
	e.mu.Lock()
	e.nextSub++
	id := e.nextSub
	if e.watchers[key] == nil {
		e.watchers[key] = make(map[uint64]func(State))
	}
	e.watchers[key][id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.watchers[key], id)
			if len(e.watchers[key]) == 0 {
				delete(e.watchers, key)
			}
		})
	}
}

// Invalidate drops the entry for key. A fetch still in flight for the
// dropped entry completes without being stored or published.
func (e *Engine) Invalidate(key Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.entries[key]; ok {
		delete(e.entries, key)
		e.log.Debug().Str("key", key.String()).Msg("cache entry invalidated")
	}
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Entries = len(e.entries)
	return s
}

// Close cancels the context of every fetch in flight.
func (e *Engine) Close() {
	e.cancel()
}

func (e *Engine) run(key Key, ent *entry, fetch Fetcher) {
	fetchID := uuid.NewString()
	log := e.log.With().Str("key", key.String()).Str("fetch_id", fetchID).Logger()

	ctx := e.ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "cache.fetch", trace.WithAttributes(
		attribute.String("cache.key", key.String()),
		attribute.String("cache.resource", key.Resource()),
		attribute.String("cache.fetch_id", fetchID),
	))
	defer span.End()

	start := e.now()
	log.Debug().Msg("fetch started")
	value, err := call(ctx, fetch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	e.mu.Lock()
	st := e.finishLocked(ent, value, err)
	current := e.entries[key] == ent
	var subs []func(State)
	if current {
		subs = e.subscribersLocked(key)
	}
	e.mu.Unlock()

	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Dur("took", e.now().Sub(start)).Str("status", string(st.Status)).Bool("stored", current).Msg("fetch finished")

	notify(subs, st)
}

// finishLocked moves ent from pending to resolved or failed. e.mu must be held.
func (e *Engine) finishLocked(ent *entry, value any, err error) State {
	if ent.state.Terminal() {
		return ent.state
	}
	if err != nil {
		ent.state.Status = StatusFailed
		ent.state.Err = err
	} else {
		ent.state.Status = StatusResolved
		ent.state.Data = value
	}
	ent.state.UpdatedAt = e.now()
	close(ent.done)
	return ent.state
}

func (e *Engine) subscribersLocked(key Key) []func(State) {
	ws := e.watchers[key]
	if len(ws) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(ws))
	for _, fn := range ws {
		out = append(out, fn)
	}
	return out
}

// expired reports whether a terminal entry may be replaced: resolved
// entries after the ttl, failed ones after the retry delay. Pending entries
// never expire. The replacement is a new entry with a higher Seq.
func (e *Engine) expired(ent *entry) bool {
	age := e.now().Sub(ent.state.UpdatedAt)
	switch ent.state.Status {
	case StatusResolved:
		return e.ttl > 0 && age > e.ttl
	case StatusFailed:
		return e.retry > 0 && age > e.retry
	}
	return false
}

func call(ctx context.Context, fetch Fetcher) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}
