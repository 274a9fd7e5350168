package view

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// fakeSource serves canned responses and counts calls per request. A call
// whose request has a gate blocks until the gate is closed.
type fakeSource struct {
	mu     sync.Mutex
	calls  map[string]int
	gates  map[string]chan struct{}
	games  map[string]*rawg.Page[rawg.Game]
	devs   map[string]*rawg.Developer
	errs   map[string]error
	genres *rawg.Page[rawg.Genre]
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: map[string]int{},
		gates: map[string]chan struct{}{},
		games: map[string]*rawg.Page[rawg.Game]{},
		devs:  map[string]*rawg.Developer{},
		errs:  map[string]error{},
	}
}

func gamesReq(q rawg.GameQuery) string { return "games?" + q.Values().Encode() }
func devReq(ref string) string         { return "developers/" + ref }

func (f *fakeSource) gate(req string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[req] = ch
	return ch
}

func (f *fakeSource) count(req string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[req]
}

func (f *fakeSource) enter(ctx context.Context, req string) error {
	f.mu.Lock()
	f.calls[req]++
	gate := f.gates[req]
	err := f.errs[req]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSource) ListGames(ctx context.Context, q rawg.GameQuery) (*rawg.Page[rawg.Game], error) {
	req := gamesReq(q)
	if err := f.enter(ctx, req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.games[req]; ok {
		return p, nil
	}
	return &rawg.Page[rawg.Game]{}, nil
}

func (f *fakeSource) GetDeveloper(ctx context.Context, ref string) (*rawg.Developer, error) {
	req := devReq(ref)
	if err := f.enter(ctx, req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.devs[req]; ok {
		return d, nil
	}
	return nil, &rawg.HTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found", URL: "/developers/" + ref}
}

func (f *fakeSource) ListGenres(ctx context.Context) (*rawg.Page[rawg.Genre], error) {
	if err := f.enter(ctx, "genres"); err != nil {
		return nil, err
	}
	return f.genres, nil
}

func (f *fakeSource) ListPlatforms(ctx context.Context) (*rawg.Page[rawg.Platform], error) {
	if err := f.enter(ctx, "platforms"); err != nil {
		return nil, err
	}
	return &rawg.Page[rawg.Platform]{Count: 1, Results: []rawg.Platform{{ID: 1, Name: "PC"}}}, nil
}

func page(names ...string) *rawg.Page[rawg.Game] {
	p := &rawg.Page[rawg.Game]{Count: len(names)}
	for i, n := range names {
		p.Results = append(p.Results, rawg.Game{ID: i + 1, Name: n})
	}
	return p
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newEngine(t *testing.T) *cache.Engine {
	t.Helper()
	e := cache.New()
	t.Cleanup(e.Close)
	return e
}

func TestListingWithoutFilters(t *testing.T) {
	src := newFakeSource()
	src.games[gamesReq(rawg.GameQuery{})] = page("A", "B")
	l := NewListing(newEngine(t), src, filters.NewStore())
	defer l.Close()

	st, err := l.Await(testCtx(t))
	require.NoError(t, err)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsError)
	assert.Len(t, st.Games, 2)
	assert.Equal(t, 2, st.Count)
	assert.Zero(t, st.Placeholders)
	assert.Equal(t, "Games", st.Heading)
	assert.Equal(t, 1, src.count("games?"), "no filter params are sent")
}

func TestListingShowsPlaceholdersWhileLoading(t *testing.T) {
	src := newFakeSource()
	gate := src.gate(gamesReq(rawg.GameQuery{}))
	l := NewListing(newEngine(t), src, filters.NewStore())
	defer l.Close()

	l.Start()
	st := l.State()
	assert.True(t, st.IsLoading)
	assert.Equal(t, PlaceholderCount, st.Placeholders)
	assert.Nil(t, st.Games)

	close(gate)
	st, err := l.Await(testCtx(t))
	require.NoError(t, err)
	assert.False(t, st.IsLoading)
}

func TestListingIgnoresResultForPreviousFilters(t *testing.T) {
	src := newFakeSource()
	allReq := gamesReq(rawg.GameQuery{})
	pcReq := gamesReq(rawg.GameQuery{Platform: 4})
	src.games[allReq] = page("A", "B")
	src.games[pcReq] = page("Portal")
	allGate := src.gate(allReq)
	pcGate := src.gate(pcReq)

	engine := newEngine(t)
	store := filters.NewStore()
	l := NewListing(engine, src, store)
	defer l.Close()
	l.Start()
	oldKey := l.State().Key

	store.Update(filters.SetPlatform(filters.Selection{ID: 4, Name: "PC"}))
	st := l.State()
	newKey := st.Key
	require.NotEqual(t, oldKey, newKey)
	assert.True(t, st.IsLoading)
	assert.Equal(t, "PC Games", st.Heading)

	// the old fetch finishes first
	close(allGate)
	old, err := engine.Wait(testCtx(t), oldKey)
	require.NoError(t, err)
	assert.Equal(t, cache.StatusResolved, old.Status, "old result is kept under its own key")

	st = l.State()
	assert.Equal(t, newKey, st.Key)
	assert.True(t, st.IsLoading)
	assert.Nil(t, st.Games)

	close(pcGate)
	st, err = l.Await(testCtx(t))
	require.NoError(t, err)
	require.Len(t, st.Games, 1)
	assert.Equal(t, "Portal", st.Games[0].Name)
}

func TestListingReusesCacheWhenFiltersReturn(t *testing.T) {
	src := newFakeSource()
	engine := newEngine(t)
	store := filters.NewStore()
	l := NewListing(engine, src, store)
	defer l.Close()

	_, err := l.Await(testCtx(t))
	require.NoError(t, err)

	store.Update(filters.SetGenre(filters.Selection{ID: 4, Name: "Action"}))
	_, err = l.Await(testCtx(t))
	require.NoError(t, err)

	store.Update(filters.ClearGenre())
	st := l.State()
	assert.False(t, st.IsLoading, "cached result is served immediately")
	assert.Equal(t, 1, src.count(gamesReq(rawg.GameQuery{})))
	assert.Equal(t, 1, src.count(gamesReq(rawg.GameQuery{Genre: 4})))
}

func TestListingsShareInFlightRequest(t *testing.T) {
	src := newFakeSource()
	req := gamesReq(rawg.GameQuery{Genre: 4})
	gate := src.gate(req)
	engine := newEngine(t)

	sel := filters.SetGenre(filters.Selection{ID: 4, Name: "Action"})
	a := NewListing(engine, src, filters.NewStore(sel))
	b := NewListing(engine, src, filters.NewStore(sel))
	defer a.Close()
	defer b.Close()
	a.Start()
	b.Start()

	close(gate)
	_, err := a.Await(testCtx(t))
	require.NoError(t, err)
	_, err = b.Await(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(req))
}

func TestListingOnChange(t *testing.T) {
	src := newFakeSource()
	gate := src.gate(gamesReq(rawg.GameQuery{}))
	l := NewListing(newEngine(t), src, filters.NewStore())
	defer l.Close()

	done := make(chan ListingState, 8)
	l.OnChange(func(s ListingState) { done <- s })
	l.Start()
	close(gate)

	for {
		select {
		case s := <-done:
			if !s.IsLoading {
				assert.False(t, s.IsError)
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("listing never left loading")
		}
	}
}

func TestDeveloperDetailParallel(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("109")] = &rawg.Developer{ID: 109, Name: "Valve Software", GamesCount: 44}
	gamesQ := rawg.GameQuery{Developer: "109"}
	src.games[gamesReq(gamesQ)] = page("Half-Life", "Portal")
	devGate := src.gate(devReq("109"))
	gamesGate := src.gate(gamesReq(gamesQ))

	engine := newEngine(t)
	d := NewDeveloperDetail(engine, src, "109")
	defer d.Close()
	d.Start()

	require.Eventually(t, func() bool {
		return src.count(devReq("109")) == 1 && src.count(gamesReq(gamesQ)) == 1
	}, time.Second, 5*time.Millisecond, "both requests start without waiting on each other")

	close(devGate)
	_, err := engine.Wait(testCtx(t), DeveloperKey("109"))
	require.NoError(t, err)
	st := d.State()
	assert.True(t, st.IsLoading, "still loading until games resolve")
	assert.Equal(t, PlaceholderCount, st.Placeholders)

	close(gamesGate)
	st, err = d.Await(testCtx(t))
	require.NoError(t, err)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsError)
	require.NotNil(t, st.Developer)
	assert.Equal(t, "Valve Software", st.Developer.Name)
	assert.Equal(t, 44, st.PublishedCount)
	assert.Len(t, st.Games, 2)
}

func TestDeveloperDetailNotFound(t *testing.T) {
	src := newFakeSource()
	d := NewDeveloperDetail(newEngine(t), src, "999")
	defer d.Close()

	st, err := d.Await(testCtx(t))
	require.NoError(t, err)
	assert.True(t, st.IsError)
	assert.False(t, st.IsLoading)
	assert.True(t, rawg.IsNotFound(st.Err))
	assert.Nil(t, st.Developer)
	assert.Zero(t, st.PublishedCount)
}

func TestDeveloperDetailGamesFailure(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("109")] = &rawg.Developer{ID: 109, Name: "Valve Software"}
	boom := errors.New("connection reset")
	src.errs[gamesReq(rawg.GameQuery{Developer: "109"})] = boom

	d := NewDeveloperDetail(newEngine(t), src, "109")
	defer d.Close()

	st, err := d.Await(testCtx(t))
	require.NoError(t, err)
	assert.True(t, st.IsError)
	assert.ErrorIs(t, st.Err, boom)
	assert.NotNil(t, st.Developer, "resolved profile is still exposed")
}

func TestDeveloperDetailBySlugWaitsForProfile(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("valve-software")] = &rawg.Developer{ID: 109, Slug: "valve-software", Name: "Valve Software"}
	gamesQ := rawg.GameQuery{Developer: "109"}
	src.games[gamesReq(gamesQ)] = page("Portal")
	devGate := src.gate(devReq("valve-software"))

	d := NewDeveloperDetail(newEngine(t), src, "valve-software")
	defer d.Close()
	d.Start()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, src.count(gamesReq(gamesQ)), "games wait for the developer id")
	assert.True(t, d.State().IsLoading)

	close(devGate)
	st, err := d.Await(testCtx(t))
	require.NoError(t, err)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsError)
	require.Len(t, st.Games, 1)
	assert.Equal(t, 1, src.count(gamesReq(gamesQ)))
}

func TestDeveloperDetailStateIsConsistent(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("valve-software")] = &rawg.Developer{ID: 109, Slug: "valve-software", Name: "Valve Software"}
	gamesQ := rawg.GameQuery{Developer: "109"}
	src.games[gamesReq(gamesQ)] = page("Portal")
	devGate := src.gate(devReq("valve-software"))
	gamesGate := src.gate(gamesReq(gamesQ))

	d := NewDeveloperDetail(newEngine(t), src, "valve-software")
	defer d.Close()
	d.Start()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				st := d.State()
				if !st.IsLoading && !st.IsError {
					assert.NotNil(t, st.Developer, "settled state without profile")
					assert.NotEmpty(t, st.Games, "settled state without games")
				}
				if st.IsLoading && st.Developer == nil {
					assert.Equal(t, PlaceholderCount, st.Placeholders)
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	close(devGate)
	close(gamesGate)
	st, err := d.Await(testCtx(t))
	require.NoError(t, err)
	close(done)
	wg.Wait()

	assert.False(t, st.IsLoading)
	require.NotNil(t, st.Developer)
	assert.Len(t, st.Games, 1)
}

func TestSnapshotMatchesCombine(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("109")] = &rawg.Developer{ID: 109, Name: "Valve Software"}
	gamesQ := rawg.GameQuery{Developer: "109"}
	src.games[gamesReq(gamesQ)] = page("Portal")

	engine := newEngine(t)
	b := BindParallel(engine, DeveloperQuery(src, "109"), DeveloperGamesQuery(src, 109))
	defer b.Close()
	b.OnChange(func(Aggregate) {
		states, agg := b.Snapshot()
		assert.Equal(t, Combine(states...), agg)
	})

	require.NoError(t, b.Await(testCtx(t)))
	states, agg := b.Snapshot()
	require.Len(t, states, 2)
	assert.False(t, agg.IsLoading)
	assert.False(t, agg.IsError)
}

func TestDependentStopsOnPrimaryFailure(t *testing.T) {
	src := newFakeSource()
	engine := newEngine(t)
	derived := false
	dep := BindDependent(engine, DeveloperQuery(src, "nobody"), func(any) (Query, error) {
		derived = true
		return Query{}, nil
	})
	defer dep.Close()

	require.NoError(t, dep.Await(testCtx(t)))
	agg := dep.Aggregate()
	assert.True(t, agg.IsError)
	assert.False(t, agg.IsLoading)
	assert.False(t, derived)
	assert.Equal(t, cache.StatusAbsent, dep.States()[1].Status)
}

func TestDependentDeriveError(t *testing.T) {
	src := newFakeSource()
	src.devs[devReq("ghost")] = &rawg.Developer{Name: "no id"}

	d := NewDeveloperDetail(newEngine(t), src, "ghost")
	defer d.Close()

	st, err := d.Await(testCtx(t))
	require.NoError(t, err)
	assert.True(t, st.IsError)
	assert.Contains(t, st.Err.Error(), "no id")
}

func TestCombine(t *testing.T) {
	k := cache.BuildKey("k")
	first := errors.New("first")
	second := errors.New("second")

	resolved := cache.State{Key: k, Status: cache.StatusResolved}
	pending := cache.State{Key: k, Status: cache.StatusPending}
	failed1 := cache.State{Key: k, Status: cache.StatusFailed, Err: first}
	failed2 := cache.State{Key: k, Status: cache.StatusFailed, Err: second}

	assert.Equal(t, Aggregate{}, Combine(resolved, resolved))
	assert.Equal(t, Aggregate{IsLoading: true}, Combine(resolved, pending))
	assert.Equal(t, Aggregate{IsLoading: true}, Combine(resolved, cache.State{}))
	assert.Equal(t, Aggregate{IsError: true, Err: first}, Combine(failed1, failed2))
	assert.Equal(t, Aggregate{IsLoading: true, IsError: true, Err: second}, Combine(pending, failed2))
}

func TestCatalogLookups(t *testing.T) {
	src := newFakeSource()
	src.genres = &rawg.Page[rawg.Genre]{Count: 1, Results: []rawg.Genre{{ID: 4, Name: "Action"}}}
	engine := newEngine(t)

	genres, err := Genres(testCtx(t), engine, src)
	require.NoError(t, err)
	require.False(t, genres.IsError)
	sel, ok := FindGenre(genres.Data, 4)
	assert.True(t, ok)
	assert.Equal(t, filters.Selection{ID: 4, Name: "Action"}, sel)
	_, ok = FindGenre(genres.Data, 5)
	assert.False(t, ok)

	_, err = Genres(testCtx(t), engine, src)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count("genres"))

	platforms, err := Platforms(testCtx(t), engine, src)
	require.NoError(t, err)
	sel, ok = FindPlatform(platforms.Data, 1)
	assert.True(t, ok)
	assert.Equal(t, "PC", sel.Name)
}
