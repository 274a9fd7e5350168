// Package filters holds the genre/platform selection of a browsing session.
package filters

import (
	"strings"
	"sync"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

// Selection is one chosen genre or platform.
type Selection struct {
	ID   int
	Name string
}

// Filters is an immutable snapshot of the selection. A nil field means
// "all". Generation increases with every update of the owning store.
type Filters struct {
	Genre      *Selection
	Platform   *Selection
	Generation uint64
}

// Params returns the key params of the games listing, in declared order.
func (f Filters) Params() []cache.Param {
	return []cache.Param{
		cache.Optional("genres", f.GenreID()),
		cache.Optional("platforms", f.PlatformID()),
	}
}

func (f Filters) GenreID() *int {
	if f.Genre == nil {
		return nil
	}
	id := f.Genre.ID
	return &id
}

func (f Filters) PlatformID() *int {
	if f.Platform == nil {
		return nil
	}
	id := f.Platform.ID
	return &id
}

// Query is the remote request matching the snapshot.
func (f Filters) Query() rawg.GameQuery {
	var q rawg.GameQuery
	if f.Genre != nil {
		q.Genre = f.Genre.ID
	}
	if f.Platform != nil {
		q.Platform = f.Platform.ID
	}
	return q
}

// Heading renders the listing title, e.g. "PC Action Games".
func (f Filters) Heading() string {
	parts := make([]string, 0, 3)
	if f.Platform != nil && f.Platform.Name != "" {
		parts = append(parts, f.Platform.Name)
	}
	if f.Genre != nil && f.Genre.Name != "" {
		parts = append(parts, f.Genre.Name)
	}
	return strings.Join(append(parts, "Games"), " ")
}

// clone copies the selections so no two snapshots share them.
func (f Filters) clone() Filters {
	if f.Genre != nil {
		g := *f.Genre
		f.Genre = &g
	}
	if f.Platform != nil {
		p := *f.Platform
		f.Platform = &p
	}
	return f
}

// Change is one field update applied by Store.Update.
type Change func(*Filters)

func SetGenre(s Selection) Change {
	return func(f *Filters) { f.Genre = &s }
}

func ClearGenre() Change {
	return func(f *Filters) { f.Genre = nil }
}

func SetPlatform(s Selection) Change {
	return func(f *Filters) { f.Platform = &s }
}

func ClearPlatform() Change {
	return func(f *Filters) { f.Platform = nil }
}

// Store owns the current snapshot and publishes every new one.
type Store struct {
	mu      sync.Mutex
	current Filters
	subs    map[int]func(Filters)
	nextSub int
}

// NewStore starts from an empty selection with changes applied.
func NewStore(changes ...Change) *Store {
	s := &Store{subs: make(map[int]func(Filters))}
	for _, c := range changes {
		c(&s.current)
	}
	s.current = s.current.clone()
	return s
}

func (s *Store) Get() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// Update merges changes over the current snapshot, stores the result as a
// new snapshot and hands it to every subscriber. Fields not touched by
// changes carry over.
func (s *Store) Update(changes ...Change) Filters {
	s.mu.Lock()
	next := s.current
	for _, c := range changes {
		c(&next)
	}
	next = next.clone()
	next.Generation = s.current.Generation + 1
	s.current = next
	subs := make([]func(Filters), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.clone())
	}
	return next.clone()
}

// Subscribe registers fn for future snapshots.
func (s *Store) Subscribe(fn func(Filters)) (cancel func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
