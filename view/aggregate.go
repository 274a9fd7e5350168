package view

import (
	"context"
	"errors"

	"github.com/lazyboycode/rawg-game-hub/cache"
)

// Aggregate is the combined loading/error state of several entries.
type Aggregate struct {
	IsLoading bool
	IsError   bool
	Err       error
}

// Combine reports loading while any state is not terminal, including
// states of queries that have not started, and the first failure in
// argument order.
func Combine(states ...cache.State) Aggregate {
	var a Aggregate
	for _, s := range states {
		switch s.Status {
		case cache.StatusResolved:
		case cache.StatusFailed:
			if !a.IsError {
				a.IsError = true
				a.Err = s.Err
				if a.Err == nil {
					a.Err = errors.New(s.Message())
				}
			}
		default:
			a.IsLoading = true
		}
	}
	return a
}

// Binding is a set of cache entries tracked together.
type Binding interface {
	// Start resolves the constituent queries. It is safe to call twice.
	Start()
	// States returns one state per constituent, in declaration order.
	// Constituents not started yet are reported as absent.
	States() []cache.State
	Aggregate() Aggregate
	// Snapshot returns States and Aggregate taken together, so a reader
	// never pairs states from one commit with the aggregate of another.
	Snapshot() ([]cache.State, Aggregate)
	// OnChange registers fn for every committed state change.
	OnChange(fn func(Aggregate))
	// Await blocks until every constituent that will run is terminal.
	Await(ctx context.Context) error
	Close()
}

// slot is one constituent of a binding.
type slot struct {
	query  Query
	state  cache.State
	cancel func()
}

func newSlot(q Query) *slot {
	return &slot{query: q, state: cache.State{Key: q.Key}}
}

// commit stores st if it belongs to the slot and is newer than what the
// slot holds.
func (s *slot) commit(st cache.State) bool {
	if st.Key != s.query.Key || !st.Supersedes(s.state) {
		return false
	}
	s.state = st
	return true
}

func (s *slot) stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func notifyAll(fns []func(Aggregate), a Aggregate) {
	for _, fn := range fns {
		fn(a)
	}
}
