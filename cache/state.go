// Package cache coalesces remote fetches by query key and keeps their
// outcome in memory for the life of the process.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle stage of a cache entry.
type Status string

const (
	// StatusAbsent is the zero State: no entry exists for the key.
	StatusAbsent   Status = ""
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Fetcher loads the value of one key. The context is cancelled when the
// engine closes or the fetch timeout elapses.
type Fetcher func(ctx context.Context) (any, error)

// State is a point-in-time copy of a cache entry.
type State struct {
	Key       Key
	Status    Status
	Data      any
	Err       error
	Seq       uint64 // increases with every entry the engine creates
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s State) IsLoading() bool { return s.Status == StatusPending }
func (s State) IsError() bool   { return s.Status == StatusFailed }

// Terminal reports whether the entry is resolved or failed.
func (s State) Terminal() bool {
	return s.Status == StatusResolved || s.Status == StatusFailed
}

// Message is a human readable description of the failure, or "".
func (s State) Message() string {
	if s.Status != StatusFailed {
		return ""
	}
	if s.Err == nil {
		return "request failed"
	}
	return s.Err.Error()
}

// Supersedes reports whether s should replace prev in a consumer that
// tracks a single key. A later entry wins; within one entry a terminal
// state wins over a pending one and is never replaced.
func (s State) Supersedes(prev State) bool {
	if prev.Status == StatusAbsent || s.Key != prev.Key {
		return true
	}
	if s.Seq != prev.Seq {
		return s.Seq > prev.Seq
	}
	return s.Terminal() && !prev.Terminal()
}

func (s State) String() string {
	switch s.Status {
	case StatusFailed:
		return fmt.Sprintf("%s: %s (%s)", s.Key, s.Status, s.Message())
	case StatusAbsent:
		return fmt.Sprintf("%s: absent", s.Key)
	default:
		return fmt.Sprintf("%s: %s", s.Key, s.Status)
	}
}

// Stats are engine counters since construction.
type Stats struct {
	Entries int `json:"entries"`
	Fetches int `json:"fetches"` // remote fetches started
	Hits    int `json:"hits"`    // Resolve calls answered by a terminal entry
	Joins   int `json:"joins"`   // Resolve calls attached to a pending entry
}
