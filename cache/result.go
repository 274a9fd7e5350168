package cache

import (
	"context"
	"fmt"
)

// Result is the typed, consumer-facing view of a State.
type Result[T any] struct {
	Data      T
	IsLoading bool
	IsError   bool
	Err       error
}

// As projects s onto T. A resolved entry holding a value of another type
// is reported as an error rather than a zero T.
func As[T any](s State) Result[T] {
	var r Result[T]
	switch s.Status {
	case StatusResolved:
		v, ok := s.Data.(T)
		if !ok {
			r.IsError = true
			r.Err = fmt.Errorf("cache: %s holds %T, not %T", s.Key, s.Data, r.Data)
			return r
		}
		r.Data = v
	case StatusFailed:
		r.IsError = true
		r.Err = s.Err
	default:
		r.IsLoading = true
	}
	return r
}

// Typed adapts a typed loader to a Fetcher.
func Typed[T any](fn func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}
