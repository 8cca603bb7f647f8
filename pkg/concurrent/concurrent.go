// Package concurrent runs per-element work of a sequence on goroutines.
package concurrent

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aframevr/aframe-sub002/pkg/sequence"
)

// ForEach runs action for every element with at most limit goroutines at a
// time (unbounded when limit <= 0). The context passed to action is cancelled
// on the first error, which ForEach returns.
func ForEach[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for v := range i.Seq() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return action(ctx, v)
		})
	}
	return g.Wait()
}

// ParallelMap applies mapFn to every element on up to workers goroutines and
// returns the results in input order.
func ParallelMap[T, R any](i *sequence.Iterator[T], workers int, mapFn func(T) R) []R {
	in := i.Collect()
	out := make([]R, len(in))
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for idx, val := range in {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[idx] = mapFn(val)
		}()
	}
	wg.Wait()
	return out
}
