package watcher

import (
	"context"
	"iter"
	"slices"
	"time"

	"go.trai.ch/sift/internal/core/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Loop turns a stream of watch events into debounced batches and hands
// them to a callback no more often than once per interval. Batches that
// arrive while the callback runs are merged into the next one.
type Loop struct {
	window  time.Duration
	limiter *rate.Limiter
}

// NewLoop creates a loop with the given debounce window and minimum
// interval between two callbacks.
func NewLoop(window, minInterval time.Duration) *Loop {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Loop{
		window:  window,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run consumes events until the sequence ends or ctx is done. fn is never
// called concurrently with itself.
func (l *Loop) Run(ctx context.Context, events iter.Seq[ports.WatchEvent], fn func(context.Context, []string)) error {
	batches := make(chan []string, 1)
	debouncer := NewDebouncer(l.window, func(paths []string) {
		for {
			select {
			case batches <- paths:
				return
			case prev := <-batches:
				paths = mergePaths(prev, paths)
			}
		}
	})

	done := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		for event := range events {
			if ctx.Err() != nil {
				return nil
			}
			debouncer.Add(event.Path)
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			case paths := <-batches:
				if err := l.limiter.Wait(ctx); err != nil {
					return nil //nolint:nilerr // cancellation ends the loop
				}
				fn(ctx, paths)
			}
		}
	})

	return g.Wait()
}

func mergePaths(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
