package prefetch

import (
	"context"
	"fmt"
	"sync"
)

// spawner abstracts the worker execution primitive. Both variants feed the
// same envelope channel and are driven by the same coordinator loop.
type spawner[I, O any] interface {
	// spawn starts one worker for the partition. The worker must emit one
	// result envelope and one completion marker on success, or one error
	// envelope on failure, and must stop sending once ctx is cancelled.
	spawn(ctx context.Context, p Partition[I], ch chan<- envelope[O])
	// join blocks until every spawned worker has exited.
	join()
}

// goroutineSpawner runs workers as goroutines in the host process.
type goroutineSpawner[I, O any] struct {
	fn IndexedFunc[I, O]
	wg sync.WaitGroup
}

func newGoroutineSpawner[I, O any](fn IndexedFunc[I, O]) *goroutineSpawner[I, O] {
	return &goroutineSpawner[I, O]{fn: fn}
}

func (s *goroutineSpawner[I, O]) spawn(ctx context.Context, p Partition[I], ch chan<- envelope[O]) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		items, err := s.apply(ctx, p)
		if err != nil {
			send(ctx, ch, envelope[O]{index: p.Index, err: err})
			return
		}
		if !send(ctx, ch, envelope[O]{index: p.Index, items: items}) {
			return
		}
		send(ctx, ch, envelope[O]{index: p.Index, done: true})
	}()
}

func (s *goroutineSpawner[I, O]) join() {
	s.wg.Wait()
}

// apply invokes the transform with panic recovery so a panicking worker
// surfaces as an error envelope instead of crashing the host process.
func (s *goroutineSpawner[I, O]) apply(ctx context.Context, p Partition[I]) (items []O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return s.fn(ctx, p.Index, p.Items)
}

// send delivers an envelope unless the run has been aborted. Producers may
// block here on a full queue; cancellation unblocks them so join always
// returns.
func send[O any](ctx context.Context, ch chan<- envelope[O], env envelope[O]) bool {
	select {
	case ch <- env:
		return true
	case <-ctx.Done():
		return false
	}
}
