package prefetch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wholecell/pipekit/errors"
)

// Func transforms one partition of the input into its outputs.
type Func[I, O any] func(ctx context.Context, items []I) ([]O, error)

// IndexedFunc is a Func that additionally receives the partition index as a
// worker ID, for per-worker side effects such as seeding or file naming.
type IndexedFunc[I, O any] func(ctx context.Context, workerID int, items []I) ([]O, error)

// envelope carries one worker message: a result tagged with its partition
// index, a failure, or a completion marker. Each worker emits exactly one
// result envelope followed by one completion marker on its success path.
type envelope[O any] struct {
	index int
	items []O
	err   error
	done  bool
}

// Run applies fn to each partition of data across parallel workers and
// returns the flattened outputs in original element order, equivalent to a
// single fn call over the whole collection when fn is chunk-order
// independent.
//
// In ModeSubprocess the transform executed in the child is the task
// registered under Options.Task; fn is not called in the parent.
func Run[I, O any](ctx context.Context, fn Func[I, O], data []I, opts Options) ([]O, error) {
	chunks, err := run(ctx, ignoreWorkerID(fn), data, opts)
	if err != nil {
		return nil, err
	}
	return flatten(chunks), nil
}

// RunChunks is Run without the final flattening: it returns the raw
// per-partition outputs, ordered by partition index.
func RunChunks[I, O any](ctx context.Context, fn Func[I, O], data []I, opts Options) ([][]O, error) {
	return run(ctx, ignoreWorkerID(fn), data, opts)
}

// RunIndexed is Run for transforms that want their partition index.
func RunIndexed[I, O any](ctx context.Context, fn IndexedFunc[I, O], data []I, opts Options) ([]O, error) {
	chunks, err := run(ctx, fn, data, opts)
	if err != nil {
		return nil, err
	}
	return flatten(chunks), nil
}

func ignoreWorkerID[I, O any](fn Func[I, O]) IndexedFunc[I, O] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, _ int, items []I) ([]O, error) {
		return fn(ctx, items)
	}
}

func flatten[O any](chunks [][]O) []O {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]O, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func run[I, O any](ctx context.Context, fn IndexedFunc[I, O], data []I, opts Options) ([][]O, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if fn == nil && opts.Mode == ModeGoroutine {
		return nil, errors.InvalidInput("prefetch: transform function must not be nil")
	}

	runID := uuid.NewString()
	parts := split(data, opts.Workers, opts.Split)

	tracer := otel.Tracer(instrumentationName)
	ctx, span := tracer.Start(ctx, "prefetch.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("mode", string(opts.Mode)),
		attribute.Int("workers", opts.Workers),
		attribute.Int("items", len(data)),
	))
	defer span.End()

	opts.Observer.RunStarted(ctx, runID, opts.Mode, opts.Workers, len(data))
	start := time.Now()

	out, err := collect(ctx, runID, fn, parts, opts)

	opts.Observer.RunFinished(ctx, runID, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// collect spawns one worker per partition and gathers envelopes until all
// completion markers arrive. Results are buffered by partition index, never
// by arrival order. On any failure the run context is cancelled and every
// worker is joined before the error is returned; partial results are
// discarded.
func collect[I, O any](ctx context.Context, runID string, fn IndexedFunc[I, O], parts []Partition[I], opts Options) ([][]O, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan envelope[O], opts.QueueSize)

	var sp spawner[I, O]
	switch opts.Mode {
	case ModeSubprocess:
		var err error
		sp, err = newSubprocessSpawner[I, O](opts.Task)
		if err != nil {
			return nil, err
		}
	default:
		sp = newGoroutineSpawner(fn)
	}

	for _, p := range parts {
		sp.spawn(runCtx, p, ch)
	}

	abort := func() {
		cancel()
		sp.join()
	}

	var timer *time.Timer
	var timeout <-chan time.Time
	if opts.WaitTimeout > 0 {
		timer = time.NewTimer(opts.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	gather := make([][]O, len(parts))
	done := 0

	for done < len(parts) {
		select {
		case env := <-ch:
			if env.err != nil {
				abort()
				return nil, errors.WorkerFailure(env.index, env.err)
			}
			if env.done {
				done++
			} else {
				gather[env.index] = env.items
				opts.Observer.PartitionDone(ctx, runID, env.index, len(env.items))
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(opts.WaitTimeout)
			}
		case <-timeout:
			abort()
			return nil, errors.Timeout("prefetch")
		case <-ctx.Done():
			abort()
			return nil, ctx.Err()
		}
	}

	sp.join()
	return gather, nil
}
