package prefetch

import (
	"fmt"
	"runtime"
	"time"

	"github.com/wholecell/pipekit/errors"
)

// Mode selects the worker execution primitive.
type Mode string

const (
	// ModeGoroutine runs workers as goroutines sharing the host memory space.
	ModeGoroutine Mode = "goroutine"
	// ModeSubprocess runs each worker as an isolated child process.
	ModeSubprocess Mode = "subprocess"
)

// SplitKind selects the partitioning strategy.
type SplitKind string

const (
	// SplitEven produces near-equal contiguous partitions.
	SplitEven SplitKind = "even"
	// SplitStride produces fixed-stride partitions.
	SplitStride SplitKind = "stride"
)

// DefaultQueueSize bounds how many unread result envelopes may accumulate
// between workers and the coordinator.
const DefaultQueueSize = 1000

// Options configures a prefetch run.
type Options struct {
	// Workers is the partition and worker count. Defaults to GOMAXPROCS.
	Workers int
	// Mode selects goroutine or subprocess workers. Defaults to ModeGoroutine.
	Mode Mode
	// Split selects the partitioning strategy. Defaults to SplitEven.
	Split SplitKind
	// QueueSize is the result channel capacity. Defaults to DefaultQueueSize.
	// Workers block sending into a full queue.
	QueueSize int
	// WaitTimeout bounds how long the coordinator waits between envelopes.
	// A worker that dies without surfacing an error would otherwise hang
	// the run forever. Zero disables the bound.
	WaitTimeout time.Duration
	// Task names the registered transform for ModeSubprocess. Ignored for
	// ModeGoroutine.
	Task string
	// Observer receives run lifecycle notifications. Defaults to a logging
	// and metrics observer.
	Observer Observer
}

// ApplyDefaults applies default values to the options.
func (o *Options) ApplyDefaults() {
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Mode == "" {
		o.Mode = ModeGoroutine
	}
	if o.Split == "" {
		o.Split = SplitEven
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.Observer == nil {
		o.Observer = defaultObserver()
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.Workers < 1 {
		return errors.InvalidInput(fmt.Sprintf("prefetch: workers must be >= 1 (got: %d)", o.Workers))
	}
	if o.Mode != ModeGoroutine && o.Mode != ModeSubprocess {
		return errors.InvalidInput(fmt.Sprintf("prefetch: mode must be %q or %q (got: %q)", ModeGoroutine, ModeSubprocess, o.Mode))
	}
	if o.Split != SplitEven && o.Split != SplitStride {
		return errors.InvalidInput(fmt.Sprintf("prefetch: split must be %q or %q (got: %q)", SplitEven, SplitStride, o.Split))
	}
	if o.Mode == ModeSubprocess && o.Task == "" {
		return errors.InvalidInput("prefetch: subprocess mode requires a registered task name")
	}
	return nil
}
