// Package prefetch runs a transform over partitions of a collection in
// parallel and reassembles the outputs in the original order.
//
// The coordinator splits the input into exactly n partitions, hands each
// partition to an independently scheduled worker, and collects result
// envelopes over one bounded channel. Arrival order is never trusted:
// every envelope is tagged with its partition index and outputs are
// concatenated in index order only after all workers have reported
// completion.
//
// Two worker variants share the coordinator algorithm:
//
//   - ModeGoroutine runs workers as goroutines in the host process. Suited
//     to I/O-bound transforms.
//   - ModeSubprocess re-executes the current binary once per partition and
//     moves partitions and results over stdin/stdout as gob. Suited to
//     CPU-bound transforms that benefit from process isolation. Transforms
//     must be registered by name (RegisterTask) and binaries must call
//     WorkerMain early in main.
//
// Any worker error aborts the run: remaining workers are terminated and
// joined before the original error is returned; partial results are never
// returned.
package prefetch
