package prefetch

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/wholecell/pipekit/errors"
	"github.com/wholecell/pipekit/logger"
)

// Kind declares the shape of a Collect result.
type Kind string

const (
	// KindFlat returns the per-partition outputs flattened into one []any.
	KindFlat Kind = "flat"
	// KindMatrix is KindFlat for row-major numeric data: the input must be
	// a collection of rows (slices), and per-partition output rows are
	// concatenated along the first axis.
	KindMatrix Kind = "matrix"
	// KindChunks returns the raw per-partition outputs as [][]any.
	KindChunks Kind = "chunks"
)

// CollectOptions configures a Collect run.
type CollectOptions struct {
	Options
	// Kind declares the result shape. Defaults to KindFlat.
	Kind Kind
}

// Collect is the loosely-typed entry point for config-driven callers that
// receive their input as any. The input must be a slice, an array, or a
// map; maps contribute only their values (ordered by formatted key, since
// Go maps carry no insertion order) and a warning is logged because key
// information is discarded. All validation happens before any worker is
// spawned.
//
// Typed callers should prefer Run, RunChunks, or RunIndexed.
func Collect(ctx context.Context, fn Func[any, any], data any, opts CollectOptions) (any, error) {
	if opts.Kind == "" {
		opts.Kind = KindFlat
	}
	if opts.Kind != KindFlat && opts.Kind != KindMatrix && opts.Kind != KindChunks {
		return nil, errors.InvalidInput(fmt.Sprintf("prefetch: kind must be one of [%s %s %s] (got: %q)", KindFlat, KindMatrix, KindChunks, opts.Kind))
	}

	elems, err := elements(data, opts.Kind)
	if err != nil {
		return nil, err
	}

	chunks, err := run(ctx, ignoreWorkerID(fn), elems, opts.Options)
	if err != nil {
		return nil, err
	}
	if opts.Kind == KindChunks {
		return chunks, nil
	}
	return flatten(chunks), nil
}

// elements validates the input and extracts its elements. Fails fast with
// zero side effects: no worker is observable before this returns.
func elements(data any, kind Kind) ([]any, error) {
	if data == nil {
		return nil, errors.UnsupportedInput("nil")
	}

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]any, v.Len())
		for i := range v.Len() {
			elems[i] = v.Index(i).Interface()
		}
		if kind == KindMatrix {
			if err := checkRows(elems); err != nil {
				return nil, err
			}
		}
		return elems, nil

	case reflect.Map:
		logger.WithComponent("prefetch").Warn(
			"input is a map: using only its values and disregarding keys",
			logger.Fields("type", fmt.Sprintf("%T", data)),
		)
		elems := mapValues(v)
		if kind == KindMatrix {
			if err := checkRows(elems); err != nil {
				return nil, err
			}
		}
		return elems, nil

	default:
		return nil, errors.UnsupportedInput(fmt.Sprintf("%T", data))
	}
}

// checkRows enforces the matrix contract: every element must itself be a
// slice or array.
func checkRows(elems []any) error {
	for _, e := range elems {
		k := reflect.ValueOf(e).Kind()
		if k != reflect.Slice && k != reflect.Array {
			return errors.TypeMismatch("matrix (collection of rows)", fmt.Sprintf("element of type %T", e))
		}
	}
	return nil
}

// mapValues extracts map values ordered by the formatted key.
func mapValues(v reflect.Value) []any {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	elems := make([]any, 0, len(keys))
	for _, k := range keys {
		elems = append(elems, v.MapIndex(k).Interface())
	}
	return elems
}
