package prefetch

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/wholecell/pipekit/errors"
)

func anyIdentity(_ context.Context, items []any) ([]any, error) {
	return items, nil
}

func TestCollect_Flat(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}
	got, err := Collect(context.Background(), func(_ context.Context, items []any) ([]any, error) {
		out := make([]any, len(items))
		for i, v := range items {
			out[i] = v.(int) * 2
		}
		return out, nil
	}, data, CollectOptions{Options: Options{Workers: 3}, Kind: KindFlat})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{0, 2, 4, 6, 8, 10, 12, 14}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_Chunks(t *testing.T) {
	data := []string{"a", "b", "c", "d"}
	got, err := Collect(context.Background(), anyIdentity, data, CollectOptions{
		Options: Options{Workers: 2},
		Kind:    KindChunks,
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks, ok := got.([][]any)
	if !ok {
		t.Fatalf("result is %T, want [][]any", got)
	}
	want := [][]any{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("got %v, want %v", chunks, want)
	}
}

func TestCollect_Matrix(t *testing.T) {
	rows := [][]float64{{0, 1}, {2, 3}, {4, 5}, {6, 7}}
	got, err := Collect(context.Background(), anyIdentity, rows, CollectOptions{
		Options: Options{Workers: 2},
		Kind:    KindMatrix,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{
		[]float64{0, 1}, []float64{2, 3}, []float64{4, 5}, []float64{6, 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_MatrixTypeMismatchFailsFast(t *testing.T) {
	var calls atomic.Int32
	spy := func(_ context.Context, items []any) ([]any, error) {
		calls.Add(1)
		return items, nil
	}

	_, err := Collect(context.Background(), spy, []int{1, 2, 3}, CollectOptions{
		Options: Options{Workers: 2},
		Kind:    KindMatrix,
	})
	if err == nil {
		t.Fatal("expected type mismatch")
	}
	if !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("transform was called %d times before validation failed", calls.Load())
	}
}

func TestCollect_MapUsesValues(t *testing.T) {
	data := map[string]int{"c": 30, "a": 10, "b": 20}
	got, err := Collect(context.Background(), anyIdentity, data, CollectOptions{
		Options: Options{Workers: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Values ordered by key; key information is discarded.
	want := []any{10, 20, 30}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_UnsupportedInput(t *testing.T) {
	var calls atomic.Int32
	spy := func(_ context.Context, items []any) ([]any, error) {
		calls.Add(1)
		return items, nil
	}

	for _, data := range []any{42, "text", nil, struct{}{}} {
		_, err := Collect(context.Background(), spy, data, CollectOptions{})
		if err == nil {
			t.Errorf("input %T: expected error", data)
			continue
		}
		if !errors.HasCode(err, errors.ErrCodeUnsupportedInput) {
			t.Errorf("input %T: unexpected error %v", data, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("transform was called %d times on invalid input", calls.Load())
	}
}

func TestCollect_BadKind(t *testing.T) {
	_, err := Collect(context.Background(), anyIdentity, []int{1}, CollectOptions{Kind: "tensor"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
