package prefetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wholecell/pipekit/errors"
)

var metricReader *sdkmetric.ManualReader

func TestMain(m *testing.M) {
	RegisterTask("test.double", func(_ context.Context, _ int, items []int) ([]int, error) {
		out := make([]int, len(items))
		for i, v := range items {
			out[i] = v * 2
		}
		return out, nil
	})
	RegisterTask("test.fail-on-three", func(_ context.Context, workerID int, items []int) ([]int, error) {
		if workerID == 3 {
			return nil, stderrors.New("partition three is cursed")
		}
		return items, nil
	})

	// Child processes run the task and exit here.
	WorkerMain()

	metricReader = sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)))

	os.Exit(m.Run())
}

func identity(_ context.Context, items []int) ([]int, error) {
	return items, nil
}

func double(_ context.Context, items []int) ([]int, error) {
	out := make([]int, len(items))
	for i, v := range items {
		out[i] = v * 2
	}
	return out, nil
}

func TestRun_OrderPreservation(t *testing.T) {
	data := make([]int, 100)
	for i := range data {
		data[i] = i
	}
	for _, n := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", n), func(t *testing.T) {
			got, err := Run(context.Background(), identity, data, Options{Workers: n})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, data) {
				t.Errorf("output differs from input: %v", got)
			}
		})
	}
}

func TestRun_OrderIndependentOfArrival(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}
	// Earlier partitions finish last, so arrival order is reversed.
	fn := func(ctx context.Context, workerID int, items []int) ([]int, error) {
		time.Sleep(time.Duration(4-workerID) * 20 * time.Millisecond)
		out := make([]int, len(items))
		for i, v := range items {
			out[i] = v * 2
		}
		return out, nil
	}
	got, err := RunIndexed(context.Background(), fn, data, Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 4, 6, 8, 10, 12, 14}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRun_DoubleScenario(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}
	got, err := Run(context.Background(), double, data, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 4, 6, 8, 10, 12, 14}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRun_IncrementScenario(t *testing.T) {
	data := make([]int, 10)
	for i := range data {
		data[i] = i
	}
	got, err := Run(context.Background(), func(_ context.Context, items []int) ([]int, error) {
		out := make([]int, len(items))
		for i, v := range items {
			out[i] = v + 1
		}
		return out, nil
	}, data, Options{Workers: 4, Split: SplitEven})
	if err != nil {
		t.Fatal(err)
	}
	want := make([]int, 10)
	for i := range want {
		want[i] = i + 1
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRunChunks_RawShape(t *testing.T) {
	data := []int{1, 2, 3, 4, 5, 6}
	chunks, err := RunChunks(context.Background(), identity, data, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{1, 2}, {3, 4}, {5, 6}}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("got %v, want %v", chunks, want)
	}
}

func TestRunIndexed_WorkerID(t *testing.T) {
	data := make([]int, 8)
	ids, err := RunIndexed(context.Background(), func(_ context.Context, workerID int, items []int) ([]int, error) {
		out := make([]int, len(items))
		for i := range items {
			out[i] = workerID
		}
		return out, nil
	}, data, Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 0, 1, 1, 2, 2, 3, 3}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("got %v, want %v", ids, want)
	}
}

func TestRun_FailureTeardown(t *testing.T) {
	data := make([]int, 64)
	cursed := stderrors.New("partition three is cursed")

	var started, finished atomic.Int32
	fn := func(ctx context.Context, workerID int, items []int) ([]int, error) {
		started.Add(1)
		defer finished.Add(1)
		if workerID == 3 {
			return nil, cursed
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return items, nil
	}

	got, err := RunIndexed(context.Background(), fn, data, Options{Workers: 8})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Errorf("partial result returned: %v", got)
	}
	if !stderrors.Is(err, cursed) {
		t.Errorf("original error lost: %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodeWorkerFailure) {
		t.Errorf("error code = %s, want WORKER_FAILURE", errors.CodeOf(err))
	}
	// The coordinator joins all workers before returning.
	if s, f := started.Load(), finished.Load(); s != f {
		t.Errorf("%d workers started but only %d finished before return", s, f)
	}
}

func TestRun_PanicBecomesError(t *testing.T) {
	data := []int{1, 2, 3, 4}
	_, err := Run(context.Background(), func(_ context.Context, items []int) ([]int, error) {
		panic("bad state")
	}, data, Options{Workers: 2})
	if err == nil {
		t.Fatal("expected error from panicking worker")
	}
	if !errors.HasCode(err, errors.ErrCodeWorkerFailure) {
		t.Errorf("error code = %s, want WORKER_FAILURE", errors.CodeOf(err))
	}
}

func TestRun_WaitTimeout(t *testing.T) {
	data := make([]int, 4)
	fn := func(ctx context.Context, items []int) ([]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	start := time.Now()
	_, err := Run(context.Background(), fn, data, Options{Workers: 2, WaitTimeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.HasCode(err, errors.ErrCodeTimeout) {
		t.Errorf("error code = %s, want TIMEOUT", errors.CodeOf(err))
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("teardown took %v", elapsed)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	data := make([]int, 4)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, func(ctx context.Context, items []int) ([]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, data, Options{Workers: 2})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	got, err := Run(context.Background(), double, []int{}, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRun_SmallQueue(t *testing.T) {
	data := make([]int, 200)
	for i := range data {
		data[i] = i
	}
	got, err := Run(context.Background(), identity, data, Options{Workers: 8, QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Error("small queue broke ordering")
	}
}

func TestRun_NilFunc(t *testing.T) {
	_, err := Run[int, int](context.Background(), nil, []int{1}, Options{Workers: 1})
	if err == nil {
		t.Fatal("expected error for nil transform")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %s, want INVALID_INPUT", errors.CodeOf(err))
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{}, false},
		{"negative workers", Options{Workers: -1}, true},
		{"bad mode", Options{Mode: "fiber"}, true},
		{"bad split", Options{Split: "zigzag"}, true},
		{"subprocess without task", Options{Mode: ModeSubprocess}, true},
		{"subprocess with task", Options{Mode: ModeSubprocess, Task: "test.double"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.ApplyDefaults()
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
