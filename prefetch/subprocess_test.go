package prefetch

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/wholecell/pipekit/errors"
)

// Subprocess-mode tests re-exec the test binary: TestMain registers the
// tasks and calls WorkerMain before running any test.

func TestSubprocess_Double(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}
	got, err := Run[int, int](context.Background(), nil, data, Options{
		Workers: 3,
		Mode:    ModeSubprocess,
		Task:    "test.double",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 4, 6, 8, 10, 12, 14}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSubprocess_WorkerErrorPropagates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	data := make([]int, 32)
	_, err := Run[int, int](context.Background(), nil, data, Options{
		Workers: 4,
		Mode:    ModeSubprocess,
		Task:    "test.fail-on-three",
	})
	if err == nil {
		t.Fatal("expected error from worker process")
	}
	if !errors.HasCode(err, errors.ErrCodeWorkerFailure) {
		t.Errorf("error code = %s, want WORKER_FAILURE", errors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "partition three is cursed") {
		t.Errorf("original message lost: %v", err)
	}
}

func TestSubprocess_UnregisteredTask(t *testing.T) {
	_, err := Run[int, int](context.Background(), nil, []int{1}, Options{
		Workers: 1,
		Mode:    ModeSubprocess,
		Task:    "test.nope",
	})
	if err == nil {
		t.Fatal("expected error for unregistered task")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %s, want INVALID_INPUT", errors.CodeOf(err))
	}
}

func TestRegisterTask_Duplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate task registration should panic")
		}
	}()
	RegisterTask[int, int]("test.double", func(_ context.Context, _ int, items []int) ([]int, error) {
		return items, nil
	})
}
