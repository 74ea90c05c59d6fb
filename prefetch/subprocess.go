package prefetch

import (
	"bytes"
	"context"
	"encoding/gob"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wholecell/pipekit/errors"
)

const (
	taskEnv     = "PIPEKIT_PREFETCH_TASK"
	workerIDEnv = "PIPEKIT_PREFETCH_WORKER_ID"

	// killGracePeriod is how long a terminated worker gets between SIGTERM
	// and SIGKILL.
	killGracePeriod = 5 * time.Second
)

// taskRunner executes a registered transform inside a worker process,
// decoding the partition from stdin and encoding the result to stdout.
type taskRunner func(workerID int, stdin io.Reader, stdout io.Writer) error

var (
	tasksMu sync.RWMutex
	tasks   = make(map[string]taskRunner)
)

// procResult is the gob wire format between a worker process and the
// coordinator. Errors cross the process boundary as strings.
type procResult[O any] struct {
	Items []O
	Err   string
}

// RegisterTask registers a transform for subprocess execution. Closures
// cannot cross a process boundary, so subprocess-mode transforms are named
// and looked up in the child after re-exec. Input and output element types
// must be gob-encodable. Register tasks from init or early in main, before
// WorkerMain runs.
func RegisterTask[I, O any](name string, fn IndexedFunc[I, O]) {
	if name == "" {
		panic("prefetch: task name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("prefetch: task %q function must not be nil", name))
	}

	tasksMu.Lock()
	defer tasksMu.Unlock()

	if _, dup := tasks[name]; dup {
		panic(fmt.Sprintf("prefetch: task %q already registered", name))
	}
	tasks[name] = func(workerID int, stdin io.Reader, stdout io.Writer) error {
		var items []I
		if err := gob.NewDecoder(stdin).Decode(&items); err != nil {
			return fmt.Errorf("decoding partition: %w", err)
		}

		out, err := fn(context.Background(), workerID, items)
		res := procResult[O]{Items: out}
		if err != nil {
			res.Err = err.Error()
		}
		return gob.NewEncoder(stdout).Encode(res)
	}
}

// WorkerMain checks whether this process was started as a prefetch worker
// and, if so, runs the task and exits. Binaries that enable subprocess mode
// must call it at the top of main, after task registration.
func WorkerMain() {
	name := os.Getenv(taskEnv)
	if name == "" {
		return
	}
	id, _ := strconv.Atoi(os.Getenv(workerIDEnv))

	tasksMu.RLock()
	runner, ok := tasks[name]
	tasksMu.RUnlock()

	if !ok {
		fmt.Fprintf(os.Stderr, "prefetch: unknown task %q\n", name)
		os.Exit(2)
	}
	if err := runner(id, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "prefetch: task %q: %v\n", name, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// subprocessSpawner runs each worker as a re-exec of the current binary.
// One goroutine per worker feeds the partition over stdin and pumps the
// decoded result into the shared envelope channel.
type subprocessSpawner[I, O any] struct {
	task string
	wg   sync.WaitGroup
}

func newSubprocessSpawner[I, O any](task string) (*subprocessSpawner[I, O], error) {
	tasksMu.RLock()
	_, ok := tasks[task]
	tasksMu.RUnlock()

	if !ok {
		return nil, errors.InvalidInput(fmt.Sprintf("prefetch: task %q not registered", task))
	}
	return &subprocessSpawner[I, O]{task: task}, nil
}

func (s *subprocessSpawner[I, O]) spawn(ctx context.Context, p Partition[I], ch chan<- envelope[O]) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		items, err := s.runWorker(ctx, p)
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

func (s *subprocessSpawner[I, O]) join() {
	s.wg.Wait()
}

func (s *subprocessSpawner[I, O]) runWorker(ctx context.Context, p Partition[I]) ([]O, error) {
	var input bytes.Buffer
	if err := gob.NewEncoder(&input).Encode(p.Items); err != nil {
		return nil, fmt.Errorf("encoding partition %d: %w", p.Index, err)
	}

	cmd := exec.CommandContext(ctx, os.Args[0]) //nolint:gosec // re-exec of self is the point
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%s", taskEnv, s.task),
		fmt.Sprintf("%s=%d", workerIDEnv, p.Index),
	)
	cmd.Stdin = &input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Use a process group so termination reaches the whole tree, and give
	// workers SIGTERM before SIGKILL.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = killGracePeriod

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("worker process for partition %d: %w: %s", p.Index, err, msg)
		}
		return nil, fmt.Errorf("worker process for partition %d: %w", p.Index, err)
	}

	var res procResult[O]
	if err := gob.NewDecoder(&stdout).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding result for partition %d: %w", p.Index, err)
	}
	if res.Err != "" {
		return nil, stderrors.New(res.Err)
	}
	return res.Items, nil
}
