package prefetch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wholecell/pipekit/logger"
)

// Observer receives run lifecycle notifications. It replaces the progress
// prints of earlier pipeline tooling with an injectable hook.
type Observer interface {
	RunStarted(ctx context.Context, runID string, mode Mode, workers, items int)
	PartitionDone(ctx context.Context, runID string, index, items int)
	RunFinished(ctx context.Context, runID string, elapsed time.Duration, err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, string, Mode, int, int)       {}
func (NopObserver) PartitionDone(context.Context, string, int, int)          {}
func (NopObserver) RunFinished(context.Context, string, time.Duration, error) {}

func defaultObserver() Observer {
	return multiObserver{
		&logObserver{log: logger.WithComponent("prefetch")},
		getMetricsObserver(),
	}
}

// multiObserver fans notifications out to several observers.
type multiObserver []Observer

func (m multiObserver) RunStarted(ctx context.Context, runID string, mode Mode, workers, items int) {
	for _, o := range m {
		o.RunStarted(ctx, runID, mode, workers, items)
	}
}

func (m multiObserver) PartitionDone(ctx context.Context, runID string, index, items int) {
	for _, o := range m {
		o.PartitionDone(ctx, runID, index, items)
	}
}

func (m multiObserver) RunFinished(ctx context.Context, runID string, elapsed time.Duration, err error) {
	for _, o := range m {
		o.RunFinished(ctx, runID, elapsed, err)
	}
}

// logObserver logs run progress through the shared logger.
type logObserver struct {
	log *logger.Logger
}

func (l *logObserver) RunStarted(_ context.Context, runID string, mode Mode, workers, items int) {
	l.log.Info("start prefetching", logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldMode, string(mode),
		logger.FieldWorkers, workers,
		logger.FieldItems, items,
	))
}

func (l *logObserver) PartitionDone(_ context.Context, runID string, index, items int) {
	l.log.Debug("partition complete", logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldPartition, index,
		logger.FieldItems, items,
	))
}

func (l *logObserver) RunFinished(_ context.Context, runID string, elapsed time.Duration, err error) {
	fields := logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldDuration, elapsed.Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.Error("prefetching failed", fields)
		return
	}
	l.log.Info("prefetching complete", fields)
}

// --- metrics ---

const instrumentationName = "github.com/wholecell/pipekit/prefetch"

var (
	metricsOnce sync.Once
	metricsObs  Observer
)

// getMetricsObserver lazily builds the OpenTelemetry observer against the
// global meter provider. Instrument creation failures degrade to a nop.
func getMetricsObserver() Observer {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		runs, err := meter.Int64Counter("prefetch.runs",
			metric.WithDescription("Number of prefetch runs started"))
		if err != nil {
			metricsObs = NopObserver{}
			return
		}
		items, err := meter.Int64Counter("prefetch.items",
			metric.WithDescription("Number of input items partitioned across workers"))
		if err != nil {
			metricsObs = NopObserver{}
			return
		}
		duration, err := meter.Float64Histogram("prefetch.duration",
			metric.WithDescription("Prefetch run duration"),
			metric.WithUnit("s"))
		if err != nil {
			metricsObs = NopObserver{}
			return
		}

		metricsObs = &metricsObserver{runs: runs, items: items, duration: duration}
	})
	return metricsObs
}

type metricsObserver struct {
	runs     metric.Int64Counter
	items    metric.Int64Counter
	duration metric.Float64Histogram
}

func (m *metricsObserver) RunStarted(ctx context.Context, _ string, mode Mode, _, items int) {
	attrs := metric.WithAttributes(attribute.String("mode", string(mode)))
	m.runs.Add(ctx, 1, attrs)
	m.items.Add(ctx, int64(items), attrs)
}

func (m *metricsObserver) PartitionDone(context.Context, string, int, int) {}

func (m *metricsObserver) RunFinished(ctx context.Context, _ string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.duration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("status", status)))
}
