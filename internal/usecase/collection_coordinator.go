package usecase

import (
	"context"
	"sync"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	"Noesis/pkg/logger"
)

// SourceError pairs a collector name with the error it returned.
type SourceError struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// CycleTally summarizes one collection fan-out: per-source counts, failures,
// and wall time. Failed sources appear in Failures with a zero count; the
// cycle itself never fails because a source did.
type CycleTally struct {
	Collected map[string]int `json:"collected"`
	Failures  []SourceError  `json:"failures"`
	Total     int            `json:"total"`
	Duration  time.Duration  `json:"duration"`
}

// CollectionCoordinator fans one collection cycle out across all registered
// collectors, one goroutine per source, and merges results under a mutex.
// Result ordering across sources is therefore nondeterministic; downstream
// consumers must not depend on it.
type CollectionCoordinator struct {
	collectors []drepo.Collector
	timeout    time.Duration
	metrics    drepo.Metrics
	log        *logger.Logger
}

// NewCollectionCoordinator wires the coordinator. A zero timeout disables the
// per-source deadline.
func NewCollectionCoordinator(collectors []drepo.Collector, timeout time.Duration, metrics drepo.Metrics, log *logger.Logger) *CollectionCoordinator {
	return &CollectionCoordinator{
		collectors: collectors,
		timeout:    timeout,
		metrics:    metrics,
		log:        log,
	}
}

// Sources returns the registered collector names in registration order.
func (c *CollectionCoordinator) Sources() []string {
	names := make([]string, 0, len(c.collectors))
	for _, col := range c.collectors {
		names = append(names, col.Name())
	}
	return names
}

// Collect runs every registered collector concurrently and merges their
// output. Per-source failures are recorded in the tally and do not abort the
// remaining sources. There is no retry; a failed source contributes nothing
// until the next cycle.
func (c *CollectionCoordinator) Collect(ctx context.Context) ([]models.RawSignal, CycleTally) {
	return c.collect(ctx, nil)
}

// CollectFrom runs only the named sources. Unknown names are ignored. An
// empty list means all sources.
func (c *CollectionCoordinator) CollectFrom(ctx context.Context, sources []string) ([]models.RawSignal, CycleTally) {
	if len(sources) == 0 {
		return c.collect(ctx, nil)
	}
	wanted := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		wanted[s] = struct{}{}
	}
	return c.collect(ctx, wanted)
}

func (c *CollectionCoordinator) collect(ctx context.Context, wanted map[string]struct{}) ([]models.RawSignal, CycleTally) {
	start := time.Now()

	tally := CycleTally{Collected: make(map[string]int)}
	merged := make([]models.RawSignal, 0, 64)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, col := range c.collectors {
		if wanted != nil {
			if _, ok := wanted[col.Name()]; !ok {
				continue
			}
		}

		wg.Add(1)
		go func(col drepo.Collector) {
			defer wg.Done()

			collectCtx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				collectCtx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}

			signals, err := col.Collect(collectCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				tally.Failures = append(tally.Failures, SourceError{Source: col.Name(), Err: err})
				tally.Collected[col.Name()] = 0
				if c.metrics != nil {
					c.metrics.RecordError("collect_" + col.Name())
				}
				if c.log != nil {
					c.log.Warn("collector failed",
						logger.String("source", col.Name()),
						logger.Error(err))
				}
				return
			}
			merged = append(merged, signals...)
			tally.Collected[col.Name()] = len(signals)
			if c.metrics != nil {
				c.metrics.RecordSignalsCollected(col.Name(), len(signals))
			}
		}(col)
	}
	wg.Wait()

	tally.Total = len(merged)
	tally.Duration = time.Since(start)

	if c.log != nil {
		c.log.Info("collection cycle finished",
			logger.Int("signals", tally.Total),
			logger.Int("failed_sources", len(tally.Failures)),
			logger.Duration("took", tally.Duration))
	}
	return merged, tally
}
