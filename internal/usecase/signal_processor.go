package usecase

import (
	"context"
	"fmt"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
)

// SignalProcessor routes live signals to the configured backend: the Kafka
// topic or the raw-signal table directly.
type SignalProcessor struct {
	pub     drepo.Publisher
	store   drepo.SignalStore
	metrics drepo.Metrics
	backend string
}

// NewSignalProcessor creates a new SignalProcessor instance.
func NewSignalProcessor(pub drepo.Publisher, store drepo.SignalStore, metrics drepo.Metrics, backend string) *SignalProcessor {
	return &SignalProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process routes a single signal to the configured backend.
func (p *SignalProcessor) Process(ctx context.Context, s *models.RawSignal) error {
	if s == nil {
		return fmt.Errorf("signal is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, []models.RawSignal{*s})
	case "clickhouse":
		err = p.store.StoreRaw(ctx, []models.RawSignal{*s})
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process signal: %w", err)
	}

	p.metrics.RecordSignalsCollected(s.Platform, 1)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple signals in one backend call.
func (p *SignalProcessor) ProcessBatch(ctx context.Context, signals []models.RawSignal) error {
	if len(signals) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, signals)
	case "clickhouse":
		err = p.store.StoreRaw(ctx, signals)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, s := range signals {
		p.metrics.RecordSignalsCollected(s.Platform, 1)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *SignalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
