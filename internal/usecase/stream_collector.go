package usecase

import (
	"context"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	mid "Noesis/internal/middleware"
)

// StreamCollector consumes the live sensor stream and pushes signals through
// the pipeline into the backend. Runs alongside the batch collection cycle;
// the two paths share the annotation and formation stages downstream.
type StreamCollector struct {
	stream  drepo.SignalStream
	proc    *SignalProcessor
	metrics drepo.Metrics
	pipe    *mid.SignalPipeline
}

// NewStreamCollector creates a new StreamCollector instance.
func NewStreamCollector(stream drepo.SignalStream, proc *SignalProcessor, metrics drepo.Metrics, pipe *mid.SignalPipeline) *StreamCollector {
	return &StreamCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the sensor stream is connected.
func (c *StreamCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	sigCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, sigCh, errCh)
	return nil
}

func (c *StreamCollector) consume(ctx context.Context, sigCh <-chan *models.RawSignal, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-sigCh:
			if s == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, s)
			} else {
				_ = c.proc.Process(ctx, s)
			}
		}
	}
}

func (c *StreamCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying SignalProcessor for lifecycle management.
func (c *StreamCollector) Processor() *SignalProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *StreamCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
