package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Noesis/internal/domain/models"
	domrepo "Noesis/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, s *models.RawSignal) error
}

// SignalPipeline sits between the live sensor stream and the transport.
// It validates, throttles per platform, optionally transforms, and buffers
// when downstream is unavailable.
type SignalPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.RawSignal
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-platform last accepted time, guarded by mu
	// simple format transform hook (optional)
	transform func(*models.RawSignal) *models.RawSignal
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*SignalPipeline)

// WithMaxRPS sets the max signals per second per platform.
func WithMaxRPS(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to modify the signal format.
func WithTransform(fn func(*models.RawSignal) *models.RawSignal) PipelineOption {
	return func(p *SignalPipeline) { p.transform = fn }
}

// NewSignalPipeline creates a new pipeline.
func NewSignalPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SignalPipeline {
	p := &SignalPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per platform
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.RawSignal, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.RawSignal, p.bufSize)
	}
	// metrics hooks using domain metrics if available
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(platform string) { p.metrics.RecordError("pipeline_throttle_" + platform) }
	return p
}

// Start launches background flushing of buffered signals.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.proc.Process(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a signal downstream, buffering
// on errors.
func (p *SignalPipeline) Process(ctx context.Context, s *models.RawSignal) error {
	start := time.Now()
	if err := validateSignal(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		s = p.transform(s)
		if err := validateSignal(s); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(s.Platform, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(s.Platform)
		}
		return nil
	}

	if err := p.proc.Process(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateSignal(s *models.RawSignal) error {
	if s == nil {
		return fmt.Errorf("signal nil")
	}
	if s.Platform == "" {
		return fmt.Errorf("platform empty")
	}
	if s.Content == "" {
		return fmt.Errorf("content empty")
	}
	return nil
}

func (p *SignalPipeline) allow(platform string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// simple throttle: at most maxRPS accepted per second per platform
	last := p.lastSeen[platform]
	if last.IsZero() {
		p.lastSeen[platform] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[platform] = now
	return true
}
