package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Noesis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProc struct {
	mu  sync.Mutex
	n   int
	err error
}

func (p *countingProc) Process(_ context.Context, _ *models.RawSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.n++
	return nil
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalsCollected(string, int) {}
func (nopMetrics) RecordIncidentFormed(string)        {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordLocationRisk(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)      {}

func signal(platform string) *models.RawSignal {
	return &models.RawSignal{Platform: platform, Content: "crowd forming"}
}

func TestPipelineRejectsInvalidSignals(t *testing.T) {
	proc := &countingProc{}
	p := NewSignalPipeline(proc, nopMetrics{})

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.RawSignal{Content: "x"}))
	assert.Error(t, p.Process(context.Background(), &models.RawSignal{Platform: "rss"}))
	assert.Zero(t, proc.count())
}

func TestPipelineThrottlesPerPlatform(t *testing.T) {
	proc := &countingProc{}
	p := NewSignalPipeline(proc, nopMetrics{}, WithMaxRPS(1))

	require.NoError(t, p.Process(context.Background(), signal("twitter")))
	// Second signal inside the same second is dropped without error.
	require.NoError(t, p.Process(context.Background(), signal("twitter")))
	assert.Equal(t, 1, proc.count())

	// The throttle state is per platform.
	require.NoError(t, p.Process(context.Background(), signal("telegram")))
	assert.Equal(t, 2, proc.count())
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{err: errors.New("backend down")}
	p := NewSignalPipeline(proc, nopMetrics{}, WithBufferSize(4))

	err := p.Process(context.Background(), signal("twitter"))
	require.Error(t, err)
	assert.Equal(t, 1, len(p.bufCh))
}

func TestPipelineThrottleConcurrent(t *testing.T) {
	proc := &countingProc{}
	p := NewSignalPipeline(proc, nopMetrics{})

	var wg sync.WaitGroup
	for _, platform := range []string{"twitter", "telegram"} {
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(platform string) {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					_ = p.Process(context.Background(), signal(platform))
				}
			}(platform)
		}
	}
	wg.Wait()

	// The first signal per platform always passes; the rest depend on timing.
	assert.GreaterOrEqual(t, proc.count(), 2)
	assert.LessOrEqual(t, proc.count(), 400)
}
