package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	name    string
	signals []models.RawSignal
	err     error
	delay   time.Duration
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(ctx context.Context) ([]models.RawSignal, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.signals, f.err
}

func rawSignals(platform string, n int) []models.RawSignal {
	out := make([]models.RawSignal, n)
	for i := range out {
		out[i] = models.RawSignal{Platform: platform, Content: "signal"}
	}
	return out
}

func TestCollectMergesAllSources(t *testing.T) {
	coord := NewCollectionCoordinator([]drepo.Collector{
		&fakeCollector{name: "gnews", signals: rawSignals("gnews", 3)},
		&fakeCollector{name: "rss", signals: rawSignals("rss", 2)},
	}, 0, nil, nil)

	merged, tally := coord.Collect(context.Background())
	assert.Len(t, merged, 5)
	assert.Equal(t, 5, tally.Total)
	assert.Equal(t, 3, tally.Collected["gnews"])
	assert.Equal(t, 2, tally.Collected["rss"])
	assert.Empty(t, tally.Failures)
}

func TestCollectIsolatesFailures(t *testing.T) {
	coord := NewCollectionCoordinator([]drepo.Collector{
		&fakeCollector{name: "gnews", signals: rawSignals("gnews", 2)},
		&fakeCollector{name: "sensor", err: errors.New("connection refused")},
	}, 0, nil, nil)

	merged, tally := coord.Collect(context.Background())
	assert.Len(t, merged, 2)
	require.Len(t, tally.Failures, 1)
	assert.Equal(t, "sensor", tally.Failures[0].Source)
	assert.EqualError(t, tally.Failures[0].Err, "connection refused")
	assert.Zero(t, tally.Collected["sensor"])
}

func TestCollectFromFiltersSources(t *testing.T) {
	coord := NewCollectionCoordinator([]drepo.Collector{
		&fakeCollector{name: "gnews", signals: rawSignals("gnews", 3)},
		&fakeCollector{name: "rss", signals: rawSignals("rss", 2)},
	}, 0, nil, nil)

	merged, tally := coord.CollectFrom(context.Background(), []string{"rss", "bogus"})
	assert.Len(t, merged, 2)
	assert.Equal(t, 2, tally.Collected["rss"])
	_, ran := tally.Collected["gnews"]
	assert.False(t, ran)
}

func TestCollectTimeoutCountsAsFailure(t *testing.T) {
	coord := NewCollectionCoordinator([]drepo.Collector{
		&fakeCollector{name: "slow", delay: 200 * time.Millisecond, signals: rawSignals("slow", 1)},
		&fakeCollector{name: "fast", signals: rawSignals("fast", 1)},
	}, 20*time.Millisecond, nil, nil)

	merged, tally := coord.Collect(context.Background())
	assert.Len(t, merged, 1)
	require.Len(t, tally.Failures, 1)
	assert.Equal(t, "slow", tally.Failures[0].Source)
}

func TestSources(t *testing.T) {
	coord := NewCollectionCoordinator([]drepo.Collector{
		&fakeCollector{name: "gnews"},
		&fakeCollector{name: "rss"},
	}, 0, nil, nil)
	assert.Equal(t, []string{"gnews", "rss"}, coord.Sources())
}
