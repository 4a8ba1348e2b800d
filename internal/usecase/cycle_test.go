package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	"Noesis/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnnotator struct {
	relevance float64
	sentiment float64
	failOn    string
}

func (a *fakeAnnotator) Annotate(raw models.RawSignal) (models.AnnotatedSignal, error) {
	if a.failOn != "" && raw.Content == a.failOn {
		return models.AnnotatedSignal{}, errors.New("scoring failed")
	}
	return models.AnnotatedSignal{
		Platform:       raw.Platform,
		Content:        raw.Content,
		Link:           raw.Link,
		RelevanceScore: a.relevance,
		SentimentScore: a.sentiment,
		Timestamp:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}, nil
}

type fakeIncidentStore struct {
	saved   []models.Incident
	saveErr error
}

func (s *fakeIncidentStore) Save(_ context.Context, incidents []models.Incident) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, incidents...)
	return nil
}

func (s *fakeIncidentStore) Query(_ context.Context, _ drepo.IncidentFilter) ([]models.Incident, error) {
	return s.saved, nil
}

func (s *fakeIncidentStore) Health(_ context.Context) error { return nil }
func (s *fakeIncidentStore) Close() error                   { return nil }

type fakeSignalStore struct {
	raw       []models.RawSignal
	annotated []models.AnnotatedSignal
}

func (s *fakeSignalStore) StoreRaw(_ context.Context, signals []models.RawSignal) error {
	s.raw = append(s.raw, signals...)
	return nil
}

func (s *fakeSignalStore) StoreAnnotated(_ context.Context, signals []models.AnnotatedSignal) error {
	s.annotated = append(s.annotated, signals...)
	return nil
}

func (s *fakeSignalStore) Close() error { return nil }

type fakeNotifier struct {
	sent []models.Incident
	err  error
}

func (n *fakeNotifier) BroadcastIncident(_ context.Context, incident models.Incident) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, incident)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalsCollected(string, int) {}
func (nopMetrics) RecordIncidentFormed(string)        {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordLocationRisk(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)      {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestCycle(t *testing.T, collectors []drepo.Collector, annotator drepo.Annotator, store *fakeIncidentStore, notifier *fakeNotifier) *Cycle {
	t.Helper()
	log := testLogger(t)
	coord := NewCollectionCoordinator(collectors, 0, nopMetrics{}, log)
	formation := NewIncidentFormation(nil, nil)
	return NewCycle(coord, annotator, formation, nil, nil, store, notifier, nopMetrics{}, log)
}

func TestCycleRunFormsAndStoresIncidents(t *testing.T) {
	store := &fakeIncidentStore{}
	notifier := &fakeNotifier{}
	cycle := newTestCycle(t,
		[]drepo.Collector{
			&fakeCollector{name: "gnews", signals: rawSignals("gnews", 2)},
			&fakeCollector{name: "rss", signals: rawSignals("rss", 1)},
		},
		&fakeAnnotator{relevance: 0.6, sentiment: -0.5},
		store, notifier)

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Tally.Total)
	require.NotEmpty(t, result.Incidents)
	assert.Equal(t, len(result.Incidents), len(store.saved))
}

func TestCycleEmptyCollection(t *testing.T) {
	store := &fakeIncidentStore{}
	cycle := newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews"}},
		&fakeAnnotator{relevance: 0.6},
		store, &fakeNotifier{})

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Incidents)
	assert.Empty(t, store.saved)
}

func TestCycleAnnotationFailureYieldsNeutralSignal(t *testing.T) {
	store := &fakeIncidentStore{}
	signals := rawSignals("gnews", 2)
	signals[1].Content = "poison"

	cycle := newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews", signals: signals}},
		&fakeAnnotator{relevance: 0.6, failOn: "poison"},
		store, &fakeNotifier{})

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	// The failed signal scores zero relevance and is gated out, so only one
	// signal survives into a singleton incident.
	require.Len(t, result.Incidents, 1)
	assert.Equal(t, 1, result.Incidents[0].SourceCount)
}

func TestCycleNeutralSignalKeepsReportedTime(t *testing.T) {
	signals := rawSignals("rss", 1)
	signals[0].Content = "poison"
	signals[0].Timestamp = "Sat, 14 Mar 2026 12:00:00 UTC"

	store := &fakeSignalStore{}
	log := testLogger(t)
	coord := NewCollectionCoordinator(
		[]drepo.Collector{&fakeCollector{name: "rss", signals: signals}}, 0, nopMetrics{}, log)
	cycle := NewCycle(coord, &fakeAnnotator{failOn: "poison"}, NewIncidentFormation(nil, nil),
		nil, store, &fakeIncidentStore{}, nil, nopMetrics{}, log)

	_, err := cycle.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.annotated, 1)

	// The neutral fallback keeps platform, link, and the reported time even
	// for layouts beyond RFC 3339.
	got := store.annotated[0]
	assert.Zero(t, got.RelevanceScore)
	assert.Equal(t, "rss", got.Platform)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), got.Timestamp)
}

func TestCycleSaveFailureStillReturnsIncidents(t *testing.T) {
	store := &fakeIncidentStore{saveErr: errors.New("clickhouse down")}
	cycle := newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews", signals: rawSignals("gnews", 2)}},
		&fakeAnnotator{relevance: 0.6},
		store, &fakeNotifier{})

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Incidents)
	assert.Empty(t, store.saved)
}

func TestCycleAlertGate(t *testing.T) {
	notifier := &fakeNotifier{}
	// Strongly negative sentiment yields a high/verified incident, which
	// passes the alert gate.
	cycle := newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews", signals: rawSignals("gnews", 1)}},
		&fakeAnnotator{relevance: 0.6, sentiment: -0.9},
		&fakeIncidentStore{}, notifier)

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Alerted)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.SeverityHigh, notifier.sent[0].Severity)

	// A lone neutral signal is low/unverified and must not alert.
	notifier2 := &fakeNotifier{}
	cycle = newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews", signals: rawSignals("gnews", 1)}},
		&fakeAnnotator{relevance: 0.6, sentiment: 0},
		&fakeIncidentStore{}, notifier2)

	result, err = cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Alerted)
	assert.Empty(t, notifier2.sent)
}

func TestCycleNotifierFailureDoesNotAbort(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("telegram 502")}
	cycle := newTestCycle(t,
		[]drepo.Collector{&fakeCollector{name: "gnews", signals: rawSignals("gnews", 1)}},
		&fakeAnnotator{relevance: 0.6, sentiment: -0.9},
		&fakeIncidentStore{}, notifier)

	result, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Alerted)
	assert.NotEmpty(t, result.Incidents)
}
