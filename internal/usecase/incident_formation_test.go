package usecase

import (
	"context"
	"testing"
	"time"

	"Noesis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	name string
	err  error
}

func (g *stubGeocoder) PlaceName(_ context.Context, _, _ float64) (string, error) {
	return g.name, g.err
}

func ptr(v float64) *float64 { return &v }

func sigAt(platform string, relevance, sentiment float64, ts time.Time) models.AnnotatedSignal {
	return models.AnnotatedSignal{
		Platform:       platform,
		RelevanceScore: relevance,
		SentimentScore: sentiment,
		Timestamp:      ts,
	}
}

func geoSig(platform string, relevance float64, lat, lng float64, ts time.Time) models.AnnotatedSignal {
	s := sigAt(platform, relevance, 0, ts)
	s.Lat = ptr(lat)
	s.Lng = ptr(lng)
	return s
}

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestFormIncidentsRelevanceGate(t *testing.T) {
	f := NewIncidentFormation(nil, nil)

	signals := []models.AnnotatedSignal{
		sigAt("twitter", 0.15, 0, t0), // at the gate, dropped
		sigAt("twitter", 0.10, 0, t0),
	}
	assert.Empty(t, f.FormIncidents(context.Background(), signals))

	signals = append(signals, sigAt("twitter", 0.16, 0, t0))
	incidents := f.FormIncidents(context.Background(), signals)
	require.Len(t, incidents, 1)
	assert.Equal(t, 1, incidents[0].SourceCount)
}

func TestClusterTimeWindow(t *testing.T) {
	within := clusterSignals([]models.AnnotatedSignal{
		sigAt("twitter", 0.5, 0, t0),
		sigAt("twitter", 0.5, 0, t0.Add(60*time.Minute)),
	})
	assert.Len(t, within, 1)

	beyond := clusterSignals([]models.AnnotatedSignal{
		sigAt("twitter", 0.5, 0, t0),
		sigAt("twitter", 0.5, 0, t0.Add(61*time.Minute)),
	})
	assert.Len(t, beyond, 2)
}

func TestClusterDistance(t *testing.T) {
	// Berlin to Leipzig is about 150 km; Berlin to Munich about 500 km.
	near := clusterSignals([]models.AnnotatedSignal{
		geoSig("twitter", 0.5, 52.52, 13.40, t0),
		geoSig("reddit", 0.5, 51.34, 12.37, t0.Add(10*time.Minute)),
	})
	assert.Len(t, near, 1)

	far := clusterSignals([]models.AnnotatedSignal{
		geoSig("twitter", 0.5, 52.52, 13.40, t0),
		geoSig("twitter", 0.5, 48.14, 11.58, t0.Add(10*time.Minute)),
	})
	assert.Len(t, far, 2)
}

func TestClusterPlatformFallback(t *testing.T) {
	// One side lacks coordinates; platform equality decides.
	mixed := clusterSignals([]models.AnnotatedSignal{
		geoSig("twitter", 0.5, 52.52, 13.40, t0),
		sigAt("twitter", 0.5, 0, t0.Add(5*time.Minute)),
		sigAt("reddit", 0.5, 0, t0.Add(5*time.Minute)),
	})
	assert.Len(t, mixed, 2)
}

func TestZeroTimestampNeverClusters(t *testing.T) {
	clusters := clusterSignals([]models.AnnotatedSignal{
		sigAt("twitter", 0.5, 0, time.Time{}),
		sigAt("twitter", 0.5, 0, time.Time{}),
	})
	assert.Len(t, clusters, 2)
}

func TestClusterSeedAnchoring(t *testing.T) {
	// B is within the window of seed A, C is within the window of B but not
	// of A. C must open its own cluster: membership is tested against the
	// seed only.
	a := sigAt("twitter", 0.5, 0, t0)
	b := sigAt("twitter", 0.5, 0, t0.Add(50*time.Minute))
	cSig := sigAt("twitter", 0.5, 0, t0.Add(100*time.Minute))

	clusters := clusterSignals([]models.AnnotatedSignal{a, b, cSig})
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 1)
}

func TestClassificationPairs(t *testing.T) {
	f := NewIncidentFormation(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		signals  []models.AnnotatedSignal
		severity string
		status   string
	}{
		{
			name: "two platforms",
			signals: []models.AnnotatedSignal{
				sigAt("twitter", 0.8, 0, t0),
				sigAt("reddit", 0.8, 0, t0),
			},
			severity: models.SeverityHigh,
			status:   models.StatusVerified,
		},
		{
			name: "strongly negative single platform",
			signals: []models.AnnotatedSignal{
				sigAt("twitter", 0.8, -0.5, t0),
			},
			severity: models.SeverityHigh,
			status:   models.StatusVerified,
		},
		{
			name: "three signals one platform neutral",
			signals: []models.AnnotatedSignal{
				sigAt("twitter", 0.5, 0, t0),
				sigAt("twitter", 0.5, 0, t0.Add(time.Minute)),
				sigAt("twitter", 0.5, 0, t0.Add(2*time.Minute)),
			},
			severity: models.SeverityMedium,
			status:   models.StatusMedium,
		},
		{
			name: "lone neutral signal",
			signals: []models.AnnotatedSignal{
				sigAt("twitter", 0.5, 0, t0),
			},
			severity: models.SeverityLow,
			status:   models.StatusUnverified,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			incidents := f.FormIncidents(ctx, tc.signals)
			require.Len(t, incidents, 1)
			assert.Equal(t, tc.severity, incidents[0].Severity)
			assert.Equal(t, tc.status, incidents[0].Status)
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	cluster := []models.AnnotatedSignal{
		sigAt("twitter", 0.5, 0, t0),
		sigAt("reddit", 0.75, 0, t0),
		sigAt("telegram", 1.0, 0, t0),
	}
	// avg 0.75 -> 37, size boost 20, diversity boost 20.
	assert.Equal(t, 77, confidenceScore(cluster, 3))

	// The relevance term floors: (0.8+0.6+0.7)/3 lands just under 0.7 in
	// float64, so the term is 34, not 35.
	floored := []models.AnnotatedSignal{
		sigAt("twitter", 0.8, 0, t0),
		sigAt("reddit", 0.6, 0, t0),
		sigAt("telegram", 0.7, 0, t0),
	}
	assert.Equal(t, 74, confidenceScore(floored, 3))

	single := []models.AnnotatedSignal{sigAt("twitter", 2.0, 0, t0)}
	assert.Equal(t, 100, confidenceScore(single, 1), "clamped at 100")
}

func TestTitleAndDescriptionFromTopRelevance(t *testing.T) {
	f := NewIncidentFormation(nil, nil)

	s1 := sigAt("twitter", 0.9, 0, t0)
	s1.Content = "riot police deployed downtown"
	s2 := sigAt("reddit", 0.7, 0, t0)
	s2.Title = "crowds gathering at main square"
	s3 := geoSig("telegram", 0.5, 52.52, 13.40, t0)
	s3.Content = "roadblocks reported"
	s4 := sigAt("telegram", 0.4, 0, t0)
	s4.Content = "unconfirmed chatter"

	// All share a platform-or-proximity path to the seed except s2/s3, so
	// build one cluster manually through createIncident.
	incident := f.createIncident(context.Background(), []models.AnnotatedSignal{s1, s2, s3, s4})

	assert.Equal(t, "riot police deployed downtown", incident.Title)
	assert.Equal(t, "riot police deployed downtown | crowds gathering at main square | roadblocks reported", incident.Description)
}

func TestSourcesTopThreeHTTPDedup(t *testing.T) {
	f := NewIncidentFormation(nil, nil)

	s1 := sigAt("twitter", 0.9, 0, t0)
	s1.Link = "https://example.com/a"
	s2 := sigAt("reddit", 0.8, 0, t0)
	s2.Link = "https://example.com/a" // duplicate
	s3 := sigAt("telegram", 0.7, 0, t0)
	s3.Link = "ftp://example.com/b" // non-http dropped
	s4 := sigAt("rss", 0.6, 0, t0)
	s4.Link = "https://example.com/c" // outside top three

	incident := f.createIncident(context.Background(), []models.AnnotatedSignal{s1, s2, s3, s4})
	assert.Equal(t, []string{"https://example.com/a"}, incident.Sources)
}

func TestLocationNaming(t *testing.T) {
	ctx := context.Background()

	noCoords := NewIncidentFormation(&stubGeocoder{name: "Berlin"}, nil)
	incident := noCoords.createIncident(ctx, []models.AnnotatedSignal{sigAt("twitter", 0.5, 0, t0)})
	assert.Equal(t, "Unknown Location", incident.Location)
	assert.Nil(t, incident.LocationLat)

	geocoded := NewIncidentFormation(&stubGeocoder{name: "Berlin"}, nil)
	incident = geocoded.createIncident(ctx, []models.AnnotatedSignal{geoSig("twitter", 0.5, 52.52, 13.40, t0)})
	assert.Equal(t, "Berlin", incident.Location)
	require.NotNil(t, incident.LocationLat)
	assert.InDelta(t, 52.52, *incident.LocationLat, 1e-9)

	failing := NewIncidentFormation(&stubGeocoder{err: context.DeadlineExceeded}, nil)
	incident = failing.createIncident(ctx, []models.AnnotatedSignal{geoSig("twitter", 0.5, 52.52, 13.40, t0)})
	assert.Equal(t, "Location (52.52, 13.40)", incident.Location)
}

func TestCentroidAveragesOnlyGeolocated(t *testing.T) {
	lat, lng := centroid([]models.AnnotatedSignal{
		geoSig("twitter", 0.5, 50, 10, t0),
		geoSig("twitter", 0.5, 52, 14, t0),
		sigAt("twitter", 0.5, 0, t0),
	})
	require.NotNil(t, lat)
	assert.InDelta(t, 51, *lat, 1e-9)
	assert.InDelta(t, 12, *lng, 1e-9)
}

func TestHaversine(t *testing.T) {
	// Paris to London, roughly 344 km.
	d := haversineKm(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 344, d, 5)

	assert.Zero(t, haversineKm(52.52, 13.40, 52.52, 13.40))
}

func TestFormIncidentsEndToEnd(t *testing.T) {
	f := NewIncidentFormation(&stubGeocoder{name: "Downtown Area"}, nil)

	s1 := geoSig("twitter", 0.8, 52.52, 13.40, t0)
	s1.Content = "tear gas at the demonstration"
	s1.SentimentScore = -0.6
	s1.Link = "https://twitter.com/x/1"
	s2 := geoSig("reddit", 0.6, 52.53, 13.41, t0.Add(15*time.Minute))
	s2.Content = "police lines forming near the station"
	s2.Link = "https://reddit.com/r/y/2"
	unrelated := sigAt("telegram", 0.5, 0, t0.Add(5*time.Hour))

	incidents := f.FormIncidents(context.Background(), []models.AnnotatedSignal{s1, s2, unrelated})
	require.Len(t, incidents, 2)

	main := incidents[0]
	assert.Equal(t, models.SeverityHigh, main.Severity)
	assert.Equal(t, models.StatusVerified, main.Status)
	assert.Equal(t, "Downtown Area", main.Location)
	assert.Equal(t, 2, main.PlatformDiversity)
	assert.Equal(t, 2, main.SourceCount)
	assert.Len(t, main.Sources, 2)
	assert.True(t, main.Alertable())

	lone := incidents[1]
	assert.Equal(t, models.SeverityLow, lone.Severity)
	assert.Equal(t, "Unknown Location", lone.Location)
	assert.False(t, lone.Alertable())
}
