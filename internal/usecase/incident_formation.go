package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
)

// Formation thresholds. Relevance gate and clustering windows were loosened
// from stricter historical values to favor recall over precision.
const (
	relevanceGate     = 0.15
	clusterWindow     = 60 * time.Minute
	clusterRadiusKm   = 200.0
	earthRadiusKm     = 6371.0
	fallbackNoDetails = "Multiple sources report civil unrest. No further details available."
)

// IncidentFormation clusters annotated signals into incidents and classifies
// them. Pure over its inputs: no shared state, no I/O except place-name
// resolution through the geocoder. Safe for concurrent callers on disjoint
// inputs; deterministic for a fixed input ordering.
type IncidentFormation struct {
	geocoder drepo.Geocoder
	metrics  drepo.Metrics
}

// NewIncidentFormation creates the formation engine.
func NewIncidentFormation(geocoder drepo.Geocoder, metrics drepo.Metrics) *IncidentFormation {
	return &IncidentFormation{geocoder: geocoder, metrics: metrics}
}

// FormIncidents filters, clusters, and classifies signals. Every cluster,
// including singletons, becomes an incident. Output order follows cluster
// formation order, not severity or confidence.
func (f *IncidentFormation) FormIncidents(ctx context.Context, signals []models.AnnotatedSignal) []models.Incident {
	relevant := make([]models.AnnotatedSignal, 0, len(signals))
	for _, s := range signals {
		if s.RelevanceScore > relevanceGate {
			relevant = append(relevant, s)
		}
	}

	clusters := clusterSignals(relevant)

	incidents := make([]models.Incident, 0, len(clusters))
	for _, cluster := range clusters {
		incident := f.createIncident(ctx, cluster)
		if f.metrics != nil {
			f.metrics.RecordIncidentFormed(incident.Severity)
		}
		incidents = append(incidents, incident)
	}
	return incidents
}

// clusterSignals performs a single-pass greedy grouping: each unassigned
// signal seeds a cluster, and every later unassigned signal proximate to
// that SEED joins it. Proximity is tested only against the seed, so the
// relation is intentionally non-transitive; two members of one cluster are
// not guaranteed mutually proximate. Kept as a plain index-tracked pass, not
// a graph closure, for compatibility with the established behavior.
func clusterSignals(signals []models.AnnotatedSignal) [][]models.AnnotatedSignal {
	clusters := make([][]models.AnnotatedSignal, 0)
	assigned := make([]bool, len(signals))

	for i := range signals {
		if assigned[i] {
			continue
		}
		cluster := []models.AnnotatedSignal{signals[i]}
		assigned[i] = true

		for j := i + 1; j < len(signals); j++ {
			if assigned[j] {
				continue
			}
			if areProximate(&signals[i], &signals[j]) {
				cluster = append(cluster, signals[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// areProximate tests the time window first, then location. Signals with a
// zero (unparsable) timestamp never cluster with anything. When either side
// lacks coordinates the test falls back to requiring an identical platform.
func areProximate(a, b *models.AnnotatedSignal) bool {
	if a.Timestamp.IsZero() || b.Timestamp.IsZero() {
		return false
	}
	diff := a.Timestamp.Sub(b.Timestamp)
	if diff < 0 {
		diff = -diff
	}
	if diff > clusterWindow {
		return false
	}

	if a.HasCoordinates() && b.HasCoordinates() {
		return haversineKm(*a.Lat, *a.Lng, *b.Lat, *b.Lng) <= clusterRadiusKm
	}
	return a.Platform == b.Platform
}

// haversineKm computes great-circle distance on a 6371 km sphere.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlng1 := lng1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlng2 := lng2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlng := rlng2 - rlng1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadiusKm * c
}

func (f *IncidentFormation) createIncident(ctx context.Context, cluster []models.AnnotatedSignal) models.Incident {
	lat, lng := centroid(cluster)
	location := f.locationName(ctx, lat, lng)

	avgSentiment := 0.0
	platforms := make(map[string]struct{})
	for _, s := range cluster {
		avgSentiment += s.SentimentScore
		platforms[s.Platform] = struct{}{}
	}
	avgSentiment /= float64(len(cluster))
	diversity := len(platforms)

	// Severity and status are decided by one rule, first match wins, and are
	// never set independently of each other.
	var severity, status string
	switch {
	case diversity >= 2 || avgSentiment < -0.3:
		severity, status = models.SeverityHigh, models.StatusVerified
	case diversity >= 1 && len(cluster) >= 3:
		severity, status = models.SeverityMedium, models.StatusMedium
	default:
		severity, status = models.SeverityLow, models.StatusUnverified
	}

	top := topByRelevance(cluster)

	title := top[0].DisplayText()
	if title == "" {
		title = fmt.Sprintf("Civil unrest reported in %s", location)
	}

	return models.Incident{
		Title:             title,
		Description:       buildDescription(top),
		Sources:           collectSources(top),
		Location:          location,
		LocationLat:       lat,
		LocationLng:       lng,
		Severity:          severity,
		Status:            status,
		ConfidenceScore:   confidenceScore(cluster, diversity),
		PlatformDiversity: diversity,
		SourceCount:       len(cluster),
		CreatedAt:         time.Now().UTC(),
	}
}

// centroid averages the coordinates of signals that have them. Returns nils
// when no signal in the cluster is geolocated.
func centroid(cluster []models.AnnotatedSignal) (*float64, *float64) {
	var sumLat, sumLng float64
	n := 0
	for _, s := range cluster {
		if s.HasCoordinates() {
			sumLat += *s.Lat
			sumLng += *s.Lng
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	lat := sumLat / float64(n)
	lng := sumLng / float64(n)
	return &lat, &lng
}

func (f *IncidentFormation) locationName(ctx context.Context, lat, lng *float64) string {
	if lat == nil || lng == nil {
		return "Unknown Location"
	}
	if f.geocoder != nil {
		if name, err := f.geocoder.PlaceName(ctx, *lat, *lng); err == nil && name != "" && name != "Unknown Location" {
			return name
		}
	}
	return fmt.Sprintf("Location (%.2f, %.2f)", *lat, *lng)
}

// topByRelevance returns up to three signals sorted by descending relevance.
// One canonical sort feeds title, description, and sources alike.
func topByRelevance(cluster []models.AnnotatedSignal) []models.AnnotatedSignal {
	sorted := make([]models.AnnotatedSignal, len(cluster))
	copy(sorted, cluster)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}
	return sorted
}

func buildDescription(top []models.AnnotatedSignal) string {
	parts := make([]string, 0, len(top))
	for _, s := range top {
		if text := s.DisplayText(); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return fallbackNoDetails
	}
	return strings.Join(parts, " | ")
}

// collectSources keeps http(s) links from the top signals, deduplicated in
// relevance order. Signals beyond the top three never contribute sources.
func collectSources(top []models.AnnotatedSignal) []string {
	sources := make([]string, 0, len(top))
	seen := make(map[string]struct{})
	for _, s := range top {
		link := s.Link
		if link == "" {
			continue
		}
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		sources = append(sources, link)
	}
	return sources
}

// confidenceScore derives a 0-100 integer from average relevance with cluster
// size and platform diversity boosts.
func confidenceScore(cluster []models.AnnotatedSignal, diversity int) int {
	avgRelevance := 0.0
	for _, s := range cluster {
		avgRelevance += s.RelevanceScore
	}
	avgRelevance /= float64(len(cluster))

	confidence := int(avgRelevance * 50)

	switch {
	case len(cluster) >= 3:
		confidence += 20
	case len(cluster) >= 2:
		confidence += 10
	}

	switch {
	case diversity >= 2:
		confidence += 20
	case diversity >= 1:
		confidence += 10
	}

	if confidence > 100 {
		confidence = 100
	}
	return confidence
}
