package usecase

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"Noesis/internal/domain/models"

	"github.com/jonboulle/clockwork"
)

// LocationRiskProfile is a static prior for a known location.
type LocationRiskProfile struct {
	BaseRisk       float64 `yaml:"base_risk"`
	EscalationRate float64 `yaml:"escalation_rate"`
}

// RiskConfig carries the engine's static tables. An explicit struct rather
// than package-level registries so callers control the full input surface.
type RiskConfig struct {
	Profiles       map[string]LocationRiskProfile
	DefaultProfile LocationRiskProfile
}

// DefaultRiskConfig returns the built-in location risk table.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		Profiles: map[string]LocationRiskProfile{
			"Downtown Area":       {BaseRisk: 0.3, EscalationRate: 0.4},
			"University Campus":   {BaseRisk: 0.2, EscalationRate: 0.3},
			"Industrial District": {BaseRisk: 0.4, EscalationRate: 0.5},
			"City Center":         {BaseRisk: 0.35, EscalationRate: 0.45},
			"Government Building": {BaseRisk: 0.5, EscalationRate: 0.6},
			"Transport Hub":       {BaseRisk: 0.25, EscalationRate: 0.35},
			"Shopping District":   {BaseRisk: 0.15, EscalationRate: 0.25},
			"Residential Area":    {BaseRisk: 0.1, EscalationRate: 0.2},
		},
		DefaultProfile: LocationRiskProfile{BaseRisk: 0.2, EscalationRate: 0.3},
	}
}

// Indicator importance weights; they sum to 1.0.
var indicatorWeights = map[string]float64{
	"social_media_sentiment": 0.25,
	"crowd_density":          0.20,
	"police_activity":        0.15,
	"traffic_anomalies":      0.15,
	"protest_organization":   0.25,
}

// RiskPrediction turns an incident history into per-location risk estimates.
// Indicator magnitudes come from the injected random source, biased upward
// by incident count and severity; the exact values are not reproducible
// across implementations, only the monotonic bias contract is. The clock is
// injected so time-of-day multipliers are testable.
type RiskPrediction struct {
	cfg   RiskConfig
	rng   *rand.Rand
	clock clockwork.Clock
}

// NewRiskPrediction creates the risk engine. A nil rng falls back to a
// time-seeded source; a nil clock falls back to the real clock. Unset config
// fields fall back to the built-in table independently, so a caller can
// supply only a default profile.
func NewRiskPrediction(cfg RiskConfig, rng *rand.Rand, clock clockwork.Clock) *RiskPrediction {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Profiles == nil {
		cfg.Profiles = DefaultRiskConfig().Profiles
	}
	if (cfg.DefaultProfile == LocationRiskProfile{}) {
		cfg.DefaultProfile = DefaultRiskConfig().DefaultProfile
	}
	return &RiskPrediction{cfg: cfg, rng: rng, clock: clock}
}

// Predict groups incidents by exact location string and emits one prediction
// per location with at least one incident, sorted descending by risk score.
func (r *RiskPrediction) Predict(existing []models.Incident) []models.Prediction {
	now := r.clock.Now().UTC()

	byLocation := make(map[string][]models.Incident)
	order := make([]string, 0)
	for _, inc := range existing {
		location := inc.Location
		if location == "" {
			location = "Unknown Location"
		}
		if _, ok := byLocation[location]; !ok {
			order = append(order, location)
		}
		byLocation[location] = append(byLocation[location], inc)
	}

	predictions := make([]models.Prediction, 0, len(order))
	for _, location := range order {
		incidents := byLocation[location]
		indicators := r.synthesizeIndicators(location, incidents, now)

		riskScore := r.riskScore(indicators, incidents, location, now)
		escalation := escalationProbability(indicators, incidents)
		severity, timeToIncident := severityAndTiming(riskScore, indicators, escalation)

		baseConfidence := 0.3 + 0.1*float64(len(incidents))
		if baseConfidence > 0.6 {
			baseConfidence = 0.6
		}
		confidence := riskScore*0.7 + baseConfidence*0.3

		predictions = append(predictions, models.Prediction{
			Location:              location,
			PredictedSeverity:     severity,
			Confidence:            confidence,
			TimeToIncident:        timeToIncident,
			RiskScore:             riskScore,
			EscalationProbability: escalation,
			RiskFactors:           buildRiskFactors(incidents, indicators, riskScore, escalation, r.timeRiskMultiplier(now)),
			PredictionTimestamp:   now,
			PredictedIncidentTime: now.Add(time.Duration(2+r.rng.Intn(7)) * time.Hour),
			Reason:                buildReason(location, severity, incidents, indicators, escalation),
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].RiskScore > predictions[j].RiskScore
	})
	return predictions
}

// synthesizeIndicators builds the five proxy indicators. Magnitudes are
// random draws shifted upward by incident count and high-severity count, so
// more and worse incidents always push indicator values (and derived risk)
// higher.
func (r *RiskPrediction) synthesizeIndicators(location string, incidents []models.Incident, now time.Time) []models.ThreatIndicator {
	incidentCount := len(incidents)
	highCount := countSeverity(incidents, models.SeverityHigh)

	sentimentBias := 0.0
	if incidentCount > 0 {
		sentimentBias = -0.3
	}
	sentimentBias -= 0.2 * float64(highCount)
	sentiment := r.uniform(-0.8+sentimentBias, 0.9+sentimentBias)

	crowdDensity := clampMax(r.uniform(0.1, 0.7)+0.2*float64(incidentCount), 0.95)
	policeActivity := clampMax(r.uniform(0.0, 0.6)+0.3*float64(incidentCount)+0.2*float64(highCount), 1.0)
	trafficAnomaly := clampMax(r.uniform(0.0, 0.5)+0.25*float64(incidentCount), 0.9)
	protestOrg := clampMax(r.uniform(0.0, 0.6)+0.3*float64(incidentCount)+0.15*float64(highCount), 0.95)

	return []models.ThreatIndicator{
		{
			Source:      "social_media_sentiment",
			Value:       sentiment,
			Trend:       sentimentTrend(sentiment),
			Confidence:  r.uniform(0.75, 0.95),
			Weight:      indicatorWeights["social_media_sentiment"],
			Timestamp:   now.Add(-time.Duration(5+r.rng.Intn(26)) * time.Minute),
			Description: fmt.Sprintf("Sentiment analysis shows %s negative sentiment in %s", sentimentTrend(sentiment), location),
		},
		{
			Source:      "crowd_density",
			Value:       crowdDensity,
			Trend:       thresholdTrend(crowdDensity, 0.6),
			Confidence:  r.uniform(0.85, 0.98),
			Weight:      indicatorWeights["crowd_density"],
			Timestamp:   now.Add(-time.Duration(2+r.rng.Intn(14)) * time.Minute),
			Description: fmt.Sprintf("Satellite imagery detects %.0f%% crowd density in %s", crowdDensity*100, location),
		},
		{
			Source:      "police_activity",
			Value:       policeActivity,
			Trend:       thresholdTrend(policeActivity, 0.7),
			Confidence:  r.uniform(0.75, 0.92),
			Weight:      indicatorWeights["police_activity"],
			Timestamp:   now.Add(-time.Duration(1+r.rng.Intn(10)) * time.Minute),
			Description: fmt.Sprintf("Police scanner activity level: %.0f%% in %s", policeActivity*100, location),
		},
		{
			Source:      "traffic_anomalies",
			Value:       trafficAnomaly,
			Trend:       thresholdTrend(trafficAnomaly, 0.5),
			Confidence:  r.uniform(0.7, 0.9),
			Weight:      indicatorWeights["traffic_anomalies"],
			Timestamp:   now.Add(-time.Duration(3+r.rng.Intn(18)) * time.Minute),
			Description: fmt.Sprintf("Traffic sensors detect %.0f%% anomaly in %s", trafficAnomaly*100, location),
		},
		{
			Source:      "protest_organization",
			Value:       protestOrg,
			Trend:       thresholdTrend(protestOrg, 0.6),
			Confidence:  r.uniform(0.65, 0.85),
			Weight:      indicatorWeights["protest_organization"],
			Timestamp:   now.Add(-time.Duration(10+r.rng.Intn(36)) * time.Minute),
			Description: fmt.Sprintf("Detected %.0f%% protest organization activity in %s", protestOrg*100, location),
		},
	}
}

// riskScore blends the weighted indicator score with the historical incident
// score, applies the time-of-day multiplier and the location base risk, and
// clamps at 0.99.
func (r *RiskPrediction) riskScore(indicators []models.ThreatIndicator, incidents []models.Incident, location string, now time.Time) float64 {
	if len(indicators) == 0 {
		return 0.0
	}

	weighted := 0.0
	totalWeight := 0.0
	for _, ind := range indicators {
		score := ind.Value
		if ind.Source == "social_media_sentiment" {
			// negative sentiment is the threat signal
			if ind.Value < 0 {
				score = -ind.Value
			} else {
				score = ind.Value * 0.3
			}
		}

		trendMult := 1.0
		switch ind.Trend {
		case models.TrendIncreasing:
			trendMult = 1.2
		case models.TrendDecreasing:
			trendMult = 0.8
		}

		weighted += score * ind.Weight * ind.Confidence * trendMult
		totalWeight += ind.Weight
	}
	indicatorScore := weighted / totalWeight

	historical := 0.1*float64(len(incidents)) + 0.15*float64(countSeverity(incidents, models.SeverityHigh))
	if historical > 0.4 {
		historical = 0.4
	}

	profile, ok := r.cfg.Profiles[location]
	if !ok {
		profile = r.cfg.DefaultProfile
	}

	score := (indicatorScore*0.6+historical*0.4)*r.timeRiskMultiplier(now) + profile.BaseRisk
	if score > 0.99 {
		score = 0.99
	}
	return score
}

// timeRiskMultiplier compounds weekend, evening, and holiday-season effects.
func (r *RiskPrediction) timeRiskMultiplier(now time.Time) float64 {
	multiplier := 1.0
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		multiplier *= 1.3
	}
	if now.Hour() >= 18 || now.Hour() <= 2 {
		multiplier *= 1.2
	}
	if now.Month() == time.December || now.Month() == time.January {
		multiplier *= 1.4
	}
	return multiplier
}

func escalationProbability(indicators []models.ThreatIndicator, incidents []models.Incident) float64 {
	if len(indicators) == 0 {
		return 0.0
	}

	increasing := 0
	confidenceSum := 0.0
	for _, ind := range indicators {
		if ind.Trend == models.TrendIncreasing {
			increasing++
			confidenceSum += ind.Confidence
		}
	}
	avgConfidence := 0.0
	if increasing > 0 {
		avgConfidence = confidenceSum / float64(increasing)
	}

	recent := 0
	for _, inc := range incidents {
		if inc.Severity == models.SeverityHigh || inc.Severity == models.SeverityMedium {
			recent++
		}
	}

	prob := (0.1 + 0.1*float64(increasing) + 0.2*avgConfidence) * (1 + 0.15*float64(recent))
	if prob > 0.95 {
		prob = 0.95
	}
	return prob
}

// severityAndTiming applies the decision table (first match wins), then
// tightens the bucket one step when escalation probability exceeds 0.7.
func severityAndTiming(riskScore float64, indicators []models.ThreatIndicator, escalation float64) (string, string) {
	increasing := 0
	for _, ind := range indicators {
		if ind.Trend == models.TrendIncreasing {
			increasing++
		}
	}

	var severity, timeToIncident string
	switch {
	case riskScore >= 0.7 && increasing >= 3:
		severity, timeToIncident = models.SeverityHigh, "2-4 hours"
	case riskScore >= 0.4 && increasing >= 2:
		severity, timeToIncident = models.SeverityMedium, "4-8 hours"
	default:
		severity, timeToIncident = models.SeverityLow, "8-12 hours"
	}

	if escalation > 0.7 {
		switch timeToIncident {
		case "8-12 hours":
			timeToIncident = "4-8 hours"
		case "4-8 hours":
			timeToIncident = "2-4 hours"
		}
	}
	return severity, timeToIncident
}

func buildRiskFactors(incidents []models.Incident, indicators []models.ThreatIndicator, riskScore, escalation, timeMult float64) models.RiskFactors {
	based := make([]models.IncidentRef, 0, 3)
	for i, inc := range incidents {
		if i >= 3 {
			break
		}
		based = append(based, models.IncidentRef{
			ID:           inc.ID,
			Title:        inc.Title,
			Severity:     inc.Severity,
			Status:       inc.Status,
			SourcesCount: len(inc.Sources),
		})
	}
	return models.RiskFactors{
		RecentIncidents:       len(incidents),
		HighSeverity:          countSeverity(incidents, models.SeverityHigh),
		TotalIncidents:        len(incidents),
		ThreatLevel:           round2(riskScore),
		EscalationProbability: round3(escalation),
		TimeRiskMultiplier:    round2(timeMult),
		BasedOnIncidents:      based,
		RealTimeIndicators:    indicators,
	}
}

func buildReason(location, severity string, incidents []models.Incident, indicators []models.ThreatIndicator, escalation float64) string {
	increasing := 0
	for _, ind := range indicators {
		if ind.Trend == models.TrendIncreasing {
			increasing++
		}
	}
	highCount := countSeverity(incidents, models.SeverityHigh)

	parts := make([]string, 0, 3)
	if increasing > 0 {
		parts = append(parts, fmt.Sprintf("%d increasing threat indicators", increasing))
	}
	if highCount > 0 {
		parts = append(parts, fmt.Sprintf("%d high-severity recent incidents", highCount))
	}
	if escalation > 0.6 {
		parts = append(parts, fmt.Sprintf("high escalation probability (%.0f%%)", escalation*100))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d recent incidents", len(incidents)))
	}
	return fmt.Sprintf("Analysis predicts %s unrest in %s based on %s", severity, location, strings.Join(parts, ", "))
}

func (r *RiskPrediction) uniform(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

func sentimentTrend(value float64) string {
	switch {
	case value > 0.6:
		return models.TrendIncreasing
	case value < -0.3:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func thresholdTrend(value, threshold float64) string {
	if value > threshold {
		return models.TrendIncreasing
	}
	return models.TrendStable
}

func countSeverity(incidents []models.Incident, severity string) int {
	n := 0
	for _, inc := range incidents {
		if inc.Severity == severity {
			n++
		}
	}
	return n
}

func clampMax(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
