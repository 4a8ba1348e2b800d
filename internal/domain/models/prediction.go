package models

import "time"

// Indicator trend labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// ThreatIndicator is a synthetic proxy for a live sensor feed, used only
// inside the risk prediction engine. Not persisted.
type ThreatIndicator struct {
	Source      string    `json:"source"`
	Value       float64   `json:"value"`
	Trend       string    `json:"trend"`
	Confidence  float64   `json:"confidence"`
	Weight      float64   `json:"weight"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// IncidentRef is the compact incident summary embedded in risk factors.
type IncidentRef struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Severity     string `json:"severity"`
	Status       string `json:"status"`
	SourcesCount int    `json:"sources_count"`
}

// RiskFactors is the structured explanation payload attached to a
// prediction. Keys are fixed so the output schema stays testable.
type RiskFactors struct {
	RecentIncidents       int               `json:"recent_incidents"`
	HighSeverity          int               `json:"high_severity"`
	TotalIncidents        int               `json:"total_incidents"`
	ThreatLevel           float64           `json:"threat_level"`
	EscalationProbability float64           `json:"escalation_probability"`
	TimeRiskMultiplier    float64           `json:"time_risk_multiplier"`
	BasedOnIncidents      []IncidentRef     `json:"based_on_incidents"`
	RealTimeIndicators    []ThreatIndicator `json:"real_time_indicators"`
}

// Prediction is the risk engine's per-location output. Transient; regenerated
// on every invocation and never diffed against a prior run.
type Prediction struct {
	Location              string      `json:"location"`
	PredictedSeverity     string      `json:"predicted_severity"`
	Confidence            float64     `json:"confidence"`
	TimeToIncident        string      `json:"time_to_incident"`
	RiskScore             float64     `json:"risk_score"`
	EscalationProbability float64     `json:"escalation_probability"`
	RiskFactors           RiskFactors `json:"risk_factors"`
	PredictionTimestamp   time.Time   `json:"prediction_timestamp"`
	PredictedIncidentTime time.Time   `json:"predicted_incident_time"`
	Reason                string      `json:"prediction_reason"`
}
