package models

import "time"

// Severity levels assigned during incident classification.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Verification statuses. Status and Severity are always assigned together by
// the same classification rule; neither is ever edited independently.
const (
	StatusUnverified = "unverified"
	StatusMedium     = "medium"
	StatusVerified   = "verified"
)

// Incident is the durable output of the fusion core: a cluster of proximate
// signals classified into a severity/status pair. The core never mutates an
// Incident after creation.
type Incident struct {
	ID                int64     `json:"incident_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Sources           []string  `json:"sources"`
	Location          string    `json:"location"`
	LocationLat       *float64  `json:"location_lat,omitempty"`
	LocationLng       *float64  `json:"location_lng,omitempty"`
	Severity          string    `json:"severity"`
	Status            string    `json:"status"`
	ConfidenceScore   int       `json:"confidence_score"`
	PlatformDiversity int       `json:"platform_diversity"`
	SourceCount       int       `json:"source_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// Alertable reports whether the incident passes the outbound notification
// gate: a corroborated status and at least medium severity.
func (i *Incident) Alertable() bool {
	statusOK := i.Status == StatusVerified || i.Status == StatusMedium
	severityOK := i.Severity == SeverityMedium || i.Severity == SeverityHigh
	return statusOK && severityOK
}
