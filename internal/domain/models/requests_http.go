package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type IncidentsRequest struct {
	Severity string `query:"severity" json:"severity" validate:"omitempty,oneof=low medium high"`
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=unverified medium verified"`
	Region   string `query:"region" json:"region"`
	Since    string `query:"since" json:"since"`
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type PredictionsRequest struct {
	ConfidenceThreshold float64 `query:"confidence_threshold" json:"confidence_threshold" default:"0.3" validate:"gte=0,lte=1"`
	Limit               int     `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
}

type CollectRequest struct {
	Sources []string `json:"sources" validate:"omitempty,dive,min=1"`
}
