package models

import "time"

// RawSignal is a single record as produced by a source collector, before any
// annotation. Timestamp is kept as the collector-reported string; parsing
// happens during annotation so a bad timestamp degrades one signal, not the
// batch.
type RawSignal struct {
	Platform    string            `json:"platform"`
	Content     string            `json:"content"`
	Author      string            `json:"author"`
	Timestamp   string            `json:"timestamp"`
	LocationRaw string            `json:"location_raw"`
	Link        string            `json:"link"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// AnnotatedSignal is a scored, geolocated unit of text evidence. Produced
// once by the annotator and read-only afterwards. Lat/Lng are set together
// or not at all. A zero Timestamp marks an unparsable collector timestamp;
// such signals never cluster with anything but still pass through the
// pipeline.
type AnnotatedSignal struct {
	ID             int64      `json:"id"`
	Platform       string     `json:"platform"`
	RelevanceScore float64    `json:"relevance_score"`
	SentimentScore float64    `json:"sentiment_score"`
	Lat            *float64   `json:"lat,omitempty"`
	Lng            *float64   `json:"lng,omitempty"`
	Link           string     `json:"link"`
	Timestamp      time.Time  `json:"timestamp"`
	Content        string     `json:"content"`
	Title          string     `json:"title"`
	Language       string     `json:"language"`
}

// HasCoordinates reports whether the signal carries a usable geolocation.
func (s *AnnotatedSignal) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}

// DisplayText returns the best available text for titles and descriptions.
func (s *AnnotatedSignal) DisplayText() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Content
}
