package annotate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"Noesis/internal/domain/models"
)

// Weighted unrest terms. Multi-word phrases are matched as substrings so
// "tear gas" scores even when tokenization would split it.
var relevanceLexicon = map[string]float64{
	"protest":       0.30,
	"riot":          0.35,
	"demonstration": 0.25,
	"unrest":        0.35,
	"clash":         0.30,
	"police":        0.15,
	"tear gas":      0.40,
	"barricade":     0.25,
	"roadblock":     0.20,
	"strike":        0.15,
	"looting":       0.35,
	"curfew":        0.30,
	"crowd":         0.10,
	"march":         0.10,
	"uprising":      0.35,
	"standoff":      0.25,
}

var negativeLexicon = map[string]float64{
	"violence": 0.5,
	"violent":  0.5,
	"injured":  0.4,
	"attack":   0.5,
	"burning":  0.4,
	"riot":     0.4,
	"tear gas": 0.5,
	"clash":    0.4,
	"looting":  0.4,
	"dead":     0.6,
	"killed":   0.6,
	"danger":   0.3,
	"chaos":    0.4,
	"fear":     0.3,
	"smashed":  0.3,
	"arrested": 0.3,
}

var positiveLexicon = map[string]float64{
	"peaceful": 0.5,
	"calm":     0.4,
	"resolved": 0.4,
	"safe":     0.3,
	"orderly":  0.3,
	"dialogue": 0.3,
}

// Known-city gazetteer used when a collector supplies no coordinates. Keys
// are lowercase; matching is substring over content, title, and the raw
// location hint.
var cityGazetteer = map[string][2]float64{
	"berlin":       {52.5200, 13.4050},
	"paris":        {48.8566, 2.3522},
	"london":       {51.5074, -0.1278},
	"madrid":       {40.4168, -3.7038},
	"rome":         {41.9028, 12.4964},
	"athens":       {37.9838, 23.7275},
	"istanbul":     {41.0082, 28.9784},
	"cairo":        {30.0444, 31.2357},
	"nairobi":      {-1.2921, 36.8219},
	"johannesburg": {-26.2041, 28.0473},
	"new york":     {40.7128, -74.0060},
	"los angeles":  {34.0522, -118.2437},
	"mexico city":  {19.4326, -99.1332},
	"bogota":       {4.7110, -74.0721},
	"sao paulo":    {-23.5505, -46.6333},
	"delhi":        {28.7041, 77.1025},
	"jakarta":      {-6.2088, 106.8456},
	"manila":       {14.5995, 120.9842},
	"hong kong":    {22.3193, 114.1694},
	"sydney":       {-33.8688, 151.2093},
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Lexicon scores signals with fixed keyword tables. Deterministic for a
// given input; no network, no model.
type Lexicon struct {
	defaultLanguage string
}

func NewLexicon() *Lexicon {
	return &Lexicon{defaultLanguage: "en"}
}

// Annotate derives relevance, sentiment, timestamp, and coordinates from one
// raw signal. Empty content is an error; a bad timestamp or bad coordinates
// degrade the record instead of failing it.
func (l *Lexicon) Annotate(raw models.RawSignal) (models.AnnotatedSignal, error) {
	title := raw.Extra["title"]
	text := strings.ToLower(strings.TrimSpace(raw.Content + " " + title))
	if text == "" {
		return models.AnnotatedSignal{}, fmt.Errorf("empty signal content from %s", raw.Platform)
	}

	annotated := models.AnnotatedSignal{
		Platform:       raw.Platform,
		Content:        raw.Content,
		Title:          title,
		Link:           raw.Link,
		Language:       l.defaultLanguage,
		RelevanceScore: relevance(text),
		SentimentScore: sentiment(text),
		Timestamp:      ParseTimestamp(raw.Timestamp),
	}

	if lat, lng, ok := coordinates(raw.Extra); ok {
		annotated.Lat = &lat
		annotated.Lng = &lng
	} else if lat, lng, ok := gazetteerLookup(text + " " + strings.ToLower(raw.LocationRaw)); ok {
		annotated.Lat = &lat
		annotated.Lng = &lng
	}
	return annotated, nil
}

// gazetteerLookup returns the coordinates of the first known city mentioned
// in the text. Map iteration order is random, so ties between mentioned
// cities are broken arbitrarily; signals naming multiple cities are rare
// enough that this has not mattered.
func gazetteerLookup(text string) (float64, float64, bool) {
	for city, coords := range cityGazetteer {
		if strings.Contains(text, city) {
			return coords[0], coords[1], true
		}
	}
	return 0, 0, false
}

func relevance(text string) float64 {
	score := 0.0
	for term, weight := range relevanceLexicon {
		if strings.Contains(text, term) {
			score += weight
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sentiment is the negative-minus-positive lexicon balance, clamped to
// [-1, 1]. Unrest reporting skews negative by construction; neutral text
// scores zero.
func sentiment(text string) float64 {
	score := 0.0
	for term, weight := range negativeLexicon {
		if strings.Contains(text, term) {
			score -= weight
		}
	}
	for term, weight := range positiveLexicon {
		if strings.Contains(text, term) {
			score += weight
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < -1.0 {
		score = -1.0
	}
	return score
}

// ParseTimestamp tries known layouts and returns the zero time when none
// matches. Downstream clustering treats the zero time as never proximate.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// coordinates reads lat/lng from the collector's extra fields. Both must
// parse and lie in valid ranges or neither is used.
func coordinates(extra map[string]string) (float64, float64, bool) {
	if extra == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(extra["lat"], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(extra["lng"], 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
