package annotate

import (
	"testing"
	"time"

	"Noesis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotateScoresUnrestContent(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform:  "twitter",
		Content:   "Riot police fired tear gas at the protest downtown",
		Timestamp: "2026-03-14T12:00:00Z",
		Link:      "https://twitter.com/x/1",
	})
	require.NoError(t, err)

	assert.Greater(t, got.RelevanceScore, 0.15, "unrest text must pass the relevance gate")
	assert.Negative(t, got.SentimentScore)
	assert.Equal(t, "twitter", got.Platform)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), got.Timestamp)
	assert.Equal(t, "en", got.Language)
	assert.Nil(t, got.Lat)
}

func TestAnnotateNeutralContentScoresLow(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform: "twitter",
		Content:  "Beautiful sunny day at the park",
	})
	require.NoError(t, err)
	assert.Zero(t, got.RelevanceScore)
	assert.Zero(t, got.SentimentScore)
}

func TestAnnotateEmptyContentFails(t *testing.T) {
	lex := NewLexicon()
	_, err := lex.Annotate(models.RawSignal{Platform: "rss", Content: "   "})
	assert.Error(t, err)
}

func TestAnnotateUsesTitleFromExtra(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform: "gnews",
		Content:  "Read the full story online.",
		Extra:    map[string]string{"title": "Protest escalates into clashes with police"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Protest escalates into clashes with police", got.Title)
	assert.Greater(t, got.RelevanceScore, 0.15, "title terms count toward relevance")
}

func TestAnnotateRelevanceClamped(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform: "twitter",
		Content:  "riot protest unrest clash tear gas looting curfew uprising barricade demonstration",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.RelevanceScore)
}

func TestAnnotateCoordinates(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform: "sensor",
		Content:  "crowd density spike",
		Extra:    map[string]string{"lat": "52.52", "lng": "13.40"},
	})
	require.NoError(t, err)
	require.NotNil(t, got.Lat)
	require.NotNil(t, got.Lng)
	assert.InDelta(t, 52.52, *got.Lat, 1e-9)
	assert.InDelta(t, 13.40, *got.Lng, 1e-9)

	// Out-of-range coordinates are discarded as a pair.
	got, err = lex.Annotate(models.RawSignal{
		Platform: "sensor",
		Content:  "crowd density spike",
		Extra:    map[string]string{"lat": "95.0", "lng": "13.40"},
	})
	require.NoError(t, err)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lng)
}

func TestAnnotateGazetteerFallback(t *testing.T) {
	lex := NewLexicon()

	got, err := lex.Annotate(models.RawSignal{
		Platform: "rss",
		Content:  "Protest marches through central Berlin ahead of the summit",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 52.52, *got.Lat, 0.01)
	assert.InDelta(t, 13.405, *got.Lng, 0.01)

	// Explicit collector coordinates win over the gazetteer.
	got, err = lex.Annotate(models.RawSignal{
		Platform: "sensor",
		Content:  "crowd surge near berlin station",
		Extra:    map[string]string{"lat": "52.40", "lng": "13.10"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 52.40, *got.Lat, 1e-9)

	// The raw location hint is searched too.
	got, err = lex.Annotate(models.RawSignal{
		Platform:    "telegram",
		Content:     "roadblocks reported on the main avenue",
		LocationRaw: "Nairobi CBD",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, -1.2921, *got.Lat, 0.01)
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, want, ParseTimestamp("2026-03-14T12:00:00Z"))
	assert.Equal(t, want, ParseTimestamp("2026-03-14 12:00:00"))
	assert.Equal(t, want, ParseTimestamp("Sat, 14 Mar 2026 12:00:00 UTC"))
	assert.True(t, ParseTimestamp("not a time").IsZero())
	assert.True(t, ParseTimestamp("").IsZero())
}

func TestSentimentBalancesLexicons(t *testing.T) {
	assert.Negative(t, sentiment("violent clashes and looting"))
	assert.Positive(t, sentiment("peaceful and calm gathering"))
	assert.Equal(t, -1.0, sentiment("violence attack dead killed chaos burning looting fear"))
}
