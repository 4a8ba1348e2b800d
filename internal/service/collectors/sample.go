package collectors

import (
	"context"
	"time"

	"Noesis/internal/domain/models"

	"github.com/jonboulle/clockwork"
)

// Sample emits a fixed batch of synthetic signals stamped with the current
// time. Used for demos and smoke tests when no external source credentials
// are configured.
type Sample struct {
	clock clockwork.Clock
}

func NewSample(clock clockwork.Clock) *Sample {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sample{clock: clock}
}

func (s *Sample) Name() string { return "sample" }

func (s *Sample) Collect(_ context.Context) ([]models.RawSignal, error) {
	now := s.clock.Now().UTC()
	stamp := func(minutesAgo int) string {
		return now.Add(-time.Duration(minutesAgo) * time.Minute).Format(time.RFC3339)
	}

	return []models.RawSignal{
		{
			Platform:    "twitter",
			Content:     "Massive protest forming downtown, police everywhere #protest",
			Author:      "citizen_observer",
			Timestamp:   stamp(10),
			LocationRaw: "Downtown Area",
			Link:        "https://twitter.com/citizen_observer/status/1001",
			Extra:       map[string]string{"lat": "52.520000", "lng": "13.400000"},
		},
		{
			Platform:    "reddit",
			Content:     "Riot police deployed near the central square, crowds chanting",
			Author:      "u/streetwatch",
			Timestamp:   stamp(25),
			LocationRaw: "City Center",
			Link:        "https://reddit.com/r/news/comments/2002",
			Extra:       map[string]string{"lat": "52.515000", "lng": "13.390000"},
		},
		{
			Platform:  "telegram",
			Content:   "Roadblocks reported on the main avenue, demonstration growing",
			Author:    "unrest_channel",
			Timestamp: stamp(40),
			Link:      "https://t.me/unrest_channel/3003",
		},
		{
			Platform:  "twitter",
			Content:   "Beautiful sunny day at the park",
			Author:    "weather_fan",
			Timestamp: stamp(5),
			Link:      "https://twitter.com/weather_fan/status/4004",
		},
	}, nil
}
