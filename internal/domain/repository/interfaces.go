package repository

import (
	"context"
	"time"

	"Noesis/internal/domain/models"
)

// Collector is a source adapter producing raw signals. Implementations must
// never panic: on internal failure they return an error and an empty slice.
// A zero-result collection is not an error.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]models.RawSignal, error)
}

// Annotator scores one raw signal. Callers substitute a neutral default on
// error rather than dropping the record.
type Annotator interface {
	Annotate(raw models.RawSignal) (models.AnnotatedSignal, error)
}

// Geocoder resolves a centroid to a human-readable place name.
type Geocoder interface {
	PlaceName(ctx context.Context, lat, lng float64) (string, error)
}

// IncidentFilter narrows an incident store query.
type IncidentFilter struct {
	Severity string
	Status   string
	Region   string
	Since    time.Time
	Limit    int
}

// IncidentStore persists finalized incidents and serves the risk engine's
// input. Save failures leave the already-computed incident list intact so
// callers can retry independently.
type IncidentStore interface {
	Save(ctx context.Context, incidents []models.Incident) error
	Query(ctx context.Context, filter IncidentFilter) ([]models.Incident, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalStore persists raw and annotated signals for audit and replay.
type SignalStore interface {
	StoreRaw(ctx context.Context, signals []models.RawSignal) error
	StoreAnnotated(ctx context.Context, signals []models.AnnotatedSignal) error
	Close() error
}

// Publisher sends raw signals to the transport topic.
type Publisher interface {
	PublishBatch(ctx context.Context, signals []models.RawSignal) error
	Close() error
}

// Notifier delivers incident alerts to an outbound channel. The caller
// applies the severity/status gate before invoking.
type Notifier interface {
	BroadcastIncident(ctx context.Context, incident models.Incident) error
}

// SignalStream is a live push source (websocket sensor grid). Mirrors the
// collector contract but delivers continuously instead of per cycle.
type SignalStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawSignal, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSignalsCollected(source string, count int)
	RecordIncidentFormed(severity string)
	RecordError(kind string)
	RecordLocationRisk(location string, score float64)
	RecordLatency(op string, seconds float64)
}
