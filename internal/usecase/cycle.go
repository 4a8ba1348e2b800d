package usecase

import (
	"context"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	"Noesis/internal/service/annotate"
	"Noesis/pkg/logger"
)

// CycleResult is the outcome of one full pipeline run.
type CycleResult struct {
	Tally     CycleTally        `json:"tally"`
	Incidents []models.Incident `json:"incidents"`
	Alerted   int               `json:"alerted"`
}

// Cycle orchestrates one end-to-end pass: collect, annotate, persist, form
// incidents, store them, and fan out alerts. Persistence and transport
// failures are logged and counted but never abort the pass; the computed
// incidents are always returned.
type Cycle struct {
	coordinator *CollectionCoordinator
	annotator   drepo.Annotator
	formation   *IncidentFormation
	publisher   drepo.Publisher
	signals     drepo.SignalStore
	incidents   drepo.IncidentStore
	notifier    drepo.Notifier
	metrics     drepo.Metrics
	log         *logger.Logger
}

func NewCycle(
	coordinator *CollectionCoordinator,
	annotator drepo.Annotator,
	formation *IncidentFormation,
	publisher drepo.Publisher,
	signals drepo.SignalStore,
	incidents drepo.IncidentStore,
	notifier drepo.Notifier,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Cycle {
	return &Cycle{
		coordinator: coordinator,
		annotator:   annotator,
		formation:   formation,
		publisher:   publisher,
		signals:     signals,
		incidents:   incidents,
		notifier:    notifier,
		metrics:     metrics,
		log:         log,
	}
}

// Run executes one cycle over all sources.
func (c *Cycle) Run(ctx context.Context) (CycleResult, error) {
	return c.run(ctx, nil)
}

// RunFrom executes one cycle restricted to the named sources.
func (c *Cycle) RunFrom(ctx context.Context, sources []string) (CycleResult, error) {
	return c.run(ctx, sources)
}

func (c *Cycle) run(ctx context.Context, sources []string) (CycleResult, error) {
	start := time.Now()

	raw, tally := c.coordinator.CollectFrom(ctx, sources)
	result := CycleResult{Tally: tally}

	if len(raw) == 0 {
		c.log.Info("cycle produced no signals")
		return result, nil
	}

	if c.publisher != nil {
		if err := c.publisher.PublishBatch(ctx, raw); err != nil {
			c.log.Error("publish raw signals failed", logger.Error(err))
			c.metrics.RecordError("publish_raw")
		}
	}
	if c.signals != nil {
		if err := c.signals.StoreRaw(ctx, raw); err != nil {
			c.log.Error("store raw signals failed", logger.Error(err))
			c.metrics.RecordError("store_raw")
		}
	}

	annotated := c.annotate(raw)

	if c.signals != nil {
		if err := c.signals.StoreAnnotated(ctx, annotated); err != nil {
			c.log.Error("store annotated signals failed", logger.Error(err))
			c.metrics.RecordError("store_annotated")
		}
	}

	incidents := c.formation.FormIncidents(ctx, annotated)
	result.Incidents = incidents

	if len(incidents) > 0 && c.incidents != nil {
		if err := c.incidents.Save(ctx, incidents); err != nil {
			c.log.Error("save incidents failed", logger.Error(err))
			c.metrics.RecordError("save_incidents")
		}
	}

	result.Alerted = c.alert(ctx, incidents)

	c.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	c.log.Info("cycle complete",
		logger.Int("signals", len(raw)),
		logger.Int("incidents", len(incidents)),
		logger.Int("alerted", result.Alerted),
		logger.Duration("took", time.Since(start)))
	return result, nil
}

// annotate scores each raw signal. An annotator failure yields a neutral
// record (zero relevance, zero sentiment) so the signal is dropped by the
// relevance gate downstream instead of aborting the batch.
func (c *Cycle) annotate(raw []models.RawSignal) []models.AnnotatedSignal {
	annotated := make([]models.AnnotatedSignal, 0, len(raw))
	for _, r := range raw {
		a, err := c.annotator.Annotate(r)
		if err != nil {
			c.log.Warn("annotation failed",
				logger.String("platform", r.Platform),
				logger.Error(err))
			c.metrics.RecordError("annotate")
			a = models.AnnotatedSignal{
				Platform: r.Platform,
				Content:  r.Content,
				Link:     r.Link,
				// The reported time survives in every layout the annotator
				// accepts; zero when none matches.
				Timestamp: annotate.ParseTimestamp(r.Timestamp),
			}
		}
		annotated = append(annotated, a)
	}
	return annotated
}

// alert pushes every incident that passes the severity/status gate through
// the notifier. Notification failures do not affect the stored incidents.
func (c *Cycle) alert(ctx context.Context, incidents []models.Incident) int {
	if c.notifier == nil {
		return 0
	}
	sent := 0
	for i := range incidents {
		if !incidents[i].Alertable() {
			continue
		}
		if err := c.notifier.BroadcastIncident(ctx, incidents[i]); err != nil {
			c.log.Warn("incident broadcast failed",
				logger.String("location", incidents[i].Location),
				logger.Error(err))
			c.metrics.RecordError("broadcast")
			continue
		}
		sent++
	}
	return sent
}
