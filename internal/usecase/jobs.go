package usecase

import (
	"context"

	"Noesis/pkg/logger"
	"Noesis/pkg/queue"
)

// CollectionCyclePayload is the queue message asking for one cycle run.
// An empty Sources list means all registered sources.
type CollectionCyclePayload struct {
	Sources []string `json:"sources"`
}

// CollectionCycleJob runs one pipeline cycle when a collection request is
// dequeued. Lets operators and external schedulers trigger cycles without
// hitting the HTTP API.
type CollectionCycleJob struct {
	cycle *Cycle
	log   *logger.Logger
}

func NewCollectionCycleJob(cycle *Cycle, log *logger.Logger) *CollectionCycleJob {
	return &CollectionCycleJob{cycle: cycle, log: log}
}

func (j *CollectionCycleJob) Name() string { return "collection-cycle" }

func (j *CollectionCycleJob) Type() string { return "collection.cycle" }

func (j *CollectionCycleJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[CollectionCyclePayload](payload)
	if err != nil {
		return err
	}

	result, err := j.cycle.RunFrom(ctx, req.Sources)
	if err != nil {
		return err
	}
	j.log.Info("queued cycle finished",
		logger.Int("signals", result.Tally.Total),
		logger.Int("incidents", len(result.Incidents)))
	return nil
}
