package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	"Noesis/pkg/logger"
)

// KafkaSignalsHandler consumes raw signals off the transport topic and flushes
// them to the signal store in batches. One handler instance may be driven by
// multiple consumer workers, so the buffer is mutex-guarded.
type KafkaSignalsHandler struct {
	topic     string
	store     drepo.SignalStore
	batchSize int
	maxAge    time.Duration
	log       *logger.Logger

	mu     sync.Mutex
	buffer []models.RawSignal
	oldest time.Time
}

// NewKafkaSignalsHandler creates the handler. batchSize bounds buffered rows;
// maxAge bounds how long a partial batch may sit before a flush.
func NewKafkaSignalsHandler(topic string, store drepo.SignalStore, batchSize int, maxAge time.Duration, log *logger.Logger) *KafkaSignalsHandler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Second
	}
	return &KafkaSignalsHandler{
		topic:     topic,
		store:     store,
		batchSize: batchSize,
		maxAge:    maxAge,
		log:       log,
		buffer:    make([]models.RawSignal, 0, batchSize),
	}
}

// Topic returns the consumed topic.
func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// Handle parses one message and buffers it. A malformed payload is an error
// so the consumer's retry and DLQ policy applies.
func (h *KafkaSignalsHandler) Handle(ctx context.Context, payload []byte) error {
	var signal models.RawSignal
	if err := json.Unmarshal(payload, &signal); err != nil {
		return fmt.Errorf("decode raw signal: %w", err)
	}

	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.oldest = time.Now()
	}
	h.buffer = append(h.buffer, signal)
	flush := len(h.buffer) >= h.batchSize || time.Since(h.oldest) >= h.maxAge
	h.mu.Unlock()

	if flush {
		return h.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered batch to the store. Called on size or age
// triggers and once more at shutdown.
func (h *KafkaSignalsHandler) Flush(ctx context.Context) error {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return nil
	}
	batch := h.buffer
	h.buffer = make([]models.RawSignal, 0, h.batchSize)
	h.mu.Unlock()

	if err := h.store.StoreRaw(ctx, batch); err != nil {
		h.log.Error("flush raw signal batch failed",
			logger.Int("batch", len(batch)),
			logger.Error(err))
		return err
	}
	h.log.Debug("flushed raw signal batch", logger.Int("batch", len(batch)))
	return nil
}
