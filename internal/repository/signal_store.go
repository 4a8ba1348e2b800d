package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
)

// ClickHouseSignalStore persists raw and annotated signals for audit and
// replay. Raw rows keep the collector-reported timestamp string untouched;
// annotated rows carry the parsed one.
type ClickHouseSignalStore struct {
	db             *sql.DB
	rawTable       string
	annotatedTable string
}

// NewClickHouseSignalStore creates the signal store.
func NewClickHouseSignalStore(db *sql.DB, rawTable, annotatedTable string) drepo.SignalStore {
	return &ClickHouseSignalStore{db: db, rawTable: rawTable, annotatedTable: annotatedTable}
}

// SignalSchemas returns the DDL for both signal tables.
func SignalSchemas(rawTable, annotatedTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ingested_at DateTime DEFAULT now(),
		platform LowCardinality(String),
		content String,
		author String,
		reported_at String,
		location_raw String,
		link String
	) ENGINE = MergeTree() ORDER BY (ingested_at, platform)`, rawTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ingested_at DateTime DEFAULT now(),
		platform LowCardinality(String),
		relevance_score Float64,
		sentiment_score Float64,
		lat Float64,
		lng Float64,
		has_coords UInt8,
		link String,
		reported_at DateTime,
		content String,
		title String,
		language LowCardinality(String)
	) ENGINE = MergeTree() ORDER BY (ingested_at, platform)`, annotatedTable),
	}
}

func (s *ClickHouseSignalStore) StoreRaw(ctx context.Context, signals []models.RawSignal) error {
	if len(signals) == 0 {
		return nil
	}

	values := make([]string, 0, len(signals))
	args := make([]interface{}, 0, len(signals)*6)
	for _, sig := range signals {
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, sig.Platform, sig.Content, sig.Author, sig.Timestamp, sig.LocationRaw, sig.Link)
	}

	q := fmt.Sprintf("INSERT INTO %s (platform, content, author, reported_at, location_raw, link) VALUES %s",
		s.rawTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert raw signals: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalStore) StoreAnnotated(ctx context.Context, signals []models.AnnotatedSignal) error {
	if len(signals) == 0 {
		return nil
	}

	values := make([]string, 0, len(signals))
	args := make([]interface{}, 0, len(signals)*11)
	for _, sig := range signals {
		lat, lng, hasCoords := 0.0, 0.0, uint8(0)
		if sig.HasCoordinates() {
			lat, lng, hasCoords = *sig.Lat, *sig.Lng, 1
		}
		reportedAt := sig.Timestamp
		if reportedAt.IsZero() {
			// DateTime cannot hold the zero time; the epoch marks unparsable.
			reportedAt = time.Unix(0, 0).UTC()
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, sig.Platform, sig.RelevanceScore, sig.SentimentScore,
			lat, lng, hasCoords, sig.Link, reportedAt, sig.Content, sig.Title, sig.Language)
	}

	q := fmt.Sprintf("INSERT INTO %s (platform, relevance_score, sentiment_score, lat, lng, has_coords, link, reported_at, content, title, language) VALUES %s",
		s.annotatedTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert annotated signals: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // connection owned by the clickhouse client
}
