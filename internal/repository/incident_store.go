package repository

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
)

const sourcesSeparator = "\n"

// ClickHouseIncidentStore persists incidents to ClickHouse. Sources are
// stored newline-joined; links never contain newlines so the join is
// reversible. Missing coordinates are stored as a zero pair with has_coords
// unset.
type ClickHouseIncidentStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseIncidentStore creates the incident store.
func NewClickHouseIncidentStore(db *sql.DB, table string) drepo.IncidentStore {
	return &ClickHouseIncidentStore{db: db, table: table}
}

// IncidentSchema returns the DDL for the incident table.
func IncidentSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id Int64,
		created_at DateTime,
		title String,
		description String,
		sources String,
		location String,
		lat Float64,
		lng Float64,
		has_coords UInt8,
		severity LowCardinality(String),
		status LowCardinality(String),
		confidence_score UInt8,
		platform_diversity UInt16,
		source_count UInt32
	) ENGINE = MergeTree() ORDER BY (created_at, id)`, table)
}

func (s *ClickHouseIncidentStore) Save(ctx context.Context, incidents []models.Incident) error {
	if len(incidents) == 0 {
		return nil
	}

	values := make([]string, 0, len(incidents))
	args := make([]interface{}, 0, len(incidents)*14)
	for i := range incidents {
		inc := &incidents[i]
		if inc.ID == 0 {
			inc.ID = incidentID(inc)
		}

		lat, lng, hasCoords := 0.0, 0.0, uint8(0)
		if inc.LocationLat != nil && inc.LocationLng != nil {
			lat, lng, hasCoords = *inc.LocationLat, *inc.LocationLng, 1
		}

		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			inc.ID,
			inc.CreatedAt,
			inc.Title,
			inc.Description,
			strings.Join(inc.Sources, sourcesSeparator),
			inc.Location,
			lat,
			lng,
			hasCoords,
			inc.Severity,
			inc.Status,
			uint8(inc.ConfidenceScore),
			uint16(inc.PlatformDiversity),
			uint32(inc.SourceCount),
		)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (id, created_at, title, description, sources, location, lat, lng, has_coords, severity, status, confidence_score, platform_diversity, source_count) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert incidents: %w", err)
	}
	return nil
}

func (s *ClickHouseIncidentStore) Query(ctx context.Context, filter drepo.IncidentFilter) ([]models.Incident, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Region != "" {
		conds = append(conds, "positionCaseInsensitive(location, ?) > 0")
		args = append(args, filter.Region)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Since)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	q := fmt.Sprintf(
		"SELECT id, created_at, title, description, sources, location, lat, lng, has_coords, severity, status, confidence_score, platform_diversity, source_count FROM %s%s ORDER BY created_at DESC LIMIT ?",
		s.table, where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		var (
			inc        models.Incident
			createdAt  time.Time
			sources    string
			lat, lng   float64
			hasCoords  uint8
			confidence uint8
			diversity  uint16
			count      uint32
		)
		if err := rows.Scan(&inc.ID, &createdAt, &inc.Title, &inc.Description, &sources,
			&inc.Location, &lat, &lng, &hasCoords, &inc.Severity, &inc.Status,
			&confidence, &diversity, &count); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.CreatedAt = createdAt
		if sources != "" {
			inc.Sources = strings.Split(sources, sourcesSeparator)
		}
		if hasCoords == 1 {
			inc.LocationLat = &lat
			inc.LocationLng = &lng
		}
		inc.ConfidenceScore = int(confidence)
		inc.PlatformDiversity = int(diversity)
		inc.SourceCount = int(count)
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

func (s *ClickHouseIncidentStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseIncidentStore) Close() error {
	return nil // connection owned by the clickhouse client
}

// incidentID derives a stable id from the immutable creation-time fields.
func incidentID(inc *models.Incident) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(inc.Title))
	_, _ = h.Write([]byte(inc.Location))
	_, _ = h.Write([]byte(inc.CreatedAt.UTC().Format(time.RFC3339Nano)))
	return int64(h.Sum64() >> 1)
}
