//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const createInsightsTableSQL = `
CREATE TABLE IF NOT EXISTS business_insights (
    id              UUID PRIMARY KEY,
    insight_type    TEXT NOT NULL,
    insight_data    JSONB NOT NULL,
    generated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE
)`

// Insight is one stored insight document.
type Insight struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"insight_type"`
	Data        json.RawMessage `json:"insight_data"`
	GeneratedAt time.Time       `json:"generated_at"`
	IsActive    bool            `json:"is_active"`
}

// SaveInsights creates the insights table if needed and inserts one row per
// insight. Rows without an id get a random one.
func (s *Store) SaveInsights(ctx context.Context, insights []Insight) error {
	if _, err := s.db.Exec(ctx, createInsightsTableSQL); err != nil {
		return fmt.Errorf("failed to create insights table: %w", err)
	}

	for _, in := range insights {
		id := in.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		generated := in.GeneratedAt
		if generated.IsZero() {
			generated = time.Now().UTC()
		}
		if _, err := s.db.Exec(ctx, `
            INSERT INTO business_insights (id, insight_type, insight_data, generated_at, is_active)
            VALUES ($1, $2, $3, $4, TRUE)
        `, id.String(), in.Type, string(in.Data), generated); err != nil {
			return fmt.Errorf("failed to save insight %s: %w", in.Type, err)
		}
	}
	return nil
}

// LatestInsights returns the most recent active insight of each type.
func (s *Store) LatestInsights(ctx context.Context) ([]Insight, error) {
	rows, err := s.db.Query(ctx, `
        SELECT DISTINCT ON (insight_type)
               id::text, insight_type, insight_data::text, generated_at, is_active
        FROM business_insights
        WHERE is_active = TRUE
        ORDER BY insight_type, generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	out := make([]Insight, 0)
	for rows.Next() {
		var (
			in   Insight
			id   string
			data string
		)
		if err := rows.Scan(&id, &in.Type, &data, &in.GeneratedAt, &in.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if in.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid insight id %q: %w", id, err)
		}
		in.Data = json.RawMessage(data)
		out = append(out, in)
	}
	return out, rows.Err()
}
