//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package insights derives periodic business insights from recent sales and
// stores them as JSON documents in the warehouse.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

// JobName is the registry name of the insight generation job.
const JobName = "insights"

// DefaultDays is the default trailing window of sale dates analysed.
const DefaultDays = 30

// Insight types, in generation order.
const (
	TypeSalesTrends = "sales_trends"
	TypeCustomers   = "customer_insights"
	TypeProducts    = "product_insights"
	TypeRegions     = "regional_insights"
	TypeSalesReps   = "sales_rep_insights"
)

// Store reads recent sales and saves generated insights.
type Store interface {
	Sales(ctx context.Context, f warehouse.SalesFilter) ([]warehouse.SaleDetail, error)
	SaveInsights(ctx context.Context, insights []warehouse.Insight) error
}

// Section is one named insight. Data holds either the computed summary or
// an {"error": ...} object when the computation failed.
type Section struct {
	Type string
	Data any
}

type sectionError struct {
	Error string `json:"error"`
}

// Build computes every insight section. A failing section is reported in
// place and does not affect the others.
func Build(sales []warehouse.SaleDetail, now time.Time) []Section {
	compute := []struct {
		name string
		fn   func() (any, error)
	}{
		{TypeSalesTrends, func() (any, error) { return ComputeSalesTrends(sales) }},
		{TypeCustomers, func() (any, error) { return ComputeCustomerInsights(sales, now) }},
		{TypeProducts, func() (any, error) { return ComputeProductInsights(sales) }},
		{TypeRegions, func() (any, error) { return ComputeRegionalInsights(sales) }},
		{TypeSalesReps, func() (any, error) { return ComputeSalesRepInsights(sales) }},
	}

	sections := make([]Section, 0, len(compute))
	for _, c := range compute {
		data, err := c.fn()
		if err != nil {
			logging.Error().Err(err).Str("insight", c.name).Msg("Failed to generate insight")
			data = sectionError{Error: err.Error()}
		}
		sections = append(sections, Section{Type: c.name, Data: data})
	}
	return sections
}

// Generator runs the insight generation job.
type Generator struct {
	store Store
	days  int
	now   func() time.Time
}

// NewGenerator creates a generator analysing the last days of sales.
func NewGenerator(store Store, days int) *Generator {
	if days <= 0 {
		days = DefaultDays
	}
	return &Generator{
		store: store,
		days:  days,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run generates and saves all insights. Failures are reported in the
// returned message, never as an error.
func (g *Generator) Run(ctx context.Context) string {
	log := logging.With("job", JobName, "run_id", uuid.New().String())
	log.Info().Int("days", g.days).Msg("Starting insights generation")

	now := g.now()
	since := now.AddDate(0, 0, -g.days)
	sales, err := g.store.Sales(ctx, warehouse.SalesFilter{DateRange: warehouse.DateRange{Start: &since}})
	if err != nil {
		log.Error().Err(err).Msg("Failed to read sales data")
		return fmt.Sprintf("Error generating insights: %v", err)
	}
	if len(sales) == 0 {
		return "No sales data available for insights generation"
	}

	sources := salesSources(sales)
	log.Info().
		Int("sales", len(sales)).
		Int("ecc", sources[model.SourceECC]).
		Int("bw", sources[model.SourceBW]).
		Msg("Retrieved sales records for insights generation")

	sections := Build(sales, now)
	rows := make([]warehouse.Insight, 0, len(sections))
	for _, s := range sections {
		data, err := json.Marshal(s.Data)
		if err != nil {
			log.Error().Err(err).Str("insight", s.Type).Msg("Failed to encode insight")
			return fmt.Sprintf("Error generating insights: %v", err)
		}
		rows = append(rows, warehouse.Insight{
			ID:          uuid.New(),
			Type:        s.Type,
			Data:        data,
			GeneratedAt: now,
			IsActive:    true,
		})
	}

	if err := g.store.SaveInsights(ctx, rows); err != nil {
		log.Error().Err(err).Msg("Failed to save insights")
		return "Generated insights but failed to save to database"
	}

	log.Info().Int("insights", len(rows)).Msg("Saved insights")
	return fmt.Sprintf("Successfully generated and saved insights for %d sales records", len(sales))
}
