//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/insights"
	"github.com/pgEdge/pgedge-salesync/internal/jobs"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/pipeline"
	"github.com/pgEdge/pgedge-salesync/internal/search"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
	"github.com/pgEdge/pgedge-salesync/internal/source"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

var jobDescriptions = []struct {
	name        string
	description string
}{
	{pipeline.JobName, "Reconcile SAP ECC and BW data into the warehouse"},
	{search.JobName, "Rebuild the search index from the warehouse"},
	{insights.JobName, "Generate business insights from recent sales"},
}

func describe(name string) string {
	for _, j := range jobDescriptions {
		if j.name == name {
			return j.description
		}
	}
	return ""
}

func scheduleMap() map[string]string {
	return map[string]string{
		pipeline.JobName: cfg.Schedule.ETL,
		search.JobName:   cfg.Schedule.Index,
		insights.JobName: cfg.Schedule.Insights,
	}
}

func connectWarehouse(ctx context.Context, provider *secrets.Provider) (*pgxpool.Pool, error) {
	connString, err := provider.WarehouseConnection()
	if err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, connString, int32(cfg.Warehouse.MaxConns))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return pool, nil
}

func openSource(ctx context.Context, provider *secrets.Provider) (*source.Reader, error) {
	dsn, err := provider.SourceConnection()
	if err != nil {
		return nil, err
	}
	reader, err := source.Open(ctx, cfg.Source.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SAP data store: %w", err)
	}
	return reader, nil
}

func newSearchClient(provider *secrets.Provider) (*search.Client, error) {
	endpoint, err := provider.SearchEndpoint()
	if err != nil {
		return nil, err
	}
	key, err := provider.SearchKey()
	if err != nil {
		return nil, err
	}
	return search.NewClient(endpoint, key, cfg.Search.IndexName, cfg.Search.APIVersion), nil
}

func etlJob(reader *source.Reader, pool *pgxpool.Pool) jobs.Job {
	p := pipeline.New(reader, warehouse.NewWriter(pool), cfg.Source.WindowDays,
		pipeline.WithRecorder(db.RunLog{DB: pool}))
	return jobs.New(pipeline.JobName, describe(pipeline.JobName), p.RunETL)
}

func indexJob(pool *pgxpool.Pool, client *search.Client) jobs.Job {
	ix := search.NewIndexer(warehouse.NewStore(pool), client,
		search.DefaultSchema(cfg.Search.IndexName), cfg.Search.BatchSize, cfg.Search.SalesDays)
	return jobs.FromResult(search.JobName, describe(search.JobName), ix.Run)
}

func insightsJob(pool *pgxpool.Pool) jobs.Job {
	g := insights.NewGenerator(warehouse.NewStore(pool), cfg.Insights.Days)
	return jobs.FromResult(insights.JobName, describe(insights.JobName), g.Run)
}

// runOnce runs a single job outside the scheduler.
func runOnce(ctx context.Context, job jobs.Job) (string, error) {
	logging.Info().Str("job", job.Name()).Msg(job.Description())
	return job.Run(ctx)
}
