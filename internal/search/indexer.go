//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package search republishes the reconciled warehouse into a search index.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

// JobName is the registry name of the index update job.
const JobName = "index"

// DefaultBatchSize is the number of documents per upload request.
const DefaultBatchSize = 1000

// Store reads the entities that are published to the index.
type Store interface {
	Customers(ctx context.Context) ([]model.Customer, error)
	Products(ctx context.Context) ([]model.Product, error)
	SalesCreatedSince(ctx context.Context, since time.Time) ([]warehouse.SaleDetail, error)
}

// Indexer rebuilds the search index from the warehouse.
type Indexer struct {
	store     Store
	index     Index
	schema    Schema
	batchSize int
	salesDays int
	now       func() time.Time
}

// NewIndexer creates an indexer. Sales created within the last salesDays
// are published; customers and products are always published in full.
func NewIndexer(store Store, index Index, schema Schema, batchSize, salesDays int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		store:     store,
		index:     index,
		schema:    schema,
		batchSize: batchSize,
		salesDays: salesDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run recreates the index definition, clears it and uploads every document.
// Failures are reported in the returned message, never as an error.
func (ix *Indexer) Run(ctx context.Context) string {
	log := logging.With("job", JobName, "run_id", uuid.New().String())
	log.Info().Str("index", ix.schema.Name).Msg("Starting search index update")

	if err := ix.index.CreateOrUpdateIndex(ctx, ix.schema); err != nil {
		log.Error().Err(err).Msg("Failed to create or update search index")
		return "Failed to create/update search index"
	}

	cleared, err := ix.index.Clear(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear search index")
		return "Failed to clear existing documents"
	}
	if cleared == 0 {
		log.Info().Msg("Index is already empty")
	} else {
		log.Info().Int("documents", cleared).Msg("Cleared existing documents")
	}

	docs, err := ix.collect(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read warehouse data")
		return fmt.Sprintf("Error updating search index: %v", err)
	}
	if len(docs) == 0 {
		return "No documents found to upload"
	}

	if err := ix.upload(ctx, docs); err != nil {
		log.Error().Err(err).Msg("Failed to upload documents")
		return "Failed to upload documents to search index"
	}

	log.Info().Int("documents", len(docs)).Msg("Search index update complete")
	return fmt.Sprintf("Successfully updated search index with %d documents", len(docs))
}

func (ix *Indexer) collect(ctx context.Context) ([]Document, error) {
	customers, err := ix.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}

	since := ix.now().AddDate(0, 0, -ix.salesDays)
	details, err := ix.store.SalesCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read sales: %w", err)
	}
	sales := make([]model.Sale, len(details))
	for i, d := range details {
		sales[i] = d.Sale
	}

	products, err := ix.store.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	logging.Debug().
		Int("customers", len(customers)).
		Int("sales", len(sales)).
		Int("products", len(products)).
		Msg("Collected search documents")

	return BuildDocuments(customers, products, sales), nil
}

func (ix *Indexer) upload(ctx context.Context, docs []Document) error {
	for start, batch := 0, 1; start < len(docs); start, batch = start+ix.batchSize, batch+1 {
		end := min(start+ix.batchSize, len(docs))

		res, err := ix.index.Upload(ctx, docs[start:end])
		if err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}
		if len(res.Failed) > 0 {
			logging.Warn().
				Int("batch", batch).
				Int("failed", len(res.Failed)).
				Msg("Some documents were rejected")
			for _, f := range res.Failed {
				logging.Warn().Str("key", f.Key).Str("error", f.Message).Msg("Failed document")
			}
		}
		logging.Info().Int("batch", batch).Int("documents", end-start).Msg("Uploaded batch")
	}
	return nil
}
