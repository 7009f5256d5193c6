//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the ETL: read both SAP sources, reconcile them into
// customers, products and sales, and write the result to the warehouse.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/reconcile"
)

// JobName is the registry name of the ETL job.
const JobName = "etl"

// Source reads raw SAP records within a trailing window of days.
type Source interface {
	ReadECC(ctx context.Context, windowDays int) ([]model.ECCRecord, error)
	ReadBW(ctx context.Context, windowDays int) ([]model.BWRecord, error)
}

// Sink persists reconciled entities atomically.
type Sink interface {
	Write(ctx context.Context, customers []model.Customer, products []model.Product, sales []model.Sale) error
}

// RunRecorder stores the outcome of a completed run.
type RunRecorder interface {
	RecordRun(ctx context.Context, job, result string, at time.Time) error
}

// Stage names used in errors and logs.
const (
	StageReadECC            = "read SAP ECC data"
	StageReadBW             = "read SAP BW data"
	StageReconcileCustomers = "reconcile customers"
	StageReconcileProducts  = "reconcile products"
	StageReconcileSales     = "reconcile sales"
	StageWrite              = "save processed data"
)

// Pipeline wires a source, the reconciler and a sink.
type Pipeline struct {
	source     Source
	sink       Sink
	recorder   RunRecorder
	reconciler *reconcile.Reconciler
	windowDays int
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecorder records each successful run's summary.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock sets the time source for the reconciler and run records.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.reconciler = reconcile.NewWithClock(now)
	}
}

// New creates a pipeline reading windowDays of source history per run.
func New(source Source, sink Sink, windowDays int, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		sink:       sink,
		reconciler: reconcile.New(),
		windowDays: windowDays,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StageError identifies which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunETL performs one full run. The first failing stage aborts the run and
// its error is returned; nothing is written unless every stage succeeds.
func (p *Pipeline) RunETL(ctx context.Context) (string, error) {
	runID := uuid.New().String()
	log := logging.With("job", JobName, "run_id", runID)
	started := time.Now()

	log.Info().Int("window_days", p.windowDays).Msg("Retrieving raw SAP data")

	ecc, err := p.source.ReadECC(ctx, p.windowDays)
	if err != nil {
		return "", p.fail(log, StageReadECC, err)
	}
	bw, err := p.source.ReadBW(ctx, p.windowDays)
	if err != nil {
		return "", p.fail(log, StageReadBW, err)
	}

	ecc, bw, skipped := p.reconciler.Clean(ecc, bw)
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Dropped invalid raw records")
	}

	log.Info().Str("stage", StageReconcileCustomers).Msg("Processing customer data")
	customers := p.reconciler.Customers(ecc, bw)

	log.Info().Str("stage", StageReconcileProducts).Msg("Processing product data")
	products := p.reconciler.Products(ecc, bw)

	log.Info().Str("stage", StageReconcileSales).Msg("Processing sales data")
	sales := p.reconciler.Sales(ecc, bw)

	log.Info().Msg("Saving processed data")
	if err := p.sink.Write(ctx, customers, products, sales); err != nil {
		return "", p.fail(log, StageWrite, err)
	}

	result := fmt.Sprintf("Successfully processed %d customers, %d products, and %d sales records",
		len(customers), len(products), len(sales))

	if p.recorder != nil {
		if err := p.recorder.RecordRun(ctx, JobName, result, p.now()); err != nil {
			// The data is already committed; a missing run record is not fatal.
			log.Warn().Err(err).Msg("Failed to record run metadata")
		}
	}

	log.Info().
		Int("ecc_records", len(ecc)).
		Int("bw_records", len(bw)).
		Int("skipped", skipped).
		Dur("duration", time.Since(started)).
		Msg(result)

	return result, nil
}

func (p *Pipeline) fail(log zerolog.Logger, stage string, err error) error {
	log.Error().Err(err).Str("stage", stage).Msg("ETL run failed")
	return &StageError{Stage: stage, Err: err}
}
