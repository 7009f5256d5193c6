//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse owns the analytical PostgreSQL schema: the reconciled
// customers, products and sales tables, the business insights table, and
// the raw SAP tables used when PostgreSQL also hosts the upstream feed.
package warehouse

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
)

// createSchemaSQL creates the analytical tables.
const createSchemaSQL = `
-- Customers: one row per customer across both SAP sources
CREATE TABLE IF NOT EXISTS customers (
    customer_id         TEXT PRIMARY KEY,
    customer_segment    TEXT,
    region              TEXT,
    sales_rep           TEXT,
    total_orders        BIGINT NOT NULL DEFAULT 0 CHECK (total_orders >= 0),
    total_sales_amount  NUMERIC(18,4) NOT NULL DEFAULT 0 CHECK (total_sales_amount >= 0),
    last_order_date     TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active           BOOLEAN NOT NULL DEFAULT TRUE
);

-- Products: one row per product code
CREATE TABLE IF NOT EXISTS products (
    product_code        TEXT PRIMARY KEY,
    product_category    TEXT,
    unit_price          NUMERIC(18,4) NOT NULL DEFAULT 0,
    total_quantity_sold NUMERIC(18,4) NOT NULL DEFAULT 0 CHECK (total_quantity_sold >= 0),
    total_sales_amount  NUMERIC(18,4) NOT NULL DEFAULT 0 CHECK (total_sales_amount >= 0),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active           BOOLEAN NOT NULL DEFAULT TRUE
);

-- Sales: append-only sale events from both sources
CREATE TABLE IF NOT EXISTS sales (
    id              BIGSERIAL PRIMARY KEY,
    customer_id     TEXT NOT NULL,
    product_code    TEXT NOT NULL,
    order_number    TEXT,
    sales_date      TIMESTAMPTZ NOT NULL,
    sales_amount    NUMERIC(18,4) NOT NULL,
    sales_quantity  NUMERIC(18,4) NOT NULL,
    unit_price      NUMERIC(18,4),
    region          TEXT,
    channel         TEXT,
    sales_rep       TEXT,
    data_source     TEXT NOT NULL CHECK (data_source IN ('SAP_ECC', 'SAP_BW')),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_sales_sales_date ON sales(sales_date);
CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_id);
CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_code);
CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);

-- Business insights: one JSON document per insight section per run
CREATE TABLE IF NOT EXISTS business_insights (
    id              UUID PRIMARY KEY,
    insight_type    TEXT NOT NULL,
    insight_data    JSONB NOT NULL,
    generated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_insights_type_generated
    ON business_insights(insight_type, generated_at DESC);
`

// createRawSchemaSQL creates the raw SAP landing tables.
const createRawSchemaSQL = `
-- SAP ECC order lines
CREATE TABLE IF NOT EXISTS sap_ecc_raw_data (
    id              BIGSERIAL PRIMARY KEY,
    customer_id     TEXT NOT NULL,
    order_number    TEXT,
    order_date      TIMESTAMPTZ NOT NULL,
    product_code    TEXT NOT NULL,
    quantity        NUMERIC(18,4) NOT NULL,
    unit_price      NUMERIC(18,4) NOT NULL,
    total_amount    NUMERIC(18,4) NOT NULL,
    status          TEXT,
    sales_rep       TEXT,
    region          TEXT,
    processed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_ecc_raw_processed ON sap_ecc_raw_data(processed_at);

-- SAP BW sales summaries
CREATE TABLE IF NOT EXISTS sap_bw_raw_data (
    id                BIGSERIAL PRIMARY KEY,
    customer_id       TEXT NOT NULL,
    product_code      TEXT NOT NULL,
    sales_amount      NUMERIC(18,4) NOT NULL,
    sales_quantity    NUMERIC(18,4) NOT NULL,
    sales_date        TIMESTAMPTZ NOT NULL,
    sales_rep         TEXT,
    region            TEXT,
    channel           TEXT,
    product_category  TEXT,
    customer_segment  TEXT,
    processed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    is_deleted        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_bw_raw_processed ON sap_bw_raw_data(processed_at);
`

const dropSchemaSQL = `
DROP TABLE IF EXISTS business_insights CASCADE;
DROP TABLE IF EXISTS sales CASCADE;
DROP TABLE IF EXISTS products CASCADE;
DROP TABLE IF EXISTS customers CASCADE;
`

const dropRawSchemaSQL = `
DROP TABLE IF EXISTS sap_bw_raw_data CASCADE;
DROP TABLE IF EXISTS sap_ecc_raw_data CASCADE;
`

// AnalyticalTables lists the tables created by CreateSchema.
var AnalyticalTables = []string{"customers", "products", "sales", "business_insights"}

// RawTables lists the tables created by CreateRawSchema.
var RawTables = []string{"sap_ecc_raw_data", "sap_bw_raw_data"}

// CreateSchema creates the analytical tables and the metadata table.
func CreateSchema(ctx context.Context, conn db.DB) error {
	logging.Info().Msg("Creating warehouse schema")

	if _, err := conn.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := db.EnsureMetadata(ctx, conn); err != nil {
		return err
	}

	logging.Info().Msg("Warehouse schema created successfully")
	return nil
}

// CreateRawSchema creates the raw SAP landing tables.
func CreateRawSchema(ctx context.Context, conn db.DB) error {
	logging.Info().Msg("Creating raw SAP tables")

	if _, err := conn.Exec(ctx, createRawSchemaSQL); err != nil {
		return fmt.Errorf("failed to create raw schema: %w", err)
	}
	return nil
}

// DropSchema drops the analytical tables and the metadata table.
func DropSchema(ctx context.Context, conn db.DB) error {
	logging.Info().Msg("Dropping warehouse schema")

	if _, err := conn.Exec(ctx, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	if err := db.DropMetadata(ctx, conn); err != nil {
		return fmt.Errorf("failed to drop metadata: %w", err)
	}
	return nil
}

// DropRawSchema drops the raw SAP landing tables.
func DropRawSchema(ctx context.Context, conn db.DB) error {
	if _, err := conn.Exec(ctx, dropRawSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop raw schema: %w", err)
	}
	return nil
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// CountRows returns row counts for the given tables, in order.
func CountRows(ctx context.Context, conn db.DB, tables []string) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(tables))
	for _, table := range tables {
		var n int64
		if err := conn.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}
