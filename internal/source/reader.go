//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads raw SAP ECC and BW records from the upstream store.
// The store is reached through database/sql so that either PostgreSQL (pgx)
// or Snowflake can host the raw tables.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
)

// Dialect selects the bind placeholder style of the upstream store.
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders.
	Postgres Dialect = iota

	// Snowflake uses ? placeholders.
	Snowflake
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "snowflake":
		return Snowflake, nil
	default:
		return 0, fmt.Errorf("unsupported source driver: %s", driver)
	}
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == Snowflake {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

const eccQueryTemplate = `
SELECT customer_id, order_number, order_date, product_code, quantity,
       unit_price, total_amount, status, sales_rep, region, processed_at
FROM sap_ecc_raw_data
WHERE is_active = TRUE
  AND is_deleted = FALSE
  AND processed_at >= %s
ORDER BY processed_at DESC`

const bwQueryTemplate = `
SELECT customer_id, product_code, sales_amount, sales_quantity, sales_date,
       sales_rep, region, channel, product_category, customer_segment,
       processed_at
FROM sap_bw_raw_data
WHERE is_active = TRUE
  AND is_deleted = FALSE
  AND processed_at >= %s
ORDER BY processed_at DESC`

// Reader reads raw SAP rows within a trailing processed_at window.
type Reader struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to the upstream store with the given driver and DSN and
// verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Reader, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping source database: %w", err)
	}

	return NewReader(db, dialect), nil
}

// NewReader wraps an existing database handle.
func NewReader(db *sql.DB, dialect Dialect) *Reader {
	return &Reader{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used to compute the window cutoff.
func (r *Reader) WithClock(now func() time.Time) *Reader {
	r.now = now
	return r
}

// Close closes the underlying database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Cutoff returns the earliest processed_at included for a window of days.
func (r *Reader) Cutoff(windowDays int) time.Time {
	return r.now().AddDate(0, 0, -windowDays)
}

// ReadECC returns active, non-deleted ECC order lines processed within the
// last windowDays days, newest first. NULL keys and amounts are carried
// through for validation to reject; they do not fail the read.
func (r *Reader) ReadECC(ctx context.Context, windowDays int) ([]model.ECCRecord, error) {
	query := fmt.Sprintf(eccQueryTemplate, r.dialect.Placeholder(1))

	rows, err := r.db.QueryContext(ctx, query, r.Cutoff(windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to query SAP ECC data: %w", err)
	}
	defer rows.Close()

	records := make([]model.ECCRecord, 0)
	for rows.Next() {
		var (
			rec         model.ECCRecord
			customerID  sql.NullString
			productCode sql.NullString
			unitPrice   decimal.NullDecimal
		)
		if err := rows.Scan(
			&customerID,
			&rec.OrderNumber,
			&rec.OrderDate,
			&productCode,
			&rec.Quantity,
			&unitPrice,
			&rec.TotalAmount,
			&rec.Status,
			&rec.SalesRep,
			&rec.Region,
			&rec.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan SAP ECC row: %w", err)
		}
		rec.CustomerID = customerID.String
		rec.ProductCode = productCode.String
		if unitPrice.Valid {
			rec.UnitPrice = &unitPrice.Decimal
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SAP ECC rows: %w", err)
	}

	logging.Info().Int("records", len(records)).Msg("Retrieved SAP ECC records")
	return records, nil
}

// ReadBW returns active, non-deleted BW summary rows processed within the
// last windowDays days, newest first.
func (r *Reader) ReadBW(ctx context.Context, windowDays int) ([]model.BWRecord, error) {
	query := fmt.Sprintf(bwQueryTemplate, r.dialect.Placeholder(1))

	rows, err := r.db.QueryContext(ctx, query, r.Cutoff(windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to query SAP BW data: %w", err)
	}
	defer rows.Close()

	records := make([]model.BWRecord, 0)
	for rows.Next() {
		var (
			rec         model.BWRecord
			customerID  sql.NullString
			productCode sql.NullString
		)
		if err := rows.Scan(
			&customerID,
			&productCode,
			&rec.SalesAmount,
			&rec.SalesQuantity,
			&rec.SalesDate,
			&rec.SalesRep,
			&rec.Region,
			&rec.Channel,
			&rec.ProductCategory,
			&rec.CustomerSegment,
			&rec.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan SAP BW row: %w", err)
		}
		rec.CustomerID = customerID.String
		rec.ProductCode = productCode.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SAP BW rows: %w", err)
	}

	logging.Info().Int("records", len(records)).Msg("Retrieved SAP BW records")
	return records, nil
}
