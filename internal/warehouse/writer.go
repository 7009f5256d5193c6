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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
)

const upsertCustomerSQL = `
INSERT INTO customers (
    customer_id, customer_segment, region, sales_rep, total_orders,
    total_sales_amount, last_order_date, created_at, updated_at, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (customer_id) DO UPDATE SET
    customer_segment   = EXCLUDED.customer_segment,
    region             = EXCLUDED.region,
    sales_rep          = EXCLUDED.sales_rep,
    total_orders       = EXCLUDED.total_orders,
    total_sales_amount = EXCLUDED.total_sales_amount,
    last_order_date    = EXCLUDED.last_order_date,
    updated_at         = EXCLUDED.updated_at,
    is_active          = EXCLUDED.is_active`

const upsertProductSQL = `
INSERT INTO products (
    product_code, product_category, unit_price, total_quantity_sold,
    total_sales_amount, created_at, updated_at, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (product_code) DO UPDATE SET
    product_category    = EXCLUDED.product_category,
    unit_price          = EXCLUDED.unit_price,
    total_quantity_sold = EXCLUDED.total_quantity_sold,
    total_sales_amount  = EXCLUDED.total_sales_amount,
    updated_at          = EXCLUDED.updated_at,
    is_active           = EXCLUDED.is_active`

// salesColumns is the COPY column list for the sales table.
var salesColumns = []string{
	"customer_id", "product_code", "order_number", "sales_date",
	"sales_amount", "sales_quantity", "unit_price", "region", "channel",
	"sales_rep", "data_source", "created_at", "is_active",
}

// TxBeginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Writer persists reconciled entities. Customers and products are upserted
// by key, with created_at kept from the first insert; sales are appended.
type Writer struct {
	db TxBeginner
}

// NewWriter creates a writer over the given connection or pool.
func NewWriter(db TxBeginner) *Writer {
	return &Writer{db: db}
}

// Write stores all three entity sets in a single transaction. On any
// failure the transaction is rolled back and nothing is persisted.
func (w *Writer) Write(ctx context.Context, customers []model.Customer, products []model.Product, sales []model.Sale) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(ctx)
	}()

	for _, c := range customers {
		if _, err := tx.Exec(ctx, upsertCustomerSQL,
			c.CustomerID,
			c.Segment,
			c.Region,
			c.SalesRep,
			c.TotalOrders,
			numeric(c.TotalSalesAmount),
			c.LastOrderDate,
			c.CreatedAt,
			c.UpdatedAt,
			c.IsActive,
		); err != nil {
			return fmt.Errorf("failed to upsert customer %s: %w", c.CustomerID, err)
		}
	}

	for _, p := range products {
		if _, err := tx.Exec(ctx, upsertProductSQL,
			p.ProductCode,
			p.Category,
			numeric(p.UnitPrice),
			numeric(p.TotalQuantitySold),
			numeric(p.TotalSalesAmount),
			p.CreatedAt,
			p.UpdatedAt,
			p.IsActive,
		); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", p.ProductCode, err)
		}
	}

	if len(sales) > 0 {
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sales"},
			salesColumns,
			pgx.CopyFromSlice(len(sales), func(i int) ([]any, error) {
				return saleRow(sales[i]), nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to copy sales: %w", err)
		}
		if copied != int64(len(sales)) {
			return fmt.Errorf("copied %d of %d sales", copied, len(sales))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info().
		Int("customers", len(customers)).
		Int("products", len(products)).
		Int("sales", len(sales)).
		Msg("Saved processed data")

	return nil
}

// saleRow returns the COPY values for a sale, in salesColumns order.
func saleRow(s model.Sale) []any {
	return []any{
		s.CustomerID,
		s.ProductCode,
		s.OrderNumber,
		s.SaleDate,
		numeric(s.SalesAmount),
		numeric(s.SalesQuantity),
		nullNumeric(s.UnitPrice),
		s.Region,
		s.Channel,
		s.SalesRep,
		string(s.DataSource),
		s.CreatedAt,
		s.IsActive,
	}
}
