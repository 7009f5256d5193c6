//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
)

const directChannel = "Direct"

// customerRow is the intermediate shape shared by both merge stages.
type customerRow struct {
	CustomerID string
	Orders     int64
	Amount     decimal.Decimal
	LastOrder  *time.Time
	Region     *string
	SalesRep   *string
	Segment    *string
}

// productRow is the intermediate shape shared by both merge stages.
type productRow struct {
	ProductCode string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
	UnitPrice   *decimal.Decimal
	Category    *string
}

// customerSpec merges customer rows. Used for the per-source rollup and
// for the cross-source merge.
var customerSpec = Spec[customerRow]{
	Key: func(r customerRow) string { return r.CustomerID },
	Rules: []Rule[customerRow]{
		SumInt("total_orders", func(r *customerRow) *int64 { return &r.Orders }),
		SumDecimal("total_sales_amount", func(r *customerRow) *decimal.Decimal { return &r.Amount }),
		MaxTime("last_order_date", func(r *customerRow) **time.Time { return &r.LastOrder }),
		FirstNonNullOf("region", func(r *customerRow) **string { return &r.Region }),
		FirstNonNullOf("sales_rep", func(r *customerRow) **string { return &r.SalesRep }),
		FirstNonNullOf("customer_segment", func(r *customerRow) **string { return &r.Segment }),
	},
}

// productRollupSpec merges the lines of a single source. Line prices are
// averaged.
var productRollupSpec = Spec[productRow]{
	Key: func(r productRow) string { return r.ProductCode },
	Rules: []Rule[productRow]{
		SumDecimal("total_quantity_sold", func(r *productRow) *decimal.Decimal { return &r.Quantity }),
		SumDecimal("total_sales_amount", func(r *productRow) *decimal.Decimal { return &r.Amount }),
		MeanDecimal("unit_price", func(r *productRow) **decimal.Decimal { return &r.UnitPrice }),
		FirstNonNullOf("product_category", func(r *productRow) **string { return &r.Category }),
	},
}

// productMergeSpec merges per-source product rollups. ECC rollups come first,
// so the ECC mean price wins over the BW placeholder price of zero.
var productMergeSpec = Spec[productRow]{
	Key: func(r productRow) string { return r.ProductCode },
	Rules: []Rule[productRow]{
		SumDecimal("total_quantity_sold", func(r *productRow) *decimal.Decimal { return &r.Quantity }),
		SumDecimal("total_sales_amount", func(r *productRow) *decimal.Decimal { return &r.Amount }),
		FirstNonNullOf("unit_price", func(r *productRow) **decimal.Decimal { return &r.UnitPrice }),
		FirstNonNullOf("product_category", func(r *productRow) **string { return &r.Category }),
	},
}

// Result is the output of a full reconciliation.
type Result struct {
	Customers []model.Customer
	Products  []model.Product
	Sales     []model.Sale

	// Skipped counts raw records dropped by validation.
	Skipped int
}

// Reconciler turns raw SAP records into analytical entities.
type Reconciler struct {
	now func() time.Time
}

// New creates a Reconciler using the wall clock in UTC.
func New() *Reconciler {
	return &Reconciler{now: func() time.Time { return time.Now().UTC() }}
}

// NewWithClock creates a Reconciler with a fixed time source.
func NewWithClock(now func() time.Time) *Reconciler {
	return &Reconciler{now: now}
}

// Clean drops raw records that fail validation and returns the number
// dropped.
func (r *Reconciler) Clean(ecc []model.ECCRecord, bw []model.BWRecord) ([]model.ECCRecord, []model.BWRecord, int) {
	skipped := 0

	cleanECC := make([]model.ECCRecord, 0, len(ecc))
	for _, rec := range ecc {
		if err := rec.Validate(); err != nil {
			logging.Warn().
				Err(err).
				Str("customer_id", rec.CustomerID).
				Str("product_code", rec.ProductCode).
				Str("order_number", model.Deref(rec.OrderNumber)).
				Msg("Skipping invalid SAP ECC record")
			skipped++
			continue
		}
		cleanECC = append(cleanECC, rec)
	}

	cleanBW := make([]model.BWRecord, 0, len(bw))
	for _, rec := range bw {
		if err := rec.Validate(); err != nil {
			logging.Warn().
				Err(err).
				Str("customer_id", rec.CustomerID).
				Str("product_code", rec.ProductCode).
				Msg("Skipping invalid SAP BW record")
			skipped++
			continue
		}
		cleanBW = append(cleanBW, rec)
	}

	return cleanECC, cleanBW, skipped
}

// Reconcile validates the raw records and builds all three entity sets.
func (r *Reconciler) Reconcile(ecc []model.ECCRecord, bw []model.BWRecord) Result {
	ecc, bw, skipped := r.Clean(ecc, bw)
	return Result{
		Customers: r.Customers(ecc, bw),
		Products:  r.Products(ecc, bw),
		Sales:     r.Sales(ecc, bw),
		Skipped:   skipped,
	}
}

// Customers builds one customer per distinct customer id across both
// sources. ECC contributes one order per line; BW contributes none.
func (r *Reconciler) Customers(ecc []model.ECCRecord, bw []model.BWRecord) []model.Customer {
	eccRows := make([]customerRow, 0, len(ecc))
	for _, rec := range ecc {
		orderDate := rec.OrderDate
		eccRows = append(eccRows, customerRow{
			CustomerID: rec.CustomerID,
			Orders:     1,
			Amount:     rec.TotalAmount.Decimal,
			LastOrder:  &orderDate,
			Region:     rec.Region,
			SalesRep:   rec.SalesRep,
		})
	}

	bwRows := make([]customerRow, 0, len(bw))
	for _, rec := range bw {
		salesDate := rec.SalesDate
		bwRows = append(bwRows, customerRow{
			CustomerID: rec.CustomerID,
			Amount:     rec.SalesAmount.Decimal,
			LastOrder:  &salesDate,
			Region:     rec.Region,
			SalesRep:   rec.SalesRep,
			Segment:    rec.CustomerSegment,
		})
	}

	combined := append(customerSpec.Fold(eccRows), customerSpec.Fold(bwRows)...)
	merged := customerSpec.Fold(combined)

	now := r.now()
	customers := make([]model.Customer, 0, len(merged))
	for _, row := range merged {
		customers = append(customers, model.Customer{
			CustomerID:       row.CustomerID,
			Segment:          row.Segment,
			Region:           row.Region,
			SalesRep:         row.SalesRep,
			TotalOrders:      row.Orders,
			TotalSalesAmount: row.Amount,
			LastOrderDate:    row.LastOrder,
			CreatedAt:        now,
			UpdatedAt:        now,
			IsActive:         true,
		})
	}

	logging.Debug().Int("customers", len(customers)).Msg("Reconciled customers")
	return customers
}

// Products builds one product per distinct product code across both
// sources. A product with no known price gets a unit price of zero.
func (r *Reconciler) Products(ecc []model.ECCRecord, bw []model.BWRecord) []model.Product {
	eccRows := make([]productRow, 0, len(ecc))
	for _, rec := range ecc {
		eccRows = append(eccRows, productRow{
			ProductCode: rec.ProductCode,
			Quantity:    rec.Quantity.Decimal,
			Amount:      rec.TotalAmount.Decimal,
			UnitPrice:   rec.UnitPrice,
		})
	}

	bwRows := make([]productRow, 0, len(bw))
	for _, rec := range bw {
		zero := decimal.Zero
		bwRows = append(bwRows, productRow{
			ProductCode: rec.ProductCode,
			Quantity:    rec.SalesQuantity.Decimal,
			Amount:      rec.SalesAmount.Decimal,
			UnitPrice:   &zero,
			Category:    rec.ProductCategory,
		})
	}

	combined := append(productRollupSpec.Fold(eccRows), productRollupSpec.Fold(bwRows)...)
	merged := productMergeSpec.Fold(combined)

	now := r.now()
	products := make([]model.Product, 0, len(merged))
	for _, row := range merged {
		price := decimal.Zero
		if row.UnitPrice != nil {
			price = *row.UnitPrice
		}
		products = append(products, model.Product{
			ProductCode:       row.ProductCode,
			Category:          row.Category,
			UnitPrice:         price,
			TotalQuantitySold: row.Quantity,
			TotalSalesAmount:  row.Amount,
			CreatedAt:         now,
			UpdatedAt:         now,
			IsActive:          true,
		})
	}

	logging.Debug().Int("products", len(products)).Msg("Reconciled products")
	return products
}

// Sales relabels every raw record as a sale: ECC lines first, then BW rows.
// BW rows carry no order number; their unit price is derived from amount and
// quantity and is nil when the quantity is zero.
func (r *Reconciler) Sales(ecc []model.ECCRecord, bw []model.BWRecord) []model.Sale {
	now := r.now()
	sales := make([]model.Sale, 0, len(ecc)+len(bw))

	for _, rec := range ecc {
		channel := directChannel
		sales = append(sales, model.Sale{
			CustomerID:    rec.CustomerID,
			ProductCode:   rec.ProductCode,
			OrderNumber:   rec.OrderNumber,
			SaleDate:      rec.OrderDate,
			SalesAmount:   rec.TotalAmount.Decimal,
			SalesQuantity: rec.Quantity.Decimal,
			UnitPrice:     rec.UnitPrice,
			Region:        rec.Region,
			Channel:       &channel,
			SalesRep:      rec.SalesRep,
			DataSource:    model.SourceECC,
			CreatedAt:     now,
			IsActive:      true,
		})
	}

	for _, rec := range bw {
		var price *decimal.Decimal
		if !rec.SalesQuantity.Decimal.IsZero() {
			p := rec.SalesAmount.Decimal.Div(rec.SalesQuantity.Decimal)
			price = &p
		}
		sales = append(sales, model.Sale{
			CustomerID:    rec.CustomerID,
			ProductCode:   rec.ProductCode,
			SaleDate:      rec.SalesDate,
			SalesAmount:   rec.SalesAmount.Decimal,
			SalesQuantity: rec.SalesQuantity.Decimal,
			UnitPrice:     price,
			Region:        rec.Region,
			Channel:       rec.Channel,
			SalesRep:      rec.SalesRep,
			DataSource:    model.SourceBW,
			CreatedAt:     now,
			IsActive:      true,
		})
	}

	logging.Debug().Int("sales", len(sales)).Msg("Reconciled sales")
	return sales
}
