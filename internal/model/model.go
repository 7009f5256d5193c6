//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the raw SAP records read from the source systems
// and the reconciled analytical entities written to the warehouse.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource identifies which upstream system produced a sale.
type DataSource string

const (
	// SourceECC is the transactional order-line feed.
	SourceECC DataSource = "SAP_ECC"

	// SourceBW is the pre-aggregated sales summary feed.
	SourceBW DataSource = "SAP_BW"
)

// ECCRecord is one order line from the SAP ECC raw table. Keys read as
// NULL are empty and amounts read as NULL are invalid, so such records fail
// Validate. A NULL unit price is nil and contributes no price.
type ECCRecord struct {
	CustomerID  string `validate:"required"`
	OrderNumber *string
	OrderDate   time.Time           `validate:"required"`
	ProductCode string              `validate:"required"`
	Quantity    decimal.NullDecimal `validate:"gte=0"`
	UnitPrice   *decimal.Decimal    `validate:"omitempty,gte=0"`
	TotalAmount decimal.NullDecimal `validate:"gte=0"`
	Status      *string
	SalesRep    *string
	Region      *string
	ProcessedAt time.Time
}

// BWRecord is one summary row from the SAP BW raw table.
type BWRecord struct {
	CustomerID      string              `validate:"required"`
	ProductCode     string              `validate:"required"`
	SalesAmount     decimal.NullDecimal `validate:"gte=0"`
	SalesQuantity   decimal.NullDecimal `validate:"gte=0"`
	SalesDate       time.Time           `validate:"required"`
	SalesRep        *string
	Region          *string
	Channel         *string
	ProductCategory *string
	CustomerSegment *string
	ProcessedAt     time.Time
}

// Customer is the reconciled per-customer aggregate.
type Customer struct {
	CustomerID       string          `json:"customer_id"`
	Segment          *string         `json:"customer_segment"`
	Region           *string         `json:"region"`
	SalesRep         *string         `json:"sales_rep"`
	TotalOrders      int64           `json:"total_orders"`
	TotalSalesAmount decimal.Decimal `json:"total_sales_amount"`
	LastOrderDate    *time.Time      `json:"last_order_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	IsActive         bool            `json:"is_active"`
}

// Product is the reconciled per-product aggregate. UnitPrice is zero when
// no source supplied a price.
type Product struct {
	ProductCode       string          `json:"product_code"`
	Category          *string         `json:"product_category"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalQuantitySold decimal.Decimal `json:"total_quantity_sold"`
	TotalSalesAmount  decimal.Decimal `json:"total_sales_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	IsActive          bool            `json:"is_active"`
}

// Sale is one normalized sale event. Sales are append-only.
type Sale struct {
	ID            int64            `json:"id,omitempty"`
	CustomerID    string           `json:"customer_id"`
	ProductCode   string           `json:"product_code"`
	OrderNumber   *string          `json:"order_number"`
	SaleDate      time.Time        `json:"sales_date"`
	SalesAmount   decimal.Decimal  `json:"sales_amount"`
	SalesQuantity decimal.Decimal  `json:"sales_quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Region        *string          `json:"region"`
	Channel       *string          `json:"channel"`
	SalesRep      *string          `json:"sales_rep"`
	DataSource    DataSource       `json:"data_source"`
	CreatedAt     time.Time        `json:"created_at"`
	IsActive      bool             `json:"is_active"`
}

// Amount wraps a known amount or quantity.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
