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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Default page sizes.
const (
	DefaultOrderLimit       = 50
	DefaultTopCustomerLimit = 10
)

// DateRange bounds sales_date inclusively. Nil bounds are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange parses optional YYYY-MM-DD bounds. The end date covers the
// whole day.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return r, fmt.Errorf("invalid start_date: %w", err)
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return r, fmt.Errorf("invalid end_date: %w", err)
		}
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, errors.New("end_date must not be before start_date")
	}
	return r, nil
}

// SalesFilter selects sales for the sales listing.
type SalesFilter struct {
	DateRange
	Region     string
	CustomerID string

	// Limit of zero returns all matching rows.
	Limit  int
	Offset int
}

// SaleDetail is a sale joined with its customer segment and product category.
type SaleDetail struct {
	model.Sale
	CustomerSegment *string `json:"customer_segment"`
	ProductCategory *string `json:"product_category"`
}

// OrderLine is one row of a customer's order history.
type OrderLine struct {
	OrderNumber     *string          `json:"order_number"`
	SalesDate       time.Time        `json:"sales_date"`
	ProductCode     string           `json:"product_code"`
	SalesAmount     decimal.Decimal  `json:"sales_amount"`
	SalesQuantity   decimal.Decimal  `json:"sales_quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	Region          *string          `json:"region"`
	Channel         *string          `json:"channel"`
	SalesRep        *string          `json:"sales_rep"`
	ProductCategory *string          `json:"product_category"`
}

// ProductPerformance aggregates sales per product.
type ProductPerformance struct {
	ProductCode       string           `json:"product_code"`
	ProductCategory   *string          `json:"product_category"`
	TotalSales        int64            `json:"total_sales"`
	TotalQuantitySold decimal.Decimal  `json:"total_quantity_sold"`
	TotalSalesAmount  decimal.Decimal  `json:"total_sales_amount"`
	AverageUnitPrice  *decimal.Decimal `json:"average_unit_price"`
	FirstSaleDate     time.Time        `json:"first_sale_date"`
	LastSaleDate      time.Time        `json:"last_sale_date"`
}

// GroupTotals are the aggregates shared by the region and sales rep reports.
type GroupTotals struct {
	TotalSales        int64           `json:"total_sales"`
	UniqueCustomers   int64           `json:"unique_customers"`
	TotalQuantitySold decimal.Decimal `json:"total_quantity_sold"`
	TotalSalesAmount  decimal.Decimal `json:"total_sales_amount"`
	AverageSaleAmount decimal.Decimal `json:"average_sale_amount"`
}

// RegionSales aggregates sales per region. Region is nil for sales without one.
type RegionSales struct {
	Region *string `json:"region"`
	GroupTotals
}

// RepPerformance aggregates sales per sales rep.
type RepPerformance struct {
	SalesRep string `json:"sales_rep"`
	GroupTotals
}

// TopCustomer ranks a customer by sales amount.
type TopCustomer struct {
	CustomerID             string          `json:"customer_id"`
	CustomerSegment        *string         `json:"customer_segment"`
	Region                 *string         `json:"region"`
	SalesRep               *string         `json:"sales_rep"`
	TotalOrders            int64           `json:"total_orders"`
	TotalQuantityPurchased decimal.Decimal `json:"total_quantity_purchased"`
	TotalSalesAmount       decimal.Decimal `json:"total_sales_amount"`
	AverageOrderValue      decimal.Decimal `json:"average_order_value"`
	LastOrderDate          time.Time       `json:"last_order_date"`
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhere(base ...string) *whereBuilder {
	return &whereBuilder{conds: append([]string(nil), base...)}
}

// arg registers a bind value and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// add appends a condition; %s in cond is replaced by the value's placeholder.
func (b *whereBuilder) add(cond string, v any) {
	b.conds = append(b.conds, fmt.Sprintf(cond, b.arg(v)))
}

func (b *whereBuilder) dateRange(column string, r DateRange) {
	if r.Start != nil {
		b.add(column+" >= %s", *r.Start)
	}
	if r.End != nil {
		b.add(column+" <= %s", *r.End)
	}
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// page appends OFFSET/FETCH when limit is positive.
func (b *whereBuilder) page(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("OFFSET %s ROWS FETCH NEXT %s ROWS ONLY", b.arg(int64(offset)), b.arg(int64(limit)))
}

// Store runs read queries against the analytical schema.
type Store struct {
	db db.DB
}

// NewStore creates a store over a pool, connection or transaction.
func NewStore(conn db.DB) *Store {
	return &Store{db: conn}
}

const customerColumns = `customer_id, customer_segment, region, sales_rep, total_orders,
       total_sales_amount, last_order_date, created_at, updated_at, is_active`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.CustomerID, &c.Segment, &c.Region, &c.SalesRep, &c.TotalOrders,
		&c.TotalSalesAmount, &c.LastOrderDate, &c.CreatedAt, &c.UpdatedAt, &c.IsActive)
	return c, err
}

// GetCustomer returns one active customer, or ErrNotFound.
func (s *Store) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE customer_id = $1 AND is_active = TRUE`,
		customerID)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// Customers returns all active customers ordered by id.
func (s *Store) Customers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE is_active = TRUE ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// Products returns all active products ordered by code.
func (s *Store) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.Query(ctx, `
        SELECT product_code, product_category, unit_price, total_quantity_sold,
               total_sales_amount, created_at, updated_at, is_active
        FROM products
        WHERE is_active = TRUE
        ORDER BY product_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ProductCode, &p.Category, &p.UnitPrice, &p.TotalQuantitySold,
			&p.TotalSalesAmount, &p.CreatedAt, &p.UpdatedAt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const saleDetailSelect = `
SELECT s.id, s.customer_id, s.product_code, s.order_number, s.sales_date,
       s.sales_amount, s.sales_quantity, s.unit_price, s.region, s.channel,
       s.sales_rep, s.data_source, s.created_at, s.is_active,
       c.customer_segment, p.product_category
FROM sales s
LEFT JOIN customers c ON s.customer_id = c.customer_id
LEFT JOIN products p ON s.product_code = p.product_code`

func scanSaleDetail(row pgx.Row) (SaleDetail, error) {
	var d SaleDetail
	var price decimal.NullDecimal
	var source string
	err := row.Scan(&d.ID, &d.CustomerID, &d.ProductCode, &d.OrderNumber, &d.SaleDate,
		&d.SalesAmount, &d.SalesQuantity, &price, &d.Region, &d.Channel,
		&d.SalesRep, &source, &d.CreatedAt, &d.IsActive,
		&d.CustomerSegment, &d.ProductCategory)
	d.UnitPrice = optionalDecimal(price)
	d.DataSource = model.DataSource(source)
	return d, err
}

func (s *Store) querySaleDetails(ctx context.Context, sql string, args []any) ([]SaleDetail, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]SaleDetail, 0)
	for rows.Next() {
		d, err := scanSaleDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, d)
	}
	return sales, rows.Err()
}

// Sales returns active sales matching the filter, newest first.
func (s *Store) Sales(ctx context.Context, f SalesFilter) ([]SaleDetail, error) {
	w := newWhere("s.is_active = TRUE")
	w.dateRange("s.sales_date", f.DateRange)
	if f.Region != "" {
		w.add("s.region = %s", f.Region)
	}
	if f.CustomerID != "" {
		w.add("s.customer_id = %s", f.CustomerID)
	}

	sql := saleDetailSelect + "\n" + w.clause() + "\nORDER BY s.sales_date DESC, s.id DESC\n" + w.page(f.Limit, f.Offset)
	return s.querySaleDetails(ctx, sql, w.args)
}

// SalesCreatedSince returns active sales created at or after since.
func (s *Store) SalesCreatedSince(ctx context.Context, since time.Time) ([]SaleDetail, error) {
	w := newWhere("s.is_active = TRUE")
	w.add("s.created_at >= %s", since)

	sql := saleDetailSelect + "\n" + w.clause() + "\nORDER BY s.id"
	return s.querySaleDetails(ctx, sql, w.args)
}

// CustomerOrders returns a customer's most recent sales. A non-positive
// limit uses DefaultOrderLimit.
func (s *Store) CustomerOrders(ctx context.Context, customerID string, limit int) ([]OrderLine, error) {
	if limit <= 0 {
		limit = DefaultOrderLimit
	}

	w := newWhere("s.is_active = TRUE")
	w.add("s.customer_id = %s", customerID)
	sql := `
        SELECT s.order_number, s.sales_date, s.product_code, s.sales_amount,
               s.sales_quantity, s.unit_price, s.region, s.channel, s.sales_rep,
               p.product_category
        FROM sales s
        LEFT JOIN products p ON s.product_code = p.product_code
        ` + w.clause() + `
        ORDER BY s.sales_date DESC
        ` + w.page(limit, 0)

	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer orders: %w", err)
	}
	defer rows.Close()

	orders := make([]OrderLine, 0)
	for rows.Next() {
		var o OrderLine
		var price decimal.NullDecimal
		if err := rows.Scan(&o.OrderNumber, &o.SalesDate, &o.ProductCode, &o.SalesAmount,
			&o.SalesQuantity, &price, &o.Region, &o.Channel, &o.SalesRep,
			&o.ProductCategory); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.UnitPrice = optionalDecimal(price)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ProductPerformance aggregates sales per product, optionally for a single
// product code, ordered by sales amount.
func (s *Store) ProductPerformance(ctx context.Context, productCode string, r DateRange) ([]ProductPerformance, error) {
	w := newWhere("s.is_active = TRUE")
	if productCode != "" {
		w.add("s.product_code = %s", productCode)
	}
	w.dateRange("s.sales_date", r)

	sql := `
        SELECT s.product_code,
               p.product_category,
               COUNT(*) AS total_sales,
               COALESCE(SUM(s.sales_quantity), 0) AS total_quantity_sold,
               COALESCE(SUM(s.sales_amount), 0) AS total_sales_amount,
               AVG(s.unit_price) AS average_unit_price,
               MIN(s.sales_date) AS first_sale_date,
               MAX(s.sales_date) AS last_sale_date
        FROM sales s
        LEFT JOIN products p ON s.product_code = p.product_code
        ` + w.clause() + `
        GROUP BY s.product_code, p.product_category
        ORDER BY total_sales_amount DESC`

	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product performance: %w", err)
	}
	defer rows.Close()

	out := make([]ProductPerformance, 0)
	for rows.Next() {
		var pp ProductPerformance
		var avg decimal.NullDecimal
		if err := rows.Scan(&pp.ProductCode, &pp.ProductCategory, &pp.TotalSales,
			&pp.TotalQuantitySold, &pp.TotalSalesAmount, &avg,
			&pp.FirstSaleDate, &pp.LastSaleDate); err != nil {
			return nil, fmt.Errorf("failed to scan product performance: %w", err)
		}
		pp.AverageUnitPrice = optionalDecimal(avg)
		out = append(out, pp)
	}
	return out, rows.Err()
}

const groupTotalsSelect = `
               COUNT(*) AS total_sales,
               COUNT(DISTINCT s.customer_id) AS unique_customers,
               COALESCE(SUM(s.sales_quantity), 0) AS total_quantity_sold,
               COALESCE(SUM(s.sales_amount), 0) AS total_sales_amount,
               COALESCE(AVG(s.sales_amount), 0) AS average_sale_amount`

// RegionalSales aggregates sales per region, ordered by sales amount.
func (s *Store) RegionalSales(ctx context.Context, r DateRange) ([]RegionSales, error) {
	w := newWhere("s.is_active = TRUE")
	w.dateRange("s.sales_date", r)

	sql := `SELECT s.region,` + groupTotalsSelect + `
        FROM sales s
        ` + w.clause() + `
        GROUP BY s.region
        ORDER BY total_sales_amount DESC`

	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query regional sales: %w", err)
	}
	defer rows.Close()

	out := make([]RegionSales, 0)
	for rows.Next() {
		var rs RegionSales
		if err := rows.Scan(&rs.Region, &rs.TotalSales, &rs.UniqueCustomers,
			&rs.TotalQuantitySold, &rs.TotalSalesAmount, &rs.AverageSaleAmount); err != nil {
			return nil, fmt.Errorf("failed to scan regional sales: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// SalesRepPerformance aggregates sales per rep, skipping sales without a
// rep, ordered by sales amount.
func (s *Store) SalesRepPerformance(ctx context.Context, r DateRange) ([]RepPerformance, error) {
	w := newWhere("s.is_active = TRUE", "s.sales_rep IS NOT NULL")
	w.dateRange("s.sales_date", r)

	sql := `SELECT s.sales_rep,` + groupTotalsSelect + `
        FROM sales s
        ` + w.clause() + `
        GROUP BY s.sales_rep
        ORDER BY total_sales_amount DESC`

	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales rep performance: %w", err)
	}
	defer rows.Close()

	out := make([]RepPerformance, 0)
	for rows.Next() {
		var rp RepPerformance
		if err := rows.Scan(&rp.SalesRep, &rp.TotalSales, &rp.UniqueCustomers,
			&rp.TotalQuantitySold, &rp.TotalSalesAmount, &rp.AverageSaleAmount); err != nil {
			return nil, fmt.Errorf("failed to scan sales rep performance: %w", err)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// TopCustomers ranks customers by sales amount. A non-positive limit uses
// DefaultTopCustomerLimit.
func (s *Store) TopCustomers(ctx context.Context, limit int, r DateRange) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = DefaultTopCustomerLimit
	}

	w := newWhere("s.is_active = TRUE")
	w.dateRange("s.sales_date", r)

	sql := `
        SELECT s.customer_id,
               c.customer_segment,
               c.region,
               c.sales_rep,
               COUNT(*) AS total_orders,
               COALESCE(SUM(s.sales_quantity), 0) AS total_quantity_purchased,
               COALESCE(SUM(s.sales_amount), 0) AS total_sales_amount,
               COALESCE(AVG(s.sales_amount), 0) AS average_order_value,
               MAX(s.sales_date) AS last_order_date
        FROM sales s
        LEFT JOIN customers c ON s.customer_id = c.customer_id
        ` + w.clause() + `
        GROUP BY s.customer_id, c.customer_segment, c.region, c.sales_rep
        ORDER BY total_sales_amount DESC
        ` + w.page(limit, 0)

	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top customers: %w", err)
	}
	defer rows.Close()

	out := make([]TopCustomer, 0)
	for rows.Next() {
		var tc TopCustomer
		if err := rows.Scan(&tc.CustomerID, &tc.CustomerSegment, &tc.Region, &tc.SalesRep,
			&tc.TotalOrders, &tc.TotalQuantityPurchased, &tc.TotalSalesAmount,
			&tc.AverageOrderValue, &tc.LastOrderDate); err != nil {
			return nil, fmt.Errorf("failed to scan top customer: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
