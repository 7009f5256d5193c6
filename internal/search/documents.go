//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package search

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesync/internal/model"
)

// Document categories.
const (
	CategoryCustomer = "Customer"
	CategoryProduct  = "Product"
	CategorySales    = "Sales"
)

// Document is one flattened search record. Fields that do not apply to a
// category are null.
type Document struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	Timestamp     *time.Time `json:"timestamp"`
	Metadata      string     `json:"metadata"`
	CustomerID    *string    `json:"customer_id"`
	ProductCode   *string    `json:"product_code"`
	Region        *string    `json:"region"`
	SalesRep      *string    `json:"sales_rep"`
	DataSource    string     `json:"data_source"`
	SalesAmount   *float64   `json:"sales_amount"`
	SalesQuantity *float64   `json:"sales_quantity"`
	OrderNumber   *string    `json:"order_number"`
	SalesDate     *time.Time `json:"sales_date"`
}

// CustomerDocument builds the search record for a customer.
func CustomerDocument(c model.Customer) Document {
	var b strings.Builder
	b.WriteString("Customer ID: " + c.CustomerID)
	optional(&b, ", Segment: ", c.Segment)
	optional(&b, ", Region: ", c.Region)
	optional(&b, ", Sales Rep: ", c.SalesRep)
	b.WriteString(", Total Orders: " + decimal.NewFromInt(c.TotalOrders).String())
	b.WriteString(", Total Sales: $" + formatMoney(c.TotalSalesAmount))
	if c.LastOrderDate != nil {
		b.WriteString(", Last Order: " + c.LastOrderDate.Format(time.DateOnly))
	}

	return Document{
		ID:        c.CustomerID,
		Title:     "Customer: " + c.CustomerID,
		Content:   b.String(),
		Category:  CategoryCustomer,
		Timestamp: timePtr(c.UpdatedAt),
		Metadata: metadata(
			"CustomerID", c.CustomerID,
			"Segment", model.Deref(c.Segment),
			"Region", model.Deref(c.Region),
			"SalesRep", model.Deref(c.SalesRep),
		),
		CustomerID:  &c.CustomerID,
		Region:      c.Region,
		SalesRep:    c.SalesRep,
		DataSource:  CategoryCustomer,
		SalesAmount: floatPtr(c.TotalSalesAmount),
		SalesDate:   c.LastOrderDate,
	}
}

// ProductDocument builds the search record for a product.
func ProductDocument(p model.Product) Document {
	var b strings.Builder
	b.WriteString("Product Code: " + p.ProductCode)
	optional(&b, ", Category: ", p.Category)
	b.WriteString(", Total Quantity Sold: " + p.TotalQuantitySold.String())
	b.WriteString(", Total Sales: $" + formatMoney(p.TotalSalesAmount))
	b.WriteString(", Unit Price: $" + formatMoney(p.UnitPrice))

	return Document{
		ID:        "PROD-" + p.ProductCode,
		Title:     "Product: " + p.ProductCode,
		Content:   b.String(),
		Category:  CategoryProduct,
		Timestamp: timePtr(p.UpdatedAt),
		Metadata: metadata(
			"ProductCode", p.ProductCode,
			"Category", model.Deref(p.Category),
			"UnitPrice", p.UnitPrice.String(),
		),
		ProductCode:   &p.ProductCode,
		DataSource:    CategoryProduct,
		SalesAmount:   floatPtr(p.TotalSalesAmount),
		SalesQuantity: floatPtr(p.TotalQuantitySold),
	}
}

// SaleDocumentID returns the composite id of a sale document:
// customer-product-order-yyyymmdd, with NO-ORDER for BW sales.
func SaleDocumentID(s model.Sale) string {
	order := "NO-ORDER"
	if s.OrderNumber != nil {
		order = *s.OrderNumber
	}
	return strings.Join([]string{s.CustomerID, s.ProductCode, order, s.SaleDate.Format("20060102")}, "-")
}

// SaleDocument builds the search record for a sale.
func SaleDocument(s model.Sale) Document {
	title := "Sale: " + s.CustomerID + " - " + s.ProductCode
	if s.OrderNumber != nil {
		title += " (Order: " + *s.OrderNumber + ")"
	}

	var b strings.Builder
	b.WriteString("Customer: " + s.CustomerID)
	b.WriteString(", Product: " + s.ProductCode)
	optional(&b, ", Order: ", s.OrderNumber)
	b.WriteString(", Date: " + s.SaleDate.Format(time.DateOnly))
	b.WriteString(", Amount: $" + formatMoney(s.SalesAmount))
	b.WriteString(", Quantity: " + s.SalesQuantity.String())
	optional(&b, ", Region: ", s.Region)
	optional(&b, ", Sales Rep: ", s.SalesRep)
	b.WriteString(", Source: " + string(s.DataSource))

	return Document{
		ID:        SaleDocumentID(s),
		Title:     title,
		Content:   b.String(),
		Category:  CategorySales,
		Timestamp: timePtr(s.CreatedAt),
		Metadata: metadata(
			"CustomerID", s.CustomerID,
			"ProductCode", s.ProductCode,
			"OrderNumber", model.Deref(s.OrderNumber),
			"Region", model.Deref(s.Region),
			"SalesRep", model.Deref(s.SalesRep),
			"DataSource", string(s.DataSource),
		),
		CustomerID:    &s.CustomerID,
		ProductCode:   &s.ProductCode,
		Region:        s.Region,
		SalesRep:      s.SalesRep,
		DataSource:    string(s.DataSource),
		SalesAmount:   floatPtr(s.SalesAmount),
		SalesQuantity: floatPtr(s.SalesQuantity),
		OrderNumber:   s.OrderNumber,
		SalesDate:     timePtr(s.SaleDate),
	}
}

// BuildDocuments flattens customers, then sales, then products.
func BuildDocuments(customers []model.Customer, products []model.Product, sales []model.Sale) []Document {
	docs := make([]Document, 0, len(customers)+len(products)+len(sales))
	for _, c := range customers {
		docs = append(docs, CustomerDocument(c))
	}
	for _, s := range sales {
		docs = append(docs, SaleDocument(s))
	}
	for _, p := range products {
		docs = append(docs, ProductDocument(p))
	}
	return docs
}

func optional(b *strings.Builder, label string, v *string) {
	if v != nil {
		b.WriteString(label + *v)
	}
}

// metadata joins key/value pairs as "k1:v1|k2:v2".
func metadata(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, kv[i]+":"+kv[i+1])
	}
	return strings.Join(parts, "|")
}

// formatMoney renders d with two decimals and thousands separators.
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
