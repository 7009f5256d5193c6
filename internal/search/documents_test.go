package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesync/internal/model"
)

var docTime = time.Date(2025, 5, 7, 9, 30, 0, 0, time.UTC)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"12.5", "12.50"},
		{"999.999", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-4500", "-4,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestCustomerDocument(t *testing.T) {
	last := docTime
	c := model.Customer{
		CustomerID:       "C1",
		Segment:          model.Str("Enterprise"),
		Region:           model.Str("North"),
		TotalOrders:      3,
		TotalSalesAmount: decimal.RequireFromString("1500.5"),
		LastOrderDate:    &last,
		UpdatedAt:        docTime,
	}

	doc := CustomerDocument(c)
	assert.Equal(t, "C1", doc.ID)
	assert.Equal(t, "Customer: C1", doc.Title)
	assert.Equal(t,
		"Customer ID: C1, Segment: Enterprise, Region: North, Total Orders: 3, Total Sales: $1,500.50, Last Order: 2025-05-07",
		doc.Content)
	assert.Equal(t, "CustomerID:C1|Segment:Enterprise|Region:North|SalesRep:", doc.Metadata)
	assert.Equal(t, CategoryCustomer, doc.Category)
	assert.Equal(t, CategoryCustomer, doc.DataSource)
	assert.Nil(t, doc.ProductCode)
	assert.Nil(t, doc.SalesQuantity)
	require.NotNil(t, doc.SalesAmount)
	assert.InDelta(t, 1500.5, *doc.SalesAmount, 0.0001)
}

func TestProductDocument(t *testing.T) {
	p := model.Product{
		ProductCode:       "P1",
		UnitPrice:         decimal.RequireFromString("12.5"),
		TotalQuantitySold: decimal.NewFromInt(8),
		TotalSalesAmount:  decimal.NewFromInt(100),
		UpdatedAt:         docTime,
	}

	doc := ProductDocument(p)
	assert.Equal(t, "PROD-P1", doc.ID)
	assert.Equal(t, "Product Code: P1, Total Quantity Sold: 8, Total Sales: $100.00, Unit Price: $12.50", doc.Content)
	assert.Equal(t, "ProductCode:P1|Category:|UnitPrice:12.5", doc.Metadata)
	assert.Nil(t, doc.CustomerID)
	assert.Nil(t, doc.SalesDate)
}

func TestSaleDocumentID(t *testing.T) {
	date := time.Date(2025, 5, 7, 0, 0, 0, 0, time.UTC)

	ecc := model.Sale{CustomerID: "C1", ProductCode: "P1", OrderNumber: model.Str("SO-9"), SaleDate: date}
	bw := model.Sale{CustomerID: "C1", ProductCode: "P1", SaleDate: date}

	assert.Equal(t, "C1-P1-SO-9-20250507", SaleDocumentID(ecc))
	assert.Equal(t, "C1-P1-NO-ORDER-20250507", SaleDocumentID(bw))
}

func TestSaleDocument(t *testing.T) {
	price := decimal.NewFromInt(25)
	s := model.Sale{
		CustomerID:    "C1",
		ProductCode:   "P1",
		OrderNumber:   model.Str("SO-9"),
		SaleDate:      docTime,
		SalesAmount:   decimal.NewFromInt(50),
		SalesQuantity: decimal.NewFromInt(2),
		UnitPrice:     &price,
		SalesRep:      model.Str("Alice"),
		DataSource:    model.SourceECC,
		CreatedAt:     docTime,
	}

	doc := SaleDocument(s)
	assert.Equal(t, "Sale: C1 - P1 (Order: SO-9)", doc.Title)
	assert.Equal(t,
		"Customer: C1, Product: P1, Order: SO-9, Date: 2025-05-07, Amount: $50.00, Quantity: 2, Sales Rep: Alice, Source: SAP_ECC",
		doc.Content)
	assert.Equal(t,
		"CustomerID:C1|ProductCode:P1|OrderNumber:SO-9|Region:|SalesRep:Alice|DataSource:SAP_ECC",
		doc.Metadata)
	assert.Equal(t, "SAP_ECC", doc.DataSource)
	assert.Equal(t, CategorySales, doc.Category)
}

func TestDocumentJSONNulls(t *testing.T) {
	doc := ProductDocument(model.Product{ProductCode: "P1"})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 15)
	assert.Nil(t, fields["customer_id"])
	assert.Nil(t, fields["timestamp"])
	assert.Equal(t, "PROD-P1", fields["id"])
}

func TestBuildDocumentsOrder(t *testing.T) {
	docs := BuildDocuments(
		[]model.Customer{{CustomerID: "C1"}},
		[]model.Product{{ProductCode: "P1"}},
		[]model.Sale{{CustomerID: "C1", ProductCode: "P1", SaleDate: docTime}},
	)

	require.Len(t, docs, 3)
	assert.Equal(t, CategoryCustomer, docs[0].Category)
	assert.Equal(t, CategorySales, docs[1].Category)
	assert.Equal(t, CategoryProduct, docs[2].Category)
}
