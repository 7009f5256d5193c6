package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesync/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler() *Reconciler {
	return NewWithClock(func() time.Time { return fixedNow })
}

func day(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func eccLine(customer, order, product string, qty, price, total string, date time.Time) model.ECCRecord {
	unitPrice := dec(price)
	return model.ECCRecord{
		CustomerID:  customer,
		OrderNumber: model.Str(order),
		OrderDate:   date,
		ProductCode: product,
		Quantity:    model.Amount(dec(qty)),
		UnitPrice:   &unitPrice,
		TotalAmount: model.Amount(dec(total)),
		Region:      model.Str("North"),
		SalesRep:    model.Str("Alice"),
	}
}

func bwRow(customer, product, amount, qty string, date time.Time) model.BWRecord {
	return model.BWRecord{
		CustomerID:      customer,
		ProductCode:     product,
		SalesAmount:     model.Amount(dec(amount)),
		SalesQuantity:   model.Amount(dec(qty)),
		SalesDate:       date,
		Region:          model.Str("South"),
		SalesRep:        model.Str("Bob"),
		Channel:         model.Str("Online"),
		ProductCategory: model.Str("Widgets"),
		CustomerSegment: model.Str("Enterprise"),
	}
}

func customerByID(t *testing.T, customers []model.Customer, id string) model.Customer {
	t.Helper()
	for _, c := range customers {
		if c.CustomerID == id {
			return c
		}
	}
	t.Fatalf("customer %s not found", id)
	return model.Customer{}
}

func productByCode(t *testing.T, products []model.Product, code string) model.Product {
	t.Helper()
	for _, p := range products {
		if p.ProductCode == code {
			return p
		}
	}
	t.Fatalf("product %s not found", code)
	return model.Product{}
}

func TestCustomersDisjointUnion(t *testing.T) {
	r := newTestReconciler()

	ecc := []model.ECCRecord{
		eccLine("A1", "O1", "P1", "1", "10", "10", day(1)),
		eccLine("A2", "O2", "P1", "1", "10", "10", day(2)),
	}
	bw := []model.BWRecord{
		bwRow("B1", "P2", "20", "2", day(3)),
	}

	customers := r.Customers(ecc, bw)
	require.Len(t, customers, 3)
	assert.Equal(t, "A1", customers[0].CustomerID)
	assert.Equal(t, "A2", customers[1].CustomerID)
	assert.Equal(t, "B1", customers[2].CustomerID)

	b1 := customerByID(t, customers, "B1")
	assert.Equal(t, int64(0), b1.TotalOrders)
	assert.Equal(t, "Enterprise", model.Deref(b1.Segment))

	a1 := customerByID(t, customers, "A1")
	assert.Nil(t, a1.Segment)
	assert.Equal(t, int64(1), a1.TotalOrders)
}

func TestCustomersSharedKeySumsAndMaxDate(t *testing.T) {
	r := newTestReconciler()

	ecc := []model.ECCRecord{
		eccLine("C1", "O1", "P1", "1", "40", "40", day(5)),
		eccLine("C1", "O2", "P2", "2", "30", "60", day(9)),
	}
	bw := []model.BWRecord{
		bwRow("C1", "P1", "25.50", "3", day(7)),
		bwRow("C1", "P3", "10", "1", day(12)),
	}

	customers := r.Customers(ecc, bw)
	require.Len(t, customers, 1)

	c := customers[0]
	assert.Equal(t, int64(2), c.TotalOrders)
	assert.True(t, c.TotalSalesAmount.Equal(dec("135.50")), "amount %s", c.TotalSalesAmount)
	require.NotNil(t, c.LastOrderDate)
	assert.True(t, c.LastOrderDate.Equal(day(12)))

	// ECC attributes win, BW fills in the segment ECC lacks.
	assert.Equal(t, "North", model.Deref(c.Region))
	assert.Equal(t, "Alice", model.Deref(c.SalesRep))
	assert.Equal(t, "Enterprise", model.Deref(c.Segment))

	assert.True(t, c.IsActive)
	assert.Equal(t, fixedNow, c.CreatedAt)
	assert.Equal(t, fixedNow, c.UpdatedAt)
}

func TestCustomersFirstNonNullSkipsMissingECCRegion(t *testing.T) {
	r := newTestReconciler()

	line := eccLine("C1", "O1", "P1", "1", "10", "10", day(1))
	line.Region = nil
	customers := r.Customers([]model.ECCRecord{line}, []model.BWRecord{bwRow("C1", "P1", "5", "1", day(2))})

	require.Len(t, customers, 1)
	assert.Equal(t, "South", model.Deref(customers[0].Region))
}

func TestC1Scenario(t *testing.T) {
	r := newTestReconciler()

	ecc := []model.ECCRecord{eccLine("C1", "O1", "P1", "1", "100", "100", day(1))}
	bw := []model.BWRecord{bwRow("C1", "P1", "50", "5", day(2))}

	res := r.Reconcile(ecc, bw)
	require.Len(t, res.Customers, 1)
	assert.Equal(t, int64(1), res.Customers[0].TotalOrders)
	assert.True(t, res.Customers[0].TotalSalesAmount.Equal(dec("150")))

	require.Len(t, res.Products, 1)
	p := res.Products[0]
	assert.True(t, p.TotalQuantitySold.Equal(dec("6")))
	assert.True(t, p.TotalSalesAmount.Equal(dec("150")))
	assert.True(t, p.UnitPrice.Equal(dec("100")), "unit price %s", p.UnitPrice)
	assert.Equal(t, "Widgets", model.Deref(p.Category))

	require.Len(t, res.Sales, 2)
	assert.Equal(t, 0, res.Skipped)
}

func TestProductsUnitPricePolicy(t *testing.T) {
	r := newTestReconciler()

	ecc := []model.ECCRecord{
		eccLine("C1", "O1", "P1", "1", "10", "10", day(1)),
		eccLine("C2", "O2", "P1", "1", "20", "20", day(2)),
	}
	bw := []model.BWRecord{
		bwRow("C3", "P1", "90", "3", day(3)),
		bwRow("C3", "P2", "40", "4", day(3)),
	}

	products := r.Products(ecc, bw)
	require.Len(t, products, 2)

	// ECC mean wins over the BW placeholder.
	p1 := productByCode(t, products, "P1")
	assert.True(t, p1.UnitPrice.Equal(dec("15")), "P1 unit price %s", p1.UnitPrice)
	assert.True(t, p1.TotalQuantitySold.Equal(dec("5")))
	assert.True(t, p1.TotalSalesAmount.Equal(dec("120")))
	assert.Equal(t, "Widgets", model.Deref(p1.Category))

	// BW-only products get zero.
	p2 := productByCode(t, products, "P2")
	assert.True(t, p2.UnitPrice.IsZero())
}

func TestProductsEmptyECC(t *testing.T) {
	r := newTestReconciler()

	products := r.Products(nil, []model.BWRecord{
		bwRow("C1", "P9", "30", "3", day(1)),
		bwRow("C2", "P9", "70", "7", day(2)),
	})

	require.Len(t, products, 1)
	p := products[0]
	assert.True(t, p.UnitPrice.IsZero())
	assert.Equal(t, "Widgets", model.Deref(p.Category))
	assert.True(t, p.TotalQuantitySold.Equal(dec("10")))
	assert.True(t, p.TotalSalesAmount.Equal(dec("100")))
	assert.True(t, p.IsActive)
}

func TestSalesRelabelling(t *testing.T) {
	r := newTestReconciler()

	ecc := []model.ECCRecord{eccLine("C1", "O1", "P1", "2", "12.5", "25", day(1))}
	bw := []model.BWRecord{
		bwRow("C2", "P2", "30", "4", day(2)),
		bwRow("C3", "P3", "10", "0", day(3)),
	}

	sales := r.Sales(ecc, bw)
	require.Len(t, sales, 3)

	s := sales[0]
	assert.Equal(t, model.SourceECC, s.DataSource)
	assert.Equal(t, "Direct", model.Deref(s.Channel))
	assert.Equal(t, "O1", model.Deref(s.OrderNumber))
	assert.True(t, s.SaleDate.Equal(day(1)))
	assert.True(t, s.SalesAmount.Equal(dec("25")))
	assert.True(t, s.SalesQuantity.Equal(dec("2")))
	require.NotNil(t, s.UnitPrice)
	assert.True(t, s.UnitPrice.Equal(dec("12.5")))

	s = sales[1]
	assert.Equal(t, model.SourceBW, s.DataSource)
	assert.Nil(t, s.OrderNumber)
	assert.Equal(t, "Online", model.Deref(s.Channel))
	require.NotNil(t, s.UnitPrice)
	assert.True(t, s.UnitPrice.Equal(dec("7.5")))

	// Zero quantity yields an unknown price.
	assert.Nil(t, sales[2].UnitPrice)

	for _, sale := range sales {
		assert.True(t, sale.IsActive)
		assert.Equal(t, fixedNow, sale.CreatedAt)
	}
}

func TestReconcileEmpty(t *testing.T) {
	r := newTestReconciler()

	res := r.Reconcile(nil, nil)
	assert.NotNil(t, res.Customers)
	assert.NotNil(t, res.Products)
	assert.NotNil(t, res.Sales)
	assert.Empty(t, res.Customers)
	assert.Empty(t, res.Products)
	assert.Empty(t, res.Sales)
	assert.Equal(t, 0, res.Skipped)
}

func TestReconcileSkipsInvalidRecords(t *testing.T) {
	r := newTestReconciler()

	badECC := eccLine("", "O1", "P1", "1", "10", "10", day(1))
	negativeECC := eccLine("C1", "O2", "P1", "1", "10", "-10", day(1))
	badBW := bwRow("C2", "", "10", "1", day(2))

	res := r.Reconcile(
		[]model.ECCRecord{badECC, negativeECC, eccLine("C1", "O3", "P1", "1", "10", "10", day(1))},
		[]model.BWRecord{badBW, bwRow("C2", "P2", "10", "1", day(2))},
	)

	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, res.Customers, 2)
	assert.Len(t, res.Products, 2)
	assert.Len(t, res.Sales, 2)

	for _, c := range res.Customers {
		assert.NotEmpty(t, c.CustomerID)
		assert.False(t, c.TotalSalesAmount.IsNegative())
	}
}

func TestReconcileSkipsNullAmounts(t *testing.T) {
	r := newTestReconciler()

	nullTotal := eccLine("C1", "O1", "P1", "1", "10", "10", day(1))
	nullTotal.TotalAmount = decimal.NullDecimal{}
	nullQty := bwRow("C2", "P2", "10", "1", day(2))
	nullQty.SalesQuantity = decimal.NullDecimal{}

	res := r.Reconcile(
		[]model.ECCRecord{nullTotal, eccLine("C1", "O2", "P1", "1", "10", "10", day(1))},
		[]model.BWRecord{nullQty, bwRow("C2", "P2", "20", "2", day(2))},
	)

	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Sales, 2)
	c1 := customerByID(t, res.Customers, "C1")
	assert.True(t, c1.TotalSalesAmount.Equal(dec("10")))
	assert.Equal(t, int64(1), c1.TotalOrders)
}

func TestProductsNullUnitPriceIgnored(t *testing.T) {
	r := newTestReconciler()

	unpriced := eccLine("C1", "O1", "P1", "1", "0", "10", day(1))
	unpriced.UnitPrice = nil

	products := r.Products([]model.ECCRecord{
		unpriced,
		eccLine("C2", "O2", "P1", "1", "30", "30", day(2)),
	}, nil)

	require.Len(t, products, 1)
	assert.True(t, products[0].UnitPrice.Equal(dec("30")), "unit price %s", products[0].UnitPrice)
	assert.True(t, products[0].TotalSalesAmount.Equal(dec("40")))

	sales := r.Sales([]model.ECCRecord{unpriced}, nil)
	require.Len(t, sales, 1)
	assert.Nil(t, sales[0].UnitPrice)
}
