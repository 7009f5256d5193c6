package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func validECC() ECCRecord {
	return ECCRecord{
		CustomerID:  "C1",
		OrderNumber: Str("O-1"),
		OrderDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ProductCode: "P1",
		Quantity:    Amount(decimal.NewFromInt(2)),
		UnitPrice:   price(50),
		TotalAmount: Amount(decimal.NewFromInt(100)),
	}
}

func validBW() BWRecord {
	return BWRecord{
		CustomerID:    "C1",
		ProductCode:   "P1",
		SalesAmount:   Amount(decimal.NewFromInt(50)),
		SalesQuantity: Amount(decimal.NewFromInt(5)),
		SalesDate:     time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestECCRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ECCRecord)
		wantErr bool
	}{
		{"valid", func(r *ECCRecord) {}, false},
		{"missing order number allowed", func(r *ECCRecord) { r.OrderNumber = nil }, false},
		{"zero amounts allowed", func(r *ECCRecord) { r.TotalAmount = Amount(decimal.Zero); r.Quantity = Amount(decimal.Zero) }, false},
		{"null unit price allowed", func(r *ECCRecord) { r.UnitPrice = nil }, false},
		{"empty customer", func(r *ECCRecord) { r.CustomerID = "" }, true},
		{"empty product", func(r *ECCRecord) { r.ProductCode = "" }, true},
		{"zero order date", func(r *ECCRecord) { r.OrderDate = time.Time{} }, true},
		{"negative amount", func(r *ECCRecord) { r.TotalAmount = Amount(decimal.NewFromInt(-1)) }, true},
		{"null amount", func(r *ECCRecord) { r.TotalAmount = decimal.NullDecimal{} }, true},
		{"null quantity", func(r *ECCRecord) { r.Quantity = decimal.NullDecimal{} }, true},
		{"negative quantity", func(r *ECCRecord) { r.Quantity = Amount(decimal.RequireFromString("-0.5")) }, true},
		{"negative unit price", func(r *ECCRecord) { r.UnitPrice = price(-3) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validECC()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBWRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *BWRecord)
		wantErr bool
	}{
		{"valid", func(r *BWRecord) {}, false},
		{"zero quantity allowed", func(r *BWRecord) { r.SalesQuantity = Amount(decimal.Zero) }, false},
		{"empty customer", func(r *BWRecord) { r.CustomerID = "" }, true},
		{"empty product", func(r *BWRecord) { r.ProductCode = "" }, true},
		{"negative amount", func(r *BWRecord) { r.SalesAmount = Amount(decimal.NewFromInt(-10)) }, true},
		{"null amount", func(r *BWRecord) { r.SalesAmount = decimal.NullDecimal{} }, true},
		{"null quantity", func(r *BWRecord) { r.SalesQuantity = decimal.NullDecimal{} }, true},
		{"negative quantity", func(r *BWRecord) { r.SalesQuantity = Amount(decimal.NewFromInt(-1)) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validBW()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrAndDeref(t *testing.T) {
	assert.Nil(t, Str(""))
	assert.Equal(t, "North", *Str("North"))
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "North", Deref(Str("North")))
}
