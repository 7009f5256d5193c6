package model

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Decimal fields are compared as
// float64 so numeric tags such as gte=0 apply to them. A NULL decimal has no
// value and fails any tag it carries.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	})
	return validate
}

func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case decimal.NullDecimal:
		if d.Valid {
			return d.Decimal.InexactFloat64()
		}
	}
	return nil
}

// Validate checks the raw ECC record invariants.
func (r ECCRecord) Validate() error {
	return Validator().Struct(r)
}

// Validate checks the raw BW record invariants.
func (r BWRecord) Validate() error {
	return Validator().Struct(r)
}
