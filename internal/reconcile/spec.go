//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package reconcile merges raw SAP ECC and BW records into customer, product
// and sale entities. Merging is described declaratively: a Spec names the
// grouping key and one Rule per field, and Fold applies it.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy is a named reduction applied to one field of a group.
type Strategy int

const (
	// Sum adds the field across the group.
	Sum Strategy = iota

	// Max keeps the largest non-null value.
	Max

	// FirstNonNull keeps the first non-null value in input order.
	FirstNonNull

	// Mean averages the non-null values.
	Mean
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Sum:
		return "sum"
	case Max:
		return "max"
	case FirstNonNull:
		return "first_non_null"
	case Mean:
		return "mean"
	default:
		return "unknown"
	}
}

// Rule reduces one field of a group of records into an accumulator.
type Rule[R any] struct {
	// Field is the field name, used for introspection and logging.
	Field string

	// Strategy is the reduction applied.
	Strategy Strategy

	reduce func(acc *R, group []R)
}

// Spec describes how records of type R are grouped and merged.
type Spec[R any] struct {
	// Key returns the grouping key of a record.
	Key func(R) string

	// Rules are applied in order to every group.
	Rules []Rule[R]
}

// Fold groups records by key, preserving first-seen key order, and reduces
// each group with its rules. Fields without a rule keep the value of
// the group's first record. An empty input yields an empty, non-nil slice.
func (s Spec[R]) Fold(records []R) []R {
	order := make([]string, 0)
	groups := make(map[string][]R)

	for _, rec := range records {
		key := s.Key(rec)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	out := make([]R, 0, len(order))
	for _, key := range order {
		group := groups[key]
		acc := group[0]
		for _, rule := range s.Rules {
			rule.reduce(&acc, group)
		}
		out = append(out, acc)
	}
	return out
}

// Strategy returns the strategy configured for field, if any.
func (s Spec[R]) Strategy(field string) (Strategy, bool) {
	for _, rule := range s.Rules {
		if rule.Field == field {
			return rule.Strategy, true
		}
	}
	return 0, false
}

// SumDecimal sums a decimal field.
func SumDecimal[R any](field string, get func(*R) *decimal.Decimal) Rule[R] {
	return Rule[R]{
		Field:    field,
		Strategy: Sum,
		reduce: func(acc *R, group []R) {
			total := decimal.Zero
			for i := range group {
				total = total.Add(*get(&group[i]))
			}
			*get(acc) = total
		},
	}
}

// SumInt sums an integer field.
func SumInt[R any](field string, get func(*R) *int64) Rule[R] {
	return Rule[R]{
		Field:    field,
		Strategy: Sum,
		reduce: func(acc *R, group []R) {
			var total int64
			for i := range group {
				total += *get(&group[i])
			}
			*get(acc) = total
		},
	}
}

// MaxTime keeps the latest non-null time.
func MaxTime[R any](field string, get func(*R) **time.Time) Rule[R] {
	return Rule[R]{
		Field:    field,
		Strategy: Max,
		reduce: func(acc *R, group []R) {
			var latest *time.Time
			for i := range group {
				v := *get(&group[i])
				if v != nil && (latest == nil || v.After(*latest)) {
					latest = v
				}
			}
			*get(acc) = latest
		},
	}
}

// FirstNonNullOf keeps the first non-null value in group order.
func FirstNonNullOf[R any, T any](field string, get func(*R) **T) Rule[R] {
	return Rule[R]{
		Field:    field,
		Strategy: FirstNonNull,
		reduce: func(acc *R, group []R) {
			var first *T
			for i := range group {
				if v := *get(&group[i]); v != nil {
					first = v
					break
				}
			}
			*get(acc) = first
		},
	}
}

// MeanDecimal averages the non-null values of a decimal field. The result is
// nil when every value is null.
func MeanDecimal[R any](field string, get func(*R) **decimal.Decimal) Rule[R] {
	return Rule[R]{
		Field:    field,
		Strategy: Mean,
		reduce: func(acc *R, group []R) {
			total := decimal.Zero
			n := 0
			for i := range group {
				if v := *get(&group[i]); v != nil {
					total = total.Add(*v)
					n++
				}
			}
			if n == 0 {
				*get(acc) = nil
				return
			}
			mean := total.Div(decimal.NewFromInt(int64(n)))
			*get(acc) = &mean
		},
	}
}
