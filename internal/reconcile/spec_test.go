package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foldRow struct {
	Key    string
	Count  int64
	Amount decimal.Decimal
	Seen   *time.Time
	Label  *string
	Price  *decimal.Decimal
}

var foldSpec = Spec[foldRow]{
	Key: func(r foldRow) string { return r.Key },
	Rules: []Rule[foldRow]{
		SumInt("count", func(r *foldRow) *int64 { return &r.Count }),
		SumDecimal("amount", func(r *foldRow) *decimal.Decimal { return &r.Amount }),
		MaxTime("seen", func(r *foldRow) **time.Time { return &r.Seen }),
		FirstNonNullOf("label", func(r *foldRow) **string { return &r.Label }),
		MeanDecimal("price", func(r *foldRow) **decimal.Decimal { return &r.Price }),
	},
}

func ptr[T any](v T) *T { return &v }

func TestFoldEmpty(t *testing.T) {
	out := foldSpec.Fold(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFoldPreservesFirstSeenOrder(t *testing.T) {
	out := foldSpec.Fold([]foldRow{
		{Key: "b"}, {Key: "a"}, {Key: "b"}, {Key: "c"}, {Key: "a"},
	})

	keys := make([]string, 0, len(out))
	for _, r := range out {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestFoldStrategies(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	out := foldSpec.Fold([]foldRow{
		{Key: "k", Count: 1, Amount: decimal.NewFromInt(10), Seen: &early, Price: ptr(decimal.NewFromInt(10))},
		{Key: "k", Count: 2, Amount: decimal.RequireFromString("2.5"), Seen: nil, Label: ptr("first")},
		{Key: "k", Count: 0, Amount: decimal.Zero, Seen: &late, Label: ptr("second"), Price: ptr(decimal.NewFromInt(20))},
	})
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, int64(3), got.Count)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")), "amount %s", got.Amount)
	require.NotNil(t, got.Seen)
	assert.True(t, got.Seen.Equal(late))
	require.NotNil(t, got.Label)
	assert.Equal(t, "first", *got.Label)
	require.NotNil(t, got.Price)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(15)), "price %s", got.Price)
}

func TestFoldAllNull(t *testing.T) {
	out := foldSpec.Fold([]foldRow{{Key: "k"}, {Key: "k"}})
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Seen)
	assert.Nil(t, out[0].Label)
	assert.Nil(t, out[0].Price)
}

func TestFoldDoesNotMutateInput(t *testing.T) {
	in := []foldRow{
		{Key: "k", Count: 1, Amount: decimal.NewFromInt(1)},
		{Key: "k", Count: 1, Amount: decimal.NewFromInt(1)},
	}
	_ = foldSpec.Fold(in)
	assert.Equal(t, int64(1), in[0].Count)
	assert.True(t, in[0].Amount.Equal(decimal.NewFromInt(1)))
}

func TestSpecStrategyLookup(t *testing.T) {
	tests := []struct {
		spec  func() (Strategy, bool)
		want  Strategy
		found bool
	}{
		{func() (Strategy, bool) { return customerSpec.Strategy("total_orders") }, Sum, true},
		{func() (Strategy, bool) { return customerSpec.Strategy("last_order_date") }, Max, true},
		{func() (Strategy, bool) { return customerSpec.Strategy("region") }, FirstNonNull, true},
		{func() (Strategy, bool) { return productRollupSpec.Strategy("unit_price") }, Mean, true},
		{func() (Strategy, bool) { return productMergeSpec.Strategy("unit_price") }, FirstNonNull, true},
		{func() (Strategy, bool) { return customerSpec.Strategy("nope") }, 0, false},
	}

	for _, tt := range tests {
		got, ok := tt.spec()
		assert.Equal(t, tt.found, ok)
		if tt.found {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "sum", Sum.String())
	assert.Equal(t, "max", Max.String())
	assert.Equal(t, "first_non_null", FirstNonNull.String())
	assert.Equal(t, "mean", Mean.String())
	assert.Equal(t, "unknown", Strategy(42).String())
}
