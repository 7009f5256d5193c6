package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		build      func(w *whereBuilder)
		wantClause string
		wantArgs   int
	}{
		{
			name:       "base only",
			build:      func(w *whereBuilder) {},
			wantClause: "WHERE s.is_active = TRUE",
			wantArgs:   0,
		},
		{
			name: "open ended range",
			build: func(w *whereBuilder) {
				w.dateRange("s.sales_date", DateRange{Start: &start})
			},
			wantClause: "WHERE s.is_active = TRUE AND s.sales_date >= $1",
			wantArgs:   1,
		},
		{
			name: "all filters",
			build: func(w *whereBuilder) {
				w.dateRange("s.sales_date", DateRange{Start: &start, End: &end})
				w.add("s.region = %s", "North")
				w.add("s.customer_id = %s", "C1")
			},
			wantClause: "WHERE s.is_active = TRUE AND s.sales_date >= $1 AND s.sales_date <= $2 AND s.region = $3 AND s.customer_id = $4",
			wantArgs:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWhere("s.is_active = TRUE")
			tt.build(w)
			assert.Equal(t, tt.wantClause, w.clause())
			assert.Len(t, w.args, tt.wantArgs)
		})
	}
}

func TestWhereBuilderEmpty(t *testing.T) {
	assert.Equal(t, "", newWhere().clause())
}

func TestWhereBuilderPage(t *testing.T) {
	w := newWhere("s.is_active = TRUE")
	w.add("s.customer_id = %s", "C1")

	assert.Equal(t, "OFFSET $2 ROWS FETCH NEXT $3 ROWS ONLY", w.page(50, 0))
	assert.Equal(t, []any{"C1", int64(0), int64(50)}, w.args)

	w2 := newWhere()
	assert.Equal(t, "", w2.page(0, 10))
	assert.Empty(t, w2.args)
}

func TestNewWhereCopiesBase(t *testing.T) {
	base := []string{"a = 1"}
	w := newWhere(base...)
	w.add("b = %s", 2)
	assert.Equal(t, []string{"a = 1"}, base)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2025-01-01", "2025-01-31")
	assert.NoError(t, err)
	if assert.NotNil(t, r.Start) && assert.NotNil(t, r.End) {
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *r.Start)
		assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999000, time.UTC), *r.End)
	}

	r, err = ParseDateRange("", "")
	assert.NoError(t, err)
	assert.Nil(t, r.Start)
	assert.Nil(t, r.End)

	r, err = ParseDateRange("2025-03-05", "2025-03-05")
	assert.NoError(t, err)
	assert.True(t, r.End.After(*r.Start))

	for _, bad := range [][2]string{
		{"2025/01/01", ""},
		{"", "31-01-2025"},
		{"2025-02-01", "2025-01-31"},
	} {
		_, err := ParseDateRange(bad[0], bad[1])
		assert.Error(t, err, "start=%q end=%q", bad[0], bad[1])
	}
}
