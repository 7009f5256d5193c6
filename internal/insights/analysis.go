//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package insights

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

// Ranking sizes.
const (
	TopDays      = 5
	TopCustomers = 10
	TopProducts  = 10
	TopRegions   = 5
	TopReps      = 5

	// RecentDays is how far back a customer's last order counts as recent.
	RecentDays = 7
)

var (
	errNoSales    = errors.New("no sales data available")
	errNoRegions  = errors.New("no regional data available")
	errNoRepSales = errors.New("no sales rep data available")
)

var highPerformerQuantile = decimal.RequireFromString("0.8")

// tally accumulates one group of sales.
type tally struct {
	total     decimal.Decimal
	quantity  decimal.Decimal
	count     int
	priceSum  decimal.Decimal
	priceN    int
	first     time.Time
	last      time.Time
	customers map[string]struct{}
	reps      map[string]struct{}
	regions   map[string]struct{}
	segment   *string
	region    *string
	category  *string
}

func newTally() *tally {
	return &tally{
		customers: make(map[string]struct{}),
		reps:      make(map[string]struct{}),
		regions:   make(map[string]struct{}),
	}
}

func (t *tally) add(s warehouse.SaleDetail) {
	t.total = t.total.Add(s.SalesAmount)
	t.quantity = t.quantity.Add(s.SalesQuantity)
	t.count++
	if s.UnitPrice != nil {
		t.priceSum = t.priceSum.Add(*s.UnitPrice)
		t.priceN++
	}
	if t.first.IsZero() || s.SaleDate.Before(t.first) {
		t.first = s.SaleDate
	}
	if s.SaleDate.After(t.last) {
		t.last = s.SaleDate
	}
	t.customers[s.CustomerID] = struct{}{}
	if s.SalesRep != nil {
		t.reps[*s.SalesRep] = struct{}{}
	}
	if s.Region != nil {
		t.regions[*s.Region] = struct{}{}
	}
	t.segment = firstNonNil(t.segment, s.CustomerSegment)
	t.region = firstNonNil(t.region, s.Region)
	t.category = firstNonNil(t.category, s.ProductCategory)
}

func (t *tally) mean() decimal.Decimal {
	if t.count == 0 {
		return decimal.Zero
	}
	return t.total.Div(decimal.NewFromInt(int64(t.count)))
}

func (t *tally) meanPrice() *decimal.Decimal {
	if t.priceN == 0 {
		return nil
	}
	m := t.priceSum.Div(decimal.NewFromInt(int64(t.priceN)))
	return &m
}

func firstNonNil(cur, next *string) *string {
	if cur != nil {
		return cur
	}
	return next
}

// groupBy tallies sales by key, skipping sales whose key is absent. Keys are
// returned sorted.
func groupBy(sales []warehouse.SaleDetail, key func(warehouse.SaleDetail) (string, bool)) ([]string, map[string]*tally) {
	groups := make(map[string]*tally)
	for _, s := range sales {
		k, ok := key(s)
		if !ok {
			continue
		}
		t, seen := groups[k]
		if !seen {
			t = newTally()
			groups[k] = t
		}
		t.add(s)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

func required(f func(warehouse.SaleDetail) string) func(warehouse.SaleDetail) (string, bool) {
	return func(s warehouse.SaleDetail) (string, bool) { return f(s), true }
}

func optional(f func(warehouse.SaleDetail) *string) func(warehouse.SaleDetail) (string, bool) {
	return func(s warehouse.SaleDetail) (string, bool) {
		v := f(s)
		if v == nil {
			return "", false
		}
		return *v, true
	}
}

// topN returns the first n keys ordered by descending total. Ties keep key
// order.
func topN(keys []string, groups map[string]*tally, n int) []string {
	ranked := append([]string(nil), keys...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return groups[ranked[i]].total.GreaterThan(groups[ranked[j]].total)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func moneyPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := money(*d)
	return &f
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// GrowthRate compares the mean of the second half of values with the mean of
// the first half, as a percentage. It is 0 for fewer than two values or a
// zero first half.
func GrowthRate(values []decimal.Decimal) float64 {
	if len(values) < 2 {
		return 0
	}
	mid := len(values) / 2
	first := decimal.Avg(values[0], values[1:mid]...)
	second := decimal.Avg(values[mid], values[mid+1:]...)
	if first.IsZero() {
		return 0
	}
	return second.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Quantile returns the q-quantile of values using linear interpolation
// between closest ranks.
func Quantile(values []decimal.Decimal, q decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	pos := decimal.NewFromInt(int64(len(sorted) - 1)).Mul(q)
	lo := int(pos.Floor().IntPart())
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos.Sub(pos.Floor())
	return sorted[lo].Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac))
}

// DayTotal is one day's sales.
type DayTotal struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"total_sales"`
}

// SalesTrends summarizes daily sales.
type SalesTrends struct {
	TotalSales            float64    `json:"total_sales"`
	AverageDailySales     float64    `json:"average_daily_sales"`
	SalesGrowthRate       float64    `json:"sales_growth_rate"`
	TopPerformingDays     []DayTotal `json:"top_performing_days"`
	TotalUniqueCustomers  int        `json:"total_unique_customers"`
	AverageDailyCustomers float64    `json:"average_daily_customers"`
}

// ComputeSalesTrends groups sales by calendar day.
func ComputeSalesTrends(sales []warehouse.SaleDetail) (SalesTrends, error) {
	if len(sales) == 0 {
		return SalesTrends{}, errNoSales
	}

	days, groups := groupBy(sales, required(func(s warehouse.SaleDetail) string {
		return s.SaleDate.UTC().Format(time.DateOnly)
	}))

	totals := make([]decimal.Decimal, len(days))
	var sum decimal.Decimal
	uniqueCustomers := 0
	for i, d := range days {
		totals[i] = groups[d].total
		sum = sum.Add(groups[d].total)
		uniqueCustomers += len(groups[d].customers)
	}

	out := SalesTrends{
		TotalSales:            sum.InexactFloat64(),
		AverageDailySales:     sum.Div(decimal.NewFromInt(int64(len(days)))).InexactFloat64(),
		SalesGrowthRate:       GrowthRate(totals),
		TotalUniqueCustomers:  uniqueCustomers,
		AverageDailyCustomers: float64(uniqueCustomers) / float64(len(days)),
		TopPerformingDays:     make([]DayTotal, 0, TopDays),
	}
	for _, d := range topN(days, groups, TopDays) {
		out.TopPerformingDays = append(out.TopPerformingDays, DayTotal{Date: d, TotalSales: groups[d].total.InexactFloat64()})
	}
	return out, nil
}

// CustomerSummary is one customer's activity in the window.
type CustomerSummary struct {
	CustomerID    string  `json:"customer_id"`
	TotalSales    float64 `json:"total_sales"`
	OrderCount    int     `json:"order_count"`
	AvgOrderValue float64 `json:"avg_order_value"`
	Segment       *string `json:"segment"`
	Region        *string `json:"region"`
}

// SegmentSummary aggregates customers sharing a segment.
type SegmentSummary struct {
	Segment       string  `json:"segment"`
	CustomerCount int     `json:"customer_count"`
	TotalSales    float64 `json:"total_sales"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

// CustomerInsights summarizes customer behaviour.
type CustomerInsights struct {
	TotalCustomers        int               `json:"total_customers"`
	TopCustomers          []CustomerSummary `json:"top_customers"`
	SegmentAnalysis       []SegmentSummary  `json:"segment_analysis"`
	RecentCustomers       int               `json:"recent_customers"`
	ReturningCustomers    int               `json:"returning_customers"`
	CustomerRetentionRate float64           `json:"customer_retention_rate"`
}

// ComputeCustomerInsights ranks customers and segments. A customer is recent
// when their last sale falls within RecentDays of now.
func ComputeCustomerInsights(sales []warehouse.SaleDetail, now time.Time) (CustomerInsights, error) {
	if len(sales) == 0 {
		return CustomerInsights{}, errNoSales
	}

	ids, customers := groupBy(sales, required(func(s warehouse.SaleDetail) string { return s.CustomerID }))

	recentCutoff := now.UTC().AddDate(0, 0, -RecentDays).Truncate(24 * time.Hour)
	out := CustomerInsights{
		TotalCustomers:  len(ids),
		TopCustomers:    make([]CustomerSummary, 0, TopCustomers),
		SegmentAnalysis: make([]SegmentSummary, 0),
	}

	type segmentAcc struct {
		count    int
		total    decimal.Decimal
		avgTotal decimal.Decimal
	}
	segments := make(map[string]*segmentAcc)
	var segmentKeys []string

	for _, id := range ids {
		c := customers[id]
		if !c.last.Before(recentCutoff) {
			out.RecentCustomers++
		}
		if c.count > 1 {
			out.ReturningCustomers++
		}
		if c.segment != nil {
			acc, ok := segments[*c.segment]
			if !ok {
				acc = &segmentAcc{}
				segments[*c.segment] = acc
				segmentKeys = append(segmentKeys, *c.segment)
			}
			acc.count++
			acc.total = acc.total.Add(c.total)
			acc.avgTotal = acc.avgTotal.Add(c.mean().Round(2))
		}
	}
	out.CustomerRetentionRate = percent(out.ReturningCustomers, out.TotalCustomers)

	for _, id := range topN(ids, customers, TopCustomers) {
		c := customers[id]
		out.TopCustomers = append(out.TopCustomers, CustomerSummary{
			CustomerID:    id,
			TotalSales:    money(c.total),
			OrderCount:    c.count,
			AvgOrderValue: money(c.mean()),
			Segment:       c.segment,
			Region:        c.region,
		})
	}

	sort.Strings(segmentKeys)
	for _, k := range segmentKeys {
		acc := segments[k]
		out.SegmentAnalysis = append(out.SegmentAnalysis, SegmentSummary{
			Segment:       k,
			CustomerCount: acc.count,
			TotalSales:    money(acc.total),
			AvgOrderValue: money(acc.avgTotal.Div(decimal.NewFromInt(int64(acc.count)))),
		})
	}
	return out, nil
}

// ProductSummary is one product's activity in the window.
type ProductSummary struct {
	ProductCode   string   `json:"product_code"`
	TotalSales    float64  `json:"total_sales"`
	TotalQuantity float64  `json:"total_quantity"`
	AvgUnitPrice  *float64 `json:"avg_unit_price"`
	Category      *string  `json:"category"`
}

// CategorySummary aggregates products sharing a category.
type CategorySummary struct {
	Category      string   `json:"category"`
	ProductCount  int      `json:"product_count"`
	TotalSales    float64  `json:"total_sales"`
	TotalQuantity float64  `json:"total_quantity"`
	AvgUnitPrice  *float64 `json:"avg_unit_price"`
}

// ProductInsights summarizes product performance.
type ProductInsights struct {
	TotalProducts          int               `json:"total_products"`
	TopProducts            []ProductSummary  `json:"top_products"`
	CategoryAnalysis       []CategorySummary `json:"category_analysis"`
	HighPerformingProducts int               `json:"high_performing_products"`
	ProductDiversityScore  float64           `json:"product_diversity_score"`
}

// ComputeProductInsights ranks products and categories. A product is high
// performing when its total sales exceed the 80th percentile.
func ComputeProductInsights(sales []warehouse.SaleDetail) (ProductInsights, error) {
	if len(sales) == 0 {
		return ProductInsights{}, errNoSales
	}

	codes, products := groupBy(sales, required(func(s warehouse.SaleDetail) string { return s.ProductCode }))

	out := ProductInsights{
		TotalProducts:    len(codes),
		TopProducts:      make([]ProductSummary, 0, TopProducts),
		CategoryAnalysis: make([]CategorySummary, 0),
	}

	totals := make([]decimal.Decimal, len(codes))
	for i, code := range codes {
		totals[i] = products[code].total
	}
	threshold := Quantile(totals, highPerformerQuantile)
	for _, t := range totals {
		if t.GreaterThan(threshold) {
			out.HighPerformingProducts++
		}
	}
	out.ProductDiversityScore = percent(out.HighPerformingProducts, out.TotalProducts)

	for _, code := range topN(codes, products, TopProducts) {
		p := products[code]
		out.TopProducts = append(out.TopProducts, ProductSummary{
			ProductCode:   code,
			TotalSales:    money(p.total),
			TotalQuantity: money(p.quantity),
			AvgUnitPrice:  moneyPtr(p.meanPrice()),
			Category:      p.category,
		})
	}

	type categoryAcc struct {
		count    int
		total    decimal.Decimal
		quantity decimal.Decimal
		prices   []decimal.Decimal
	}
	categories := make(map[string]*categoryAcc)
	var categoryKeys []string
	for _, code := range codes {
		p := products[code]
		if p.category == nil {
			continue
		}
		acc, ok := categories[*p.category]
		if !ok {
			acc = &categoryAcc{}
			categories[*p.category] = acc
			categoryKeys = append(categoryKeys, *p.category)
		}
		acc.count++
		acc.total = acc.total.Add(p.total)
		acc.quantity = acc.quantity.Add(p.quantity)
		if mp := p.meanPrice(); mp != nil {
			acc.prices = append(acc.prices, mp.Round(2))
		}
	}

	sort.Strings(categoryKeys)
	for _, k := range categoryKeys {
		acc := categories[k]
		summary := CategorySummary{
			Category:      k,
			ProductCount:  acc.count,
			TotalSales:    money(acc.total),
			TotalQuantity: money(acc.quantity),
		}
		if len(acc.prices) > 0 {
			avg := decimal.Avg(acc.prices[0], acc.prices[1:]...)
			summary.AvgUnitPrice = moneyPtr(&avg)
		}
		out.CategoryAnalysis = append(out.CategoryAnalysis, summary)
	}
	return out, nil
}

// RegionSummary is one region's activity in the window.
type RegionSummary struct {
	Region          string  `json:"region"`
	TotalSales      float64 `json:"total_sales"`
	OrderCount      int     `json:"order_count"`
	UniqueCustomers int     `json:"unique_customers"`
	SalesReps       int     `json:"sales_reps"`
}

// RegionTotal is a region's total sales.
type RegionTotal struct {
	Region     string  `json:"region"`
	TotalSales float64 `json:"total_sales"`
}

// RegionalInsights summarizes sales by region. Sales without a region are
// ignored.
type RegionalInsights struct {
	TotalRegions          int             `json:"total_regions"`
	TopRegions            []RegionSummary `json:"top_regions"`
	AverageSalesPerRegion float64         `json:"average_sales_per_region"`
	BestPerformingRegion  string          `json:"best_performing_region"`
	BestRegionSales       float64         `json:"best_region_sales"`
	RegionalDistribution  []RegionTotal   `json:"regional_distribution"`
}

// ComputeRegionalInsights ranks regions by total sales.
func ComputeRegionalInsights(sales []warehouse.SaleDetail) (RegionalInsights, error) {
	if len(sales) == 0 {
		return RegionalInsights{}, errNoSales
	}

	regions, groups := groupBy(sales, optional(func(s warehouse.SaleDetail) *string { return s.Region }))
	if len(regions) == 0 {
		return RegionalInsights{}, errNoRegions
	}

	out := RegionalInsights{
		TotalRegions:         len(regions),
		TopRegions:           make([]RegionSummary, 0, TopRegions),
		RegionalDistribution: make([]RegionTotal, 0, len(regions)),
	}

	var sum decimal.Decimal
	for _, r := range regions {
		g := groups[r]
		sum = sum.Add(g.total.Round(2))
		out.RegionalDistribution = append(out.RegionalDistribution, RegionTotal{Region: r, TotalSales: money(g.total)})
	}
	out.AverageSalesPerRegion = sum.Div(decimal.NewFromInt(int64(len(regions)))).InexactFloat64()

	ranked := topN(regions, groups, TopRegions)
	out.BestPerformingRegion = ranked[0]
	out.BestRegionSales = money(groups[ranked[0]].total)
	for _, r := range ranked {
		g := groups[r]
		out.TopRegions = append(out.TopRegions, RegionSummary{
			Region:          r,
			TotalSales:      money(g.total),
			OrderCount:      g.count,
			UniqueCustomers: len(g.customers),
			SalesReps:       len(g.reps),
		})
	}
	return out, nil
}

// RepSummary is one sales rep's activity in the window.
type RepSummary struct {
	SalesRep        string  `json:"sales_rep"`
	TotalSales      float64 `json:"total_sales"`
	OrderCount      int     `json:"order_count"`
	UniqueCustomers int     `json:"unique_customers"`
	Regions         int     `json:"regions"`
}

// RepTotal is a sales rep's total sales.
type RepTotal struct {
	SalesRep   string  `json:"sales_rep"`
	TotalSales float64 `json:"total_sales"`
}

// SalesRepInsights summarizes sales rep performance.
type SalesRepInsights struct {
	TotalSalesReps             int          `json:"total_sales_reps"`
	TopSalesReps               []RepSummary `json:"top_sales_reps"`
	AverageSalesPerRep         float64      `json:"average_sales_per_rep"`
	TopPerformingRep           string       `json:"top_performing_rep"`
	TopRepSales                float64      `json:"top_rep_sales"`
	RepPerformanceDistribution []RepTotal   `json:"rep_performance_distribution"`
}

// ComputeSalesRepInsights ranks sales reps. Sales without a rep are ignored.
func ComputeSalesRepInsights(sales []warehouse.SaleDetail) (SalesRepInsights, error) {
	if len(sales) == 0 {
		return SalesRepInsights{}, errNoSales
	}

	reps, groups := groupBy(sales, optional(func(s warehouse.SaleDetail) *string { return s.SalesRep }))
	if len(reps) == 0 {
		return SalesRepInsights{}, errNoRepSales
	}

	out := SalesRepInsights{
		TotalSalesReps:             len(reps),
		TopSalesReps:               make([]RepSummary, 0, TopReps),
		RepPerformanceDistribution: make([]RepTotal, 0, len(reps)),
	}

	var sum decimal.Decimal
	for _, r := range reps {
		g := groups[r]
		sum = sum.Add(g.total.Round(2))
		out.RepPerformanceDistribution = append(out.RepPerformanceDistribution, RepTotal{SalesRep: r, TotalSales: money(g.total)})
	}
	out.AverageSalesPerRep = sum.Div(decimal.NewFromInt(int64(len(reps)))).InexactFloat64()

	ranked := topN(reps, groups, TopReps)
	out.TopPerformingRep = ranked[0]
	out.TopRepSales = money(groups[ranked[0]].total)
	for _, r := range ranked {
		g := groups[r]
		out.TopSalesReps = append(out.TopSalesReps, RepSummary{
			SalesRep:        r,
			TotalSales:      money(g.total),
			OrderCount:      g.count,
			UniqueCustomers: len(g.customers),
			Regions:         len(g.regions),
		})
	}
	return out, nil
}

// salesSources counts sales per data source.
func salesSources(sales []warehouse.SaleDetail) map[model.DataSource]int {
	out := make(map[model.DataSource]int)
	for _, s := range sales {
		out[s.DataSource]++
	}
	return out
}
