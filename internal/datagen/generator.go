//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
)

// Reference data
var (
	regions    = []string{"North America", "EMEA", "APAC", "LATAM"}
	channels   = []string{"Online", "Retail", "Partner", "Distributor"}
	segments   = []string{"Enterprise", "Mid-Market", "SMB", "Public Sector"}
	categories = []string{"Electronics", "Industrial", "Office Supplies", "Software", "Services", "Spare Parts"}
	statuses   = []string{"Completed", "Shipped", "Open", "Cancelled"}
)

var statusWeights = []int{60, 25, 10, 5}

// Config sizes the sample data set.
type Config struct {
	Customers int
	Products  int
	SalesReps int
	ECCLines  int
	BWRows    int

	// Days spreads processed_at over the trailing window.
	Days int

	// BatchSize is the number of rows per insert statement.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultConfig returns a sample sized for a quick local run.
func DefaultConfig() Config {
	return Config{
		Customers:        200,
		Products:         50,
		SalesReps:        12,
		ECCLines:         2000,
		BWRows:           800,
		Days:             7,
		BatchSize:        500,
		ProgressInterval: 1000,
	}
}

type customerProfile struct {
	id       string
	segment  string
	region   string
	salesRep string
}

type productProfile struct {
	code     string
	category string
	price    decimal.Decimal
}

// Generator generates sample raw SAP records.
type Generator struct {
	faker *Faker
	cfg   Config
	now   func() time.Time

	customers []customerProfile
	products  []productProfile
}

// NewGenerator creates a generator. A seed of zero uses a random seed.
func NewGenerator(cfg Config, seed uint64) *Generator {
	f := NewFaker()
	if seed != 0 {
		f = NewFakerWithSeed(seed)
	}
	return &Generator{faker: f, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) profiles() {
	if g.customers != nil {
		return
	}

	reps := make([]string, max(1, g.cfg.SalesReps))
	for i := range reps {
		reps[i] = g.faker.Name()
	}

	g.customers = make([]customerProfile, max(1, g.cfg.Customers))
	for i := range g.customers {
		g.customers[i] = customerProfile{
			id:       CustomerID(i + 1),
			segment:  Choose(g.faker, segments),
			region:   Choose(g.faker, regions),
			salesRep: Choose(g.faker, reps),
		}
	}

	g.products = make([]productProfile, max(1, g.cfg.Products))
	for i := range g.products {
		g.products[i] = productProfile{
			code:     ProductCode(i + 1),
			category: Choose(g.faker, categories),
			price:    g.faker.Price(5, 2500),
		}
	}
}

// processedAt returns a time within the trailing window.
func (g *Generator) processedAt(now time.Time) time.Time {
	days := max(1, g.cfg.Days)
	return g.faker.Date(now.Add(-time.Duration(days)*24*time.Hour+time.Hour), now)
}

// ECC generates order lines. Lines of one order share the order number,
// customer and date.
func (g *Generator) ECC() []model.ECCRecord {
	g.profiles()
	now := g.now().UTC()

	records := make([]model.ECCRecord, 0, g.cfg.ECCLines)
	for len(records) < g.cfg.ECCLines {
		c := Choose(g.faker, g.customers)
		processed := g.processedAt(now)
		orderDate := processed.Add(-time.Duration(g.faker.Int(0, 48)) * time.Hour)
		order := "SO-" + g.faker.Digits(8)
		status := ChooseWeighted(g.faker, statuses, statusWeights)

		lines := min(g.faker.Int(1, 4), g.cfg.ECCLines-len(records))
		for i := 0; i < lines; i++ {
			p := Choose(g.faker, g.products)
			qty := decimal.NewFromInt(int64(g.faker.Int(1, 40)))
			// Line prices drift a little around the list price.
			price := p.price.Mul(decimal.NewFromFloat(g.faker.Float64(0.9, 1.1))).Round(2)

			records = append(records, model.ECCRecord{
				CustomerID:  c.id,
				OrderNumber: g.faker.Nullable(order, 0.02),
				OrderDate:   orderDate,
				ProductCode: p.code,
				Quantity:    model.Amount(qty),
				UnitPrice:   &price,
				TotalAmount: model.Amount(qty.Mul(price)),
				Status:      &status,
				SalesRep:    g.faker.Nullable(c.salesRep, 0.05),
				Region:      g.faker.Nullable(c.region, 0.05),
				ProcessedAt: processed,
			})
		}
	}
	return records
}

// BW generates sales summary rows. A small share carries a zero quantity.
func (g *Generator) BW() []model.BWRecord {
	g.profiles()
	now := g.now().UTC()

	records := make([]model.BWRecord, 0, g.cfg.BWRows)
	for i := 0; i < g.cfg.BWRows; i++ {
		c := Choose(g.faker, g.customers)
		p := Choose(g.faker, g.products)
		processed := g.processedAt(now)

		qty := decimal.NewFromInt(int64(g.faker.Int(1, 200)))
		amount := qty.Mul(p.price).Round(2)
		if g.faker.Float64(0, 1) < 0.03 {
			qty = decimal.Zero
		}

		records = append(records, model.BWRecord{
			CustomerID:      c.id,
			ProductCode:     p.code,
			SalesAmount:     model.Amount(amount),
			SalesQuantity:   model.Amount(qty),
			SalesDate:       processed.Truncate(24 * time.Hour),
			SalesRep:        g.faker.Nullable(c.salesRep, 0.05),
			Region:          g.faker.Nullable(c.region, 0.05),
			Channel:         g.faker.Nullable(Choose(g.faker, channels), 0.1),
			ProductCategory: g.faker.Nullable(p.category, 0.05),
			CustomerSegment: g.faker.Nullable(c.segment, 0.05),
			ProcessedAt:     processed,
		})
	}
	return records
}

// Counts reports the rows inserted per table.
type Counts struct {
	ECC int
	BW  int
}

var eccColumns = []string{
	"customer_id", "order_number", "order_date", "product_code", "quantity",
	"unit_price", "total_amount", "status", "sales_rep", "region", "processed_at",
}

var bwColumns = []string{
	"customer_id", "product_code", "sales_amount", "sales_quantity", "sales_date",
	"sales_rep", "region", "channel", "product_category", "customer_segment", "processed_at",
}

// Load generates sample records and inserts them into the raw SAP tables.
func (g *Generator) Load(ctx context.Context, conn db.DB) (Counts, error) {
	logging.Info().
		Int("customers", g.cfg.Customers).
		Int("products", g.cfg.Products).
		Int("ecc_lines", g.cfg.ECCLines).
		Int("bw_rows", g.cfg.BWRows).
		Msg("Generating sample SAP data")

	ecc := g.ECC()
	rows := make([][]any, len(ecc))
	for i, r := range ecc {
		rows[i] = []any{
			r.CustomerID, r.OrderNumber, r.OrderDate, r.ProductCode, r.Quantity.Decimal.String(),
			r.UnitPrice.String(), r.TotalAmount.Decimal.String(), r.Status, r.SalesRep, r.Region, r.ProcessedAt,
		}
	}
	if err := g.insertRows(ctx, conn, "sap_ecc_raw_data", eccColumns, rows); err != nil {
		return Counts{}, fmt.Errorf("failed to generate sap_ecc_raw_data: %w", err)
	}

	bw := g.BW()
	rows = make([][]any, len(bw))
	for i, r := range bw {
		rows[i] = []any{
			r.CustomerID, r.ProductCode, r.SalesAmount.Decimal.String(), r.SalesQuantity.Decimal.String(), r.SalesDate,
			r.SalesRep, r.Region, r.Channel, r.ProductCategory, r.CustomerSegment, r.ProcessedAt,
		}
	}
	if err := g.insertRows(ctx, conn, "sap_bw_raw_data", bwColumns, rows); err != nil {
		return Counts{ECC: len(ecc)}, fmt.Errorf("failed to generate sap_bw_raw_data: %w", err)
	}

	return Counts{ECC: len(ecc), BW: len(bw)}, nil
}

func (g *Generator) insertRows(ctx context.Context, conn db.DB, table string, columns []string, rows [][]any) error {
	batchSize := g.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}
	interval := g.cfg.ProgressInterval
	if interval <= 0 {
		interval = DefaultConfig().ProgressInterval
	}
	progress := NewProgressReporter(table, int64(len(rows)), interval)

	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := rows[start:min(start+batchSize, len(rows))]
		sql, args := insertStatement(table, columns, batch)
		if _, err := conn.Exec(ctx, sql, args...); err != nil {
			return err
		}
		progress.Update(int64(len(batch)))
	}
	progress.Done()
	return nil
}

// insertStatement builds a multi-row parameterized INSERT.
func insertStatement(table string, columns []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, v)
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteByte(')')
	}
	return sb.String(), args
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rowsInserted int64) {
	oldRow := p.currentRow
	p.currentRow += rowsInserted

	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}
