package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/secrets"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

var (
	reportStartDate   string
	reportEndDate     string
	topCustomerLimit  int
	orderLimit        int
	salesLimit        int
	reportOffset      int
	reportRegion      string
	reportCustomerID  string
	reportProductCode string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print read-only reports over the warehouse",
	Long: `Print the same reports served by the HTTP API as tables.

Dates use the YYYY-MM-DD format; the end date includes the whole day.`,
}

var reportCustomerCmd = &cobra.Command{
	Use:   "customer <customer-id>",
	Short: "Show one customer",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		c, err := store.GetCustomer(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get customer %s: %w", args[0], err)
		}
		t := newTable(cmd.OutOrStdout(), "Field", "Value")
		t.Append([]string{"Customer ID", c.CustomerID})
		t.Append([]string{"Segment", str(c.Segment)})
		t.Append([]string{"Region", str(c.Region)})
		t.Append([]string{"Sales Rep", str(c.SalesRep)})
		t.Append([]string{"Total Orders", strconv.FormatInt(c.TotalOrders, 10)})
		t.Append([]string{"Total Sales", money(c.TotalSalesAmount)})
		t.Append([]string{"Last Order", timePtr(c.LastOrderDate)})
		t.Append([]string{"Updated", c.UpdatedAt.UTC().Format(time.RFC3339)})
		t.Render()
		return nil
	}),
}

var reportOrdersCmd = &cobra.Command{
	Use:   "orders <customer-id>",
	Short: "Show a customer's order history",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		orders, err := store.CustomerOrders(ctx, args[0], orderLimit)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "Date", "Order", "Product", "Category", "Quantity", "Amount", "Unit Price", "Channel")
		for _, o := range orders {
			t.Append([]string{
				day(o.SalesDate), str(o.OrderNumber), o.ProductCode, str(o.ProductCategory),
				o.SalesQuantity.String(), money(o.SalesAmount), moneyPtr(o.UnitPrice), str(o.Channel),
			})
		}
		t.Render()
		return nil
	}),
}

var reportTopCustomersCmd = &cobra.Command{
	Use:   "top-customers",
	Short: "Rank customers by sales amount",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		r, err := warehouse.ParseDateRange(reportStartDate, reportEndDate)
		if err != nil {
			return err
		}
		top, err := store.TopCustomers(ctx, topCustomerLimit, r)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "Customer", "Segment", "Region", "Orders", "Total Sales", "Avg Order", "Last Order")
		for _, c := range top {
			t.Append([]string{
				c.CustomerID, str(c.CustomerSegment), str(c.Region),
				strconv.FormatInt(c.TotalOrders, 10), money(c.TotalSalesAmount),
				money(c.AverageOrderValue), day(c.LastOrderDate),
			})
		}
		t.Render()
		return nil
	}),
}

var reportSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "List sales",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		r, err := warehouse.ParseDateRange(reportStartDate, reportEndDate)
		if err != nil {
			return err
		}
		sales, err := store.Sales(ctx, warehouse.SalesFilter{
			DateRange:  r,
			Region:     reportRegion,
			CustomerID: reportCustomerID,
			Limit:      salesLimit,
			Offset:     reportOffset,
		})
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "Date", "Customer", "Product", "Order", "Quantity", "Amount", "Region", "Source")
		for _, s := range sales {
			t.Append([]string{
				day(s.SaleDate), s.CustomerID, s.ProductCode, str(s.OrderNumber),
				s.SalesQuantity.String(), money(s.SalesAmount), str(s.Region), string(s.DataSource),
			})
		}
		t.Render()
		return nil
	}),
}

var reportProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Show product performance",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		r, err := warehouse.ParseDateRange(reportStartDate, reportEndDate)
		if err != nil {
			return err
		}
		perf, err := store.ProductPerformance(ctx, reportProductCode, r)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "Product", "Category", "Sales", "Quantity", "Amount", "Avg Price", "First Sale", "Last Sale")
		for _, p := range perf {
			t.Append([]string{
				p.ProductCode, str(p.ProductCategory), strconv.FormatInt(p.TotalSales, 10),
				p.TotalQuantitySold.String(), money(p.TotalSalesAmount), moneyPtr(p.AverageUnitPrice),
				day(p.FirstSaleDate), day(p.LastSaleDate),
			})
		}
		t.Render()
		return nil
	}),
}

var reportRegionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Show sales per region",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		r, err := warehouse.ParseDateRange(reportStartDate, reportEndDate)
		if err != nil {
			return err
		}
		regions, err := store.RegionalSales(ctx, r)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), append([]string{"Region"}, groupHeader...)...)
		for _, g := range regions {
			t.Append(append([]string{str(g.Region)}, groupRow(g.GroupTotals)...))
		}
		t.Render()
		return nil
	}),
}

var reportRepsCmd = &cobra.Command{
	Use:   "reps",
	Short: "Show sales rep performance",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		r, err := warehouse.ParseDateRange(reportStartDate, reportEndDate)
		if err != nil {
			return err
		}
		reps, err := store.SalesRepPerformance(ctx, r)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), append([]string{"Sales Rep"}, groupHeader...)...)
		for _, g := range reps {
			t.Append(append([]string{g.SalesRep}, groupRow(g.GroupTotals)...))
		}
		t.Render()
		return nil
	}),
}

var reportInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the latest insight of each type",
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error {
		latest, err := store.LatestInsights(ctx)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "Type", "Generated", "Data")
		for _, in := range latest {
			t.Append([]string{in.Type, in.GeneratedAt.UTC().Format(time.RFC3339), truncate(string(in.Data), 120)})
		}
		t.Render()
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{reportTopCustomersCmd, reportSalesCmd, reportProductsCmd, reportRegionsCmd, reportRepsCmd} {
		c.Flags().StringVar(&reportStartDate, "start-date", "", "first sale date (YYYY-MM-DD)")
		c.Flags().StringVar(&reportEndDate, "end-date", "", "last sale date (YYYY-MM-DD)")
	}
	reportTopCustomersCmd.Flags().IntVar(&topCustomerLimit, "limit", warehouse.DefaultTopCustomerLimit, "number of customers")
	reportOrdersCmd.Flags().IntVar(&orderLimit, "limit", warehouse.DefaultOrderLimit, "number of order lines")
	reportSalesCmd.Flags().IntVar(&salesLimit, "limit", 100, "maximum rows (0 = all)")
	reportSalesCmd.Flags().IntVar(&reportOffset, "offset", 0, "rows to skip")
	reportSalesCmd.Flags().StringVar(&reportRegion, "region", "", "region filter")
	reportSalesCmd.Flags().StringVar(&reportCustomerID, "customer", "", "customer filter")
	reportProductsCmd.Flags().StringVar(&reportProductCode, "product", "", "product code filter")

	reportCmd.AddCommand(reportCustomerCmd, reportOrdersCmd, reportTopCustomersCmd, reportSalesCmd,
		reportProductsCmd, reportRegionsCmd, reportRepsCmd, reportInsightsCmd)
}

// withStore connects to the warehouse for the duration of one report.
func withStore(fn func(ctx context.Context, cmd *cobra.Command, args []string, store *warehouse.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectWarehouse(ctx, secrets.NewProvider(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, cmd, args, warehouse.NewStore(pool))
	}
}

var groupHeader = []string{"Sales", "Customers", "Quantity", "Amount", "Avg Sale"}

func groupRow(g warehouse.GroupTotals) []string {
	return []string{
		strconv.FormatInt(g.TotalSales, 10),
		strconv.FormatInt(g.UniqueCustomers, 10),
		g.TotalQuantitySold.String(),
		money(g.TotalSalesAmount),
		money(g.AverageSaleAmount),
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func str(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return money(*d)
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func timePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return day(*t)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
