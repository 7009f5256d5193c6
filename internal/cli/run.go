package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
)

var (
	etlWindowDays     int
	indexSalesDays    int
	indexBatchSize    int
	insightsDays      int
	searchEndpointArg string
	searchIndexArg    string
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Reconcile SAP ECC and BW data into the warehouse once",
	Long: `Read the trailing window of raw SAP ECC order lines and SAP BW sales
summaries, reconcile them into customers, products and sales, and write the
result to the warehouse in a single transaction.

Example:
  pgedge-salesync etl --source-connection "postgres://..." --window-days 7`,
	RunE: runETL,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search index from the warehouse once",
	Long: `Recreate the search index definition, clear it, and upload one document
per customer, per product and per sale created in the trailing window.`,
	RunE: runIndex,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate business insights from recent sales once",
	Long: `Analyse the trailing window of sales and store sales trends, customer,
product, regional and sales rep insights in the business_insights table.`,
	RunE: runInsights,
}

func init() {
	etlCmd.Flags().IntVar(&etlWindowDays, "window-days", 0,
		"trailing days of processed_at read from the SAP tables")

	indexCmd.Flags().IntVar(&indexSalesDays, "sales-days", 0,
		"trailing days of sales published to the index")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0,
		"documents per upload request")
	indexCmd.Flags().StringVar(&searchEndpointArg, "search-endpoint", "",
		"search service endpoint URL")
	indexCmd.Flags().StringVar(&searchIndexArg, "index-name", "",
		"search index name")

	insightsCmd.Flags().IntVar(&insightsDays, "days", 0,
		"trailing days of sales analysed")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func runETL(cmd *cobra.Command, args []string) error {
	if etlWindowDays > 0 {
		cfg.Source.WindowDays = etlWindowDays
	}
	if err := cfg.ValidateETL(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	provider := secrets.NewProvider(cfg)
	reader, err := openSource(ctx, provider)
	if err != nil {
		return err
	}
	defer reader.Close()

	pool, err := connectWarehouse(ctx, provider)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := runOnce(ctx, etlJob(reader, pool))
	if err != nil {
		return err
	}
	cmd.Println(result)
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexSalesDays > 0 {
		cfg.Search.SalesDays = indexSalesDays
	}
	if indexBatchSize > 0 {
		cfg.Search.BatchSize = indexBatchSize
	}
	if searchEndpointArg != "" {
		cfg.Search.Endpoint = searchEndpointArg
	}
	if searchIndexArg != "" {
		cfg.Search.IndexName = searchIndexArg
	}
	if err := cfg.ValidateIndex(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	provider := secrets.NewProvider(cfg)
	client, err := newSearchClient(provider)
	if err != nil {
		return err
	}

	pool, err := connectWarehouse(ctx, provider)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := runOnce(ctx, indexJob(pool, client))
	if err != nil {
		return err
	}
	cmd.Println(result)
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	if insightsDays > 0 {
		cfg.Insights.Days = insightsDays
	}
	if err := cfg.ValidateInsights(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connectWarehouse(ctx, secrets.NewProvider(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := runOnce(ctx, insightsJob(pool))
	if err != nil {
		return fmt.Errorf("insights job failed: %w", err)
	}
	cmd.Println(result)
	return nil
}
