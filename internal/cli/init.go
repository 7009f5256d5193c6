package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/datagen"
	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

var (
	initDropExisting bool
	initSampleData   bool
	initRawTables    bool
	initCustomers    int
	initProducts     int
	initECCLines     int
	initBWRows       int
	initSeed         uint64
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the warehouse schema",
	Long: `Create the analytical tables (customers, products, sales,
business_insights) and the etl_metadata table in the warehouse database.

With --sample-data, the raw SAP tables (sap_ecc_raw_data, sap_bw_raw_data)
are also created in the warehouse database and filled with generated order
lines and sales summaries, so the ETL can be tried against PostgreSQL
without a live SAP feed.

Example:
  pgedge-salesync init --warehouse-connection "postgres://..." --sample-data`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing tables before initialization")
	initCmd.Flags().BoolVar(&initSampleData, "sample-data", false,
		"create the raw SAP tables and fill them with sample data")
	initCmd.Flags().BoolVar(&initRawTables, "raw-tables", false,
		"create the raw SAP tables without sample data")

	defaults := datagen.DefaultConfig()
	initCmd.Flags().IntVar(&initCustomers, "customers", defaults.Customers,
		"number of sample customers")
	initCmd.Flags().IntVar(&initProducts, "products", defaults.Products,
		"number of sample products")
	initCmd.Flags().IntVar(&initECCLines, "ecc-lines", defaults.ECCLines,
		"number of sample SAP ECC order lines")
	initCmd.Flags().IntVar(&initBWRows, "bw-rows", defaults.BWRows,
		"number of sample SAP BW summary rows")
	initCmd.Flags().Uint64Var(&initSeed, "seed", 0,
		"random seed for reproducible sample data (0 = random)")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := connectWarehouse(ctx, secrets.NewProvider(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	exists, err := db.MetadataExists(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to check metadata: %w", err)
	}
	if exists && !initDropExisting {
		if v, err := db.GetMetadataValue(ctx, pool, db.KeySchemaVersion); err == nil {
			logging.Info().
				Str("schema_version", v).
				Msg("Warehouse already initialized, creating missing tables only")
		}
	}

	// Drop existing schema if requested
	if initDropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := warehouse.DropSchema(ctx, pool); err != nil {
			return err
		}
		if initSampleData || initRawTables {
			if err := warehouse.DropRawSchema(ctx, pool); err != nil {
				return err
			}
		}
	}

	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		return err
	}

	if initSampleData || initRawTables {
		if err := warehouse.CreateRawSchema(ctx, pool); err != nil {
			return err
		}
	}

	if initSampleData {
		genCfg := datagen.DefaultConfig()
		genCfg.Customers = initCustomers
		genCfg.Products = initProducts
		genCfg.ECCLines = initECCLines
		genCfg.BWRows = initBWRows
		genCfg.Days = cfg.Source.WindowDays

		counts, err := datagen.NewGenerator(genCfg, initSeed).Load(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to generate sample data: %w", err)
		}
		logging.Info().
			Int("ecc_lines", counts.ECC).
			Int("bw_rows", counts.BW).
			Msg("Sample SAP data loaded")
	}

	// Save metadata
	if err := db.SaveInitMetadata(ctx, pool); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().Msg("Warehouse initialization complete")
	return nil
}
