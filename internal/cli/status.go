package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/db"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warehouse initialization, last job runs and table sizes",
	RunE:  runStatus,
}

var statusRawTables bool

func init() {
	statusCmd.Flags().BoolVar(&statusRawTables, "raw-tables", false,
		"also count the raw SAP tables in the warehouse database")
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	if !exists {
		return fmt.Errorf("warehouse has not been initialized; run 'pgedge-salesync init' first")
	}

	entries, err := db.GetAllMetadata(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	printMetadata(cmd.OutOrStdout(), entries)

	tables := warehouse.AnalyticalTables
	if statusRawTables {
		tables = append(append([]string{}, tables...), warehouse.RawTables...)
	}
	counts, err := warehouse.CountRows(ctx, pool, tables)
	if err != nil {
		return err
	}
	cmd.Println()
	printCounts(cmd.OutOrStdout(), counts)
	return nil
}

func printMetadata(w io.Writer, entries []db.Entry) {
	t := newTable(w, "Key", "Value", "Updated")
	for _, e := range entries {
		t.Append([]string{e.Key, e.Value, e.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	t.Render()
}

func printCounts(w io.Writer, counts []warehouse.TableCount) {
	t := newTable(w, "Table", "Rows")
	for _, c := range counts {
		t.Append([]string{c.Table, strconv.FormatInt(c.Rows, 10)})
	}
	t.Render()
}
