//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesync.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/config"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/pkg/version"
)

var (
	// Global flags
	cfgFile             string
	sourceDriver        string
	sourceConnection    string
	warehouseConnection string
	logLevel            string
	logFormat           string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesync",
		Short: "SAP ECC/BW sales reconciliation ETL for PostgreSQL",
		Long: `pgedge-salesync pulls raw order lines from SAP ECC and sales summaries
from SAP BW, reconciles them into customers, products and sales in a
PostgreSQL warehouse, derives business insights, and republishes the
result to a search index.

Jobs can be run once from the command line (etl, index, insights) or on
their cron schedules by the serve command, which also exposes the
on-demand trigger and read endpoints over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesync.yaml)")
	rootCmd.PersistentFlags().StringVar(&sourceDriver, "source-driver", "",
		"raw SAP data store driver (pgx, snowflake)")
	rootCmd.PersistentFlags().StringVar(&sourceConnection, "source-connection", "",
		"raw SAP data store connection string")
	rootCmd.PersistentFlags().StringVar(&warehouseConnection, "warehouse-connection", "",
		"warehouse PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (console, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(etlCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(jobsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if sourceDriver != "" {
		cfg.Source.Driver = sourceDriver
	}
	if sourceConnection != "" {
		cfg.Source.Connection = sourceConnection
	}
	if warehouseConnection != "" {
		cfg.Warehouse.Connection = warehouseConnection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogFormat != "json",
	})

	return cfg.Validate()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List available jobs and their schedules",
	Run: func(cmd *cobra.Command, args []string) {
		schedules := scheduleMap()
		cmd.Println("Available jobs:")
		cmd.Println()
		for _, j := range jobDescriptions {
			spec := schedules[j.name]
			if spec == "" {
				spec = "disabled"
			}
			cmd.Printf("  %-9s - %s (schedule: %s)\n", j.name, j.description, spec)
		}
		cmd.Println()
		cmd.Println("Use 'pgedge-salesync <job>' to run a job once.")
	},
}
