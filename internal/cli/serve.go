package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/api"
	"github.com/pgEdge/pgedge-salesync/internal/jobs"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/scheduler"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

const shutdownTimeout = 30 * time.Second

var (
	serveHost       string
	servePort       int
	serveNoSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled jobs and the HTTP API",
	Long: `Run the etl, index and insights jobs on their cron schedules and serve
the HTTP API until interrupted with Ctrl+C.

Schedules use six-field cron expressions with a leading seconds field.
The defaults run the ETL at 02:00, the index update at 02:30 and insight
generation at 03:00 UTC. An empty schedule disables that job's timer; the
job can still be triggered over HTTP.

Endpoints:
  GET  /health
  POST /api/process-sap-data
  POST /api/v1/jobs/:name
  GET  /api/v1/customers/top
  GET  /api/v1/customers/:id
  GET  /api/v1/customers/:id/orders
  GET  /api/v1/sales
  GET  /api/v1/products/performance
  GET  /api/v1/regions/sales
  GET  /api/v1/reps/performance
  GET  /api/v1/insights

Example:
  pgedge-salesync serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"HTTP listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"HTTP listen port")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false,
		"disable all job timers (HTTP triggers only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.ValidateServe(); err != nil {
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

	registry := jobs.NewRegistry(etlJob(reader, pool), insightsJob(pool))

	// The index job is optional; the other jobs run without search credentials.
	if client, err := newSearchClient(provider); err != nil {
		logging.Warn().Err(err).Msg("Search service not configured, index job disabled")
	} else {
		registry.Register(indexJob(pool, client))
	}

	schedules := make(map[string]string)
	if !serveNoSchedule {
		for name, spec := range scheduleMap() {
			if _, err := registry.Get(name); err == nil {
				schedules[name] = spec
			}
		}
	}

	sched, err := scheduler.New(registry, schedules)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server.Host, cfg.Server.Port,
		trigger{registry: registry, sched: sched}, warehouse.NewStore(pool))

	logging.Info().
		Strs("jobs", registry.List()).
		Strs("scheduled", sched.Jobs()).
		Str("addr", server.Addr()).
		Msg("Starting sales sync service")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logging.Warn().Err(serr).Msg("HTTP server did not shut down cleanly")
	}

	<-schedDone
	sched.PrintSummary(os.Stdout)
	logging.Info().Msg("Sales sync service stopped")
	return err
}

// trigger runs registered jobs through the scheduler so manual runs show up
// in its metrics. Unknown names are rejected before reaching the scheduler.
type trigger struct {
	registry *jobs.Registry
	sched    *scheduler.Scheduler
}

func (t trigger) Trigger(ctx context.Context, name string) (string, error) {
	if _, err := t.registry.Get(name); err != nil {
		return "", err
	}
	return t.sched.Trigger(ctx, name)
}
