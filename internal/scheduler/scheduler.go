//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package scheduler runs registered jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/robfig/cron/v3"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
)

// PastDueThreshold is how late a run may start before it is logged as past due.
const PastDueThreshold = time.Minute

// Parser accepts six-field cron expressions with a leading seconds field.
var Parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Runner runs a job by name.
type Runner interface {
	Run(ctx context.Context, name string) (string, error)
}

// Scheduler triggers jobs on their cron schedules and keeps per-job metrics.
type Scheduler struct {
	cron      *cron.Cron
	runner    Runner
	entries   map[string]cron.EntryID
	startTime time.Time
	now       func() time.Time

	mu      sync.RWMutex
	baseCtx context.Context

	jobMetrics sync.Map // map[string]*jobMetric
}

type jobMetric struct {
	runs       atomic.Int64
	failures   atomic.Int64
	pastDue    atomic.Int64
	active     atomic.Int64
	durationNs atomic.Int64

	mu         sync.Mutex
	lastRun    time.Time
	lastResult string
}

// New creates a scheduler. schedules maps job names to cron expressions;
// jobs with an empty expression are not scheduled.
func New(runner Runner, schedules map[string]string) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{}),
		),
		runner:  runner,
		entries: make(map[string]cron.EntryID),
		now:     time.Now,
		baseCtx: context.Background(),
	}

	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := strings.TrimSpace(schedules[name])
		if spec == "" {
			logging.Info().Str("job", name).Msg("Job schedule disabled")
			continue
		}
		if err := s.add(name, spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string) error {
	var id cron.EntryID
	var err error
	id, err = s.cron.AddFunc(spec, func() {
		scheduled := s.cron.Entry(id).Prev
		s.execute(s.runContext(), name, scheduled)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule for job %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation time of a scheduled job after now.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Schedule.Next(s.now().UTC()), true
}

// Run starts the schedules and blocks until ctx is cancelled, then waits
// for running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.startTime = s.now()

	s.cron.Start()
	for _, name := range s.Jobs() {
		next, _ := s.Next(name)
		logging.Info().Str("job", name).Time("next_run", next).Msg("Next scheduled run")
	}

	<-ctx.Done()
	logging.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// Trigger runs a job immediately, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) (string, error) {
	return s.execute(ctx, name, time.Time{})
}

func (s *Scheduler) execute(ctx context.Context, name string, scheduled time.Time) (string, error) {
	m := s.metric(name)
	started := s.now()

	log := logging.With("job", name)
	if !scheduled.IsZero() {
		if late := started.Sub(scheduled); late > PastDueThreshold {
			m.pastDue.Add(1)
			log.Warn().Dur("late_by", late).Msg("Scheduled run is past due")
		}
	}
	if running := m.active.Add(1); running > 1 {
		log.Warn().Int64("running", running).Msg("Previous run still in progress")
	}
	defer m.active.Add(-1)

	log.Info().Msg("Job started")
	result, err := s.runner.Run(ctx, name)
	elapsed := s.now().Sub(started)

	m.runs.Add(1)
	m.durationNs.Add(int64(elapsed))
	m.mu.Lock()
	m.lastRun = started
	m.lastResult = result
	if err != nil {
		m.lastResult = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.failures.Add(1)
		}
		log.Error().Err(err).Dur("duration", elapsed).Msg("Job failed")
		return "", err
	}
	log.Info().Dur("duration", elapsed).Str("result", result).Msg("Job finished")
	return result, nil
}

func (s *Scheduler) metric(name string) *jobMetric {
	if m, ok := s.jobMetrics.Load(name); ok {
		return m.(*jobMetric)
	}
	actual, _ := s.jobMetrics.LoadOrStore(name, &jobMetric{})
	return actual.(*jobMetric)
}

// Stats is a snapshot of one job's metrics.
type Stats struct {
	Job         string
	Runs        int64
	Failures    int64
	PastDue     int64
	AvgDuration time.Duration
	LastRun     time.Time
	LastResult  string
}

// Stats returns a snapshot of every job that has run, sorted by name.
func (s *Scheduler) Stats() []Stats {
	var out []Stats
	s.jobMetrics.Range(func(key, value any) bool {
		m := value.(*jobMetric)
		st := Stats{
			Job:      key.(string),
			Runs:     m.runs.Load(),
			Failures: m.failures.Load(),
			PastDue:  m.pastDue.Load(),
		}
		if st.Runs > 0 {
			st.AvgDuration = time.Duration(m.durationNs.Load() / st.Runs)
		}
		m.mu.Lock()
		st.LastRun = m.lastRun
		st.LastResult = m.lastResult
		m.mu.Unlock()
		out = append(out, st)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// PrintSummary writes a per-job summary table.
func (s *Scheduler) PrintSummary(w io.Writer) {
	stats := s.Stats()

	logging.Info().
		Dur("uptime", s.now().Sub(s.startTime)).
		Int("jobs", len(stats)).
		Msg("Scheduler summary")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Job", "Runs", "Failures", "Past Due", "Avg Duration", "Last Run", "Last Result"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, st := range stats {
		lastRun := "-"
		if !st.LastRun.IsZero() {
			lastRun = st.LastRun.UTC().Format(time.RFC3339)
		}
		table.Append([]string{
			st.Job,
			fmt.Sprintf("%d", st.Runs),
			fmt.Sprintf("%d", st.Failures),
			fmt.Sprintf("%d", st.PastDue),
			st.AvgDuration.Round(time.Millisecond).String(),
			lastRun,
			st.LastResult,
		})
	}
	table.Render()
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	ev := logging.Debug()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		ev = ev.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	ev.Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	ev := logging.Error().Err(err)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		ev = ev.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	ev.Msg("cron: " + msg)
}
