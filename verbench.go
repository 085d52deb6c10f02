// Package verbench runs verifier experiment sessions and renders their
// results.
package verbench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-verbench/metrics"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/service"
	"github.com/ethereum-optimism/infra/op-verbench/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum-optimism/optimism/op-service/oppprof"
)

// session implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = (*session)(nil)

// session runs every batch of a plan once and then asks the app to close.
type session struct {
	config  *Config
	version string
	runID   string
	batches []runner.Batch
	driver  *runner.Driver
	tracker *runner.Tracker
	results []*runner.BatchResult
	out     io.Writer

	status        *service.StatusServer
	metricsServer *httputil.HTTPServer
	pprofServer   *oppprof.Service

	stopped atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New prepares a session. A nil processRunner runs commands through the
// configured shell.
func New(config *Config, version string, processRunner runner.ProcessRunner, shutdownCallback func(error)) (*session, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	batches, err := config.Plan.Batches(config.Repetitions, config.Timestamp)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, b := range batches {
		total += len(b.Inputs)
	}

	runID := uuid.New().String()
	tracker := runner.NewTracker(config.Log, runID, total)

	if processRunner == nil {
		processRunner = runner.NewShellRunner(config.Shell, config.WorkDir, config.Log)
	}
	driver, err := runner.NewDriver(runner.Config{
		Log:        config.Log,
		Runner:     processRunner,
		Tool:       config.Tool,
		BuildDir:   config.BuildDir,
		SkipPolicy: config.SkipPolicy,
		Progress:   tracker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	config.Log.Info("Prepared session",
		"version", version,
		"run_id", runID,
		"plan", config.PlanPath,
		"timestamp", config.Timestamp,
		"batches", len(batches),
		"inputs", total,
		"tool", config.Tool,
		"build_dir", config.BuildDir,
		"skip_policy", config.SkipPolicy)

	return &session{
		config:           config,
		version:          version,
		runID:            runID,
		batches:          batches,
		driver:           driver,
		tracker:          tracker,
		out:              os.Stdout,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs every batch in order and blocks until they finish or ctx ends.
// Start implements the cliapp.Lifecycle interface.
func (s *session) Start(ctx context.Context) (err error) {
	// Servers started before a failure are shut down here; the lifecycle
	// does not call Stop when Start fails.
	defer func() {
		if err == nil {
			return
		}
		if stopErr := s.Stop(context.Background()); stopErr != nil {
			s.config.Log.Warn("Failed to stop after session error", "err", stopErr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			metrics.RecordError("panic")
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.startServers(); err != nil {
		return NewRuntimeError(err)
	}

	started := time.Now()
	for _, batch := range s.batches {
		res, err := s.driver.RunBatch(ctx, batch)
		if res != nil {
			s.results = append(s.results, res)
		}
		if err != nil {
			if ctx.Err() != nil {
				s.config.Log.Warn("Session interrupted, rerun with the same timestamp to resume",
					"timestamp", s.config.Timestamp, "suite", batch.Suite, "tags", batch.Tag, "i", batch.Repetition)
				return fmt.Errorf("session interrupted: %w", err)
			}
			return NewRuntimeError(fmt.Errorf("batch %s/%s/%d: %w", batch.Suite, batch.Tag, batch.Repetition, err))
		}
	}

	s.printResultsTable(time.Since(started))
	s.config.Log.Info("Session completed", "run_id", s.runID, "duration", time.Since(started).Truncate(time.Second))

	go func() {
		s.shutdownCallback(nil)
	}()
	return nil
}

func (s *session) startServers() error {
	if s.config.StatusEnabled {
		s.status = service.NewStatusServer(s.config.Log, s.tracker)
		if err := s.status.Start(s.config.StatusAddr); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	if s.config.PprofConfig.ListenEnabled {
		pc := s.config.PprofConfig
		s.pprofServer = oppprof.New(pc.ListenEnabled, pc.ListenAddr, pc.ListenPort, pc.ProfileType, pc.ProfileDir, pc.ProfileFilename)
		s.config.Log.Info("Starting pprof server", "addr", pc.ListenAddr, "port", pc.ListenPort)
		if err := s.pprofServer.Start(); err != nil {
			return fmt.Errorf("failed to start pprof server: %w", err)
		}
	}

	if s.config.MetricsConfig.Enabled {
		mc := s.config.MetricsConfig
		s.config.Log.Info("Starting metrics server", "addr", mc.ListenAddr, "port", mc.ListenPort)
		srv, err := opmetrics.StartServer(metrics.Registry(), mc.ListenAddr, mc.ListenPort)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		s.config.Log.Info("Started metrics server", "endpoint", srv.Addr())
		s.metricsServer = srv
	}
	return nil
}

// Stop shuts down the auxiliary servers. Batches stop through the context
// passed to Start.
// Stop implements the cliapp.Lifecycle interface.
func (s *session) Stop(ctx context.Context) error {
	if s.stopped.Swap(true) {
		return nil
	}
	var result error
	if s.status != nil {
		if err := s.status.Shutdown(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop status server: %w", err))
		}
	}
	if s.pprofServer != nil {
		if err := s.pprofServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop pprof server: %w", err))
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	s.config.Log.Info("op-verbench stopped")
	return result
}

// Stopped implements the cliapp.Lifecycle interface.
func (s *session) Stopped() bool {
	return s.stopped.Load()
}

// Results returns the summaries of the batches that ran.
func (s *session) Results() []*runner.BatchResult {
	return s.results
}

// printResultsTable prints one row per batch.
func (s *session) printResultsTable(elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetTitle(fmt.Sprintf("Verification session %s (%s)", s.runID, elapsed.Truncate(time.Second)))
	t.AppendHeader(table.Row{
		"Suite", "Tags", "i", "Ran", "Skipped", "Verified", "Falsified", "Error", "Timeout", "Duration", "Store",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", AutoMerge: true},
		{Name: "Store", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	var ran, skipped int
	outcomes := make(map[types.Outcome]int)
	for _, r := range s.results {
		t.AppendRow(table.Row{
			r.Suite, r.Tag, r.Repetition, r.Ran, r.Skipped,
			colorCount(r.Outcomes[types.OutcomeVerified], text.FgGreen),
			colorCount(r.Outcomes[types.OutcomeFalsified], text.FgRed),
			colorCount(r.Outcomes[types.OutcomeError], text.FgRed),
			colorCount(r.Outcomes[types.OutcomeTimeout], text.FgYellow),
			r.Duration.Truncate(time.Second),
			r.StorePath,
		})
		ran += r.Ran
		skipped += r.Skipped
		for o, n := range r.Outcomes {
			outcomes[o] += n
		}
	}
	t.AppendFooter(table.Row{
		"TOTAL", "", "", ran, skipped,
		outcomes[types.OutcomeVerified], outcomes[types.OutcomeFalsified],
		outcomes[types.OutcomeError], outcomes[types.OutcomeTimeout], "", "",
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func colorCount(n int, c text.Color) string {
	if n == 0 {
		return "0"
	}
	return c.Sprint(n)
}
