package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-verbench/metrics"
	"github.com/ethereum-optimism/infra/op-verbench/store"
	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// Batch is one (repetition, tag) slice of a suite: the inputs to run and the
// store to record them in.
type Batch struct {
	Suite      string
	Inputs     []string
	Repetition int
	Command    CommandTemplate
	StorePath  string
	Tag        string
}

// BatchResult summarises what a batch did.
type BatchResult struct {
	Suite      string
	Tag        string
	Repetition int
	StorePath  string
	Ran        int
	Skipped    int
	Outcomes   map[types.Outcome]int
	Duration   time.Duration
}

// Config holds configuration for creating a new Driver
type Config struct {
	Log        log.Logger
	Runner     ProcessRunner
	Tool       string // verifier binary substituted for {tool}
	BuildDir   string // directory substituted for {build_dir}
	SkipPolicy store.SkipPolicy
	Progress   ProgressIndicator
}

// Driver runs batches of verifier invocations against result stores.
type Driver struct {
	log        log.Logger
	runner     ProcessRunner
	tool       string
	buildDir   string
	skipPolicy store.SkipPolicy
	progress   ProgressIndicator
	tracer     trace.Tracer
}

// NewDriver creates a new Driver
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("process runner is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.SkipPolicy == "" {
		cfg.SkipPolicy = store.SkipByRepetition
	}
	if !cfg.SkipPolicy.IsValid() {
		return nil, fmt.Errorf("invalid skip policy: %s", cfg.SkipPolicy)
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}

	cfg.Log.Debug("NewDriver()", "tool", cfg.Tool, "buildDir", cfg.BuildDir, "skipPolicy", cfg.SkipPolicy)

	return &Driver{
		log:        cfg.Log,
		runner:     cfg.Runner,
		tool:       cfg.Tool,
		buildDir:   cfg.BuildDir,
		skipPolicy: cfg.SkipPolicy,
		progress:   cfg.Progress,
		tracer:     otel.Tracer("experiment driver"),
	}, nil
}

// RunBatch loads the batch's store, then runs every input that has no
// recorded result yet, rewriting the store after each new record. Inputs are
// processed in order. Failing verifier runs are recorded, not retried.
func (d *Driver) RunBatch(ctx context.Context, batch Batch) (*BatchResult, error) {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("batch %s/%s", batch.Suite, batch.Tag))
	defer span.End()
	span.SetAttributes(
		attribute.String("suite", batch.Suite),
		attribute.String("tags", batch.Tag),
		attribute.Int("i", batch.Repetition),
	)

	if err := batch.Command.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &BatchResult{
		Suite:      batch.Suite,
		Tag:        batch.Tag,
		Repetition: batch.Repetition,
		StorePath:  batch.StorePath,
		Outcomes:   make(map[types.Outcome]int),
	}

	st, err := store.Open(batch.StorePath, d.log)
	if err != nil {
		return nil, err
	}
	group := st.Group(batch.Repetition, batch.Tag)

	d.progress.StartBatch(batch.Suite, batch.Tag, batch.Repetition, len(batch.Inputs))
	defer d.progress.CompleteBatch(batch.Suite, batch.Tag)

	for _, input := range batch.Inputs {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		d.log.Info("Processing file", "input", input, "i", batch.Repetition, "tags", batch.Tag)

		if rec, ok := st.Lookup(d.skipPolicy, batch.Repetition, batch.Tag, input); ok {
			d.log.Info("Skipping, result already recorded", "input", input, "i", batch.Repetition, "return_code", rec.ReturnCode)
			result.Skipped++
			metrics.RecordSkip(batch.Suite, batch.Tag)
			d.progress.CompleteInput(input, rec.Outcome(), true)
			continue
		}

		rec, err := d.runInput(ctx, batch, input)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if err := st.Append(group, *rec); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		outcome := rec.Outcome()
		d.log.Info("Return code was", "input", input, "return_code", rec.ReturnCode, "outcome", outcome,
			"elapsed", time.Duration(rec.ElapsedTime*float64(time.Second)).Truncate(time.Millisecond))
		result.Ran++
		result.Outcomes[outcome]++
		d.progress.CompleteInput(input, outcome, false)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// runInput invokes the verifier for one input and turns the invocation into
// a store record.
func (d *Driver) runInput(ctx context.Context, batch Batch, input string) (*store.Record, error) {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("input %s", input))
	defer span.End()

	command := batch.Command.Expand(TemplateVars{
		Tool:      d.tool,
		BuildDir:  d.buildDir,
		InputFile: input,
	})

	d.progress.StartInput(input)
	inv, err := d.runner.Run(ctx, command)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			d.log.Warn("Invocation interrupted, result discarded", "input", input)
			return nil, err
		}
		metrics.RecordErrorDetails("invoke", err)
		return nil, fmt.Errorf("running %s: %w", input, err)
	}

	outcome := types.Outcome(inv.ExitCode)
	span.SetAttributes(attribute.Int("return_code", inv.ExitCode))
	metrics.RecordInvocation(batch.Suite, batch.Tag, outcome, inv.Elapsed)

	return &store.Record{
		Name:        input,
		ReturnCode:  inv.ExitCode,
		ElapsedTime: inv.Elapsed.Seconds(),
		Stdout:      stripansi.Strip(inv.Stdout),
		Stderr:      stripansi.Strip(inv.Stderr),
	}, nil
}
