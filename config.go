package verbench

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verbench/flags"
	"github.com/ethereum-optimism/infra/op-verbench/plan"
	"github.com/ethereum-optimism/infra/op-verbench/reporting"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/store"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum-optimism/optimism/op-service/oppprof"
)

// Config holds the application configuration
type Config struct {
	Plan        *plan.Plan
	PlanPath    string // empty when the built-in plan is used
	Timestamp   string // substituted for {timestamp} in store paths
	Repetitions int
	Tool        string // verifier binary substituted for {tool}
	BuildDir    string // absolute directory substituted for {build_dir}
	WorkDir     string // working directory of verifier invocations
	Shell       string
	SkipPolicy  store.SkipPolicy

	OutputDir string // absolute directory for rendered tables
	Document  string // wrapping document file name inside OutputDir
	PDF       bool
	PDFLatex  string

	StatusEnabled bool
	StatusAddr    string

	MetricsConfig opmetrics.CLIConfig
	PprofConfig   oppprof.CLIConfig

	Log log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	p, planPath, err := loadPlan(ctx.String(flags.Plan.Name))
	if err != nil {
		return nil, err
	}
	if err := p.Select(ctx.StringSlice(flags.Suites.Name)); err != nil {
		return nil, err
	}

	timestamp := ctx.String(flags.Timestamp.Name)
	if timestamp == "" {
		return nil, errors.New("timestamp must not be empty")
	}

	skipPolicy := ctx.String(flags.SkipPolicy.Name)
	if skipPolicy == "" {
		skipPolicy = string(store.SkipByRepetition)
	}
	if err := flags.ValidateSkipPolicy(skipPolicy); err != nil {
		return nil, err
	}

	buildDir, err := resolveBuildDir(p, ctx.String(flags.BuildDir.Name))
	if err != nil {
		return nil, err
	}

	workDir := ctx.String(flags.WorkDir.Name)
	if workDir != "" {
		if workDir, err = filepath.Abs(workDir); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for workdir '%s': %w", ctx.String(flags.WorkDir.Name), err)
		}
	}

	outputDir := p.Resolve(p.Reports.OutputDir)
	if dir := ctx.String(flags.OutputDir.Name); dir != "" {
		if outputDir, err = filepath.Abs(dir); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for output dir '%s': %w", dir, err)
		}
	}

	pdflatex := ctx.String(flags.PDFLatex.Name)
	if pdflatex == "" {
		pdflatex = reporting.DefaultPDFLatex
	}
	shell := ctx.String(flags.Shell.Name)
	if shell == "" {
		shell = runner.DefaultShell
	}

	cfg := &Config{
		Plan:          p,
		PlanPath:      planPath,
		Timestamp:     timestamp,
		Repetitions:   ctx.Int(flags.Repetitions.Name),
		Tool:          resolveTool(p, ctx.String(flags.Tool.Name)),
		BuildDir:      buildDir,
		WorkDir:       workDir,
		Shell:         shell,
		SkipPolicy:    store.SkipPolicy(skipPolicy),
		OutputDir:     outputDir,
		Document:      p.Reports.Document,
		PDF:           ctx.Bool(flags.PDF.Name),
		PDFLatex:      pdflatex,
		StatusEnabled: ctx.Bool(flags.StatusEnabled.Name),
		StatusAddr:    ctx.String(flags.StatusAddr.Name),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
		PprofConfig:   oppprof.ReadCLIConfig(ctx),
		Log:           log,
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Check() error {
	if err := c.MetricsConfig.Check(); err != nil {
		return err
	}
	if err := c.PprofConfig.Check(); err != nil {
		return err
	}
	if c.PDF && c.Document == "" {
		return errors.New("--pdf requires the plan to name a wrapping document")
	}
	return nil
}

// loadPlan reads the plan file, or returns the built-in plan anchored at the
// current directory when path is empty.
func loadPlan(path string) (*plan.Plan, string, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		return plan.Default(cwd), "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve absolute path for plan '%s': %w", path, err)
	}
	p, err := plan.Load(abs)
	if err != nil {
		return nil, "", err
	}
	return p, abs, nil
}

// resolveTool prefers the flag, then the plan, then the default. A plan tool
// given as a relative path resolves against the plan's directory; bare
// names are left for PATH lookup.
func resolveTool(p *plan.Plan, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p.Tool == "" {
		return runner.DefaultTool
	}
	if strings.ContainsRune(p.Tool, filepath.Separator) {
		return p.Resolve(p.Tool)
	}
	return p.Tool
}

func resolveBuildDir(p *plan.Plan, flagValue string) (string, error) {
	if flagValue != "" {
		abs, err := filepath.Abs(flagValue)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for build dir '%s': %w", flagValue, err)
		}
		return abs, nil
	}
	dir := p.BuildDir
	if dir == "" {
		dir = plan.DefaultBuildDir
	}
	return p.Resolve(dir), nil
}
