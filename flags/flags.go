package flags

import (
	"fmt"
	"net"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verbench/plan"
	"github.com/ethereum-optimism/infra/op-verbench/reporting"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/service"
	"github.com/ethereum-optimism/infra/op-verbench/store"
	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum-optimism/optimism/op-service/oppprof"
)

const EnvVarPrefix = "OP_VERBENCH"

var (
	Plan = &cli.StringFlag{
		Name:    "plan",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLAN"),
		Usage:   "Path to a YAML or TOML experiment plan. The built-in plan is used when omitted.",
	}
	Timestamp = &cli.StringFlag{
		Name:    "timestamp",
		Value:   plan.DefaultTimestamp,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMESTAMP"),
		Usage:   "Substituted for {timestamp} in store paths; reuse it to resume a session",
	}
	Repetitions = &cli.IntFlag{
		Name:    "repetitions",
		Value:   1,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPETITIONS"),
		Usage:   "Number of times every input is run",
		Action: func(_ *cli.Context, v int) error {
			if v < 1 {
				return fmt.Errorf("repetitions must be at least 1, got %d", v)
			}
			return nil
		},
	}
	Suites = &cli.StringSliceFlag{
		Name:    "suite",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITE"),
		Usage:   "Only run the named suites (repeatable). All suites run when omitted.",
	}
	Tool = &cli.StringFlag{
		Name:    "tool",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TOOL"),
		Usage:   fmt.Sprintf("Verifier binary substituted for {tool}; overrides the plan (default %q)", runner.DefaultTool),
	}
	BuildDir = &cli.StringFlag{
		Name:    "build-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_DIR"),
		Usage:   fmt.Sprintf("Directory of generated inputs substituted for {build_dir}; overrides the plan (default %q)", plan.DefaultBuildDir),
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKDIR"),
		Usage:   "Working directory for verifier invocations (default: current directory)",
	}
	Shell = &cli.StringFlag{
		Name:    "shell",
		Value:   runner.DefaultShell,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHELL"),
		Usage:   "Shell that runs the expanded command template",
	}
	SkipPolicy = &cli.StringFlag{
		Name:    "skip-policy",
		Value:   string(store.SkipByRepetition),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_POLICY"),
		Usage: fmt.Sprintf("Which stored results count as already run: %q matches any group of the same repetition, %q also requires the same tags",
			store.SkipByRepetition, store.SkipByTag),
		Action: func(_ *cli.Context, v string) error {
			return ValidateSkipPolicy(v)
		},
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   fmt.Sprintf("Directory for rendered tables; overrides the plan (default %q)", plan.DefaultOutputDir),
	}
	PDF = &cli.BoolFlag{
		Name:    "pdf",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PDF"),
		Usage:   "Compile the wrapping document with pdflatex after rendering",
	}
	PDFLatex = &cli.StringFlag{
		Name:    "pdflatex",
		Value:   reporting.DefaultPDFLatex,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PDFLATEX"),
		Usage:   "pdflatex binary used with --pdf",
	}
	StatusEnabled = &cli.BoolFlag{
		Name:    "status.enabled",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STATUS_ENABLED"),
		Usage:   "Serve /healthz and /progress while a session runs",
	}
	StatusAddr = &cli.StringFlag{
		Name:    "status.addr",
		Value:   net.JoinHostPort(service.StatusHost, service.StatusPort),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STATUS_ADDR"),
		Usage:   "Listen address of the status server",
	}
)

// ValidateSkipPolicy rejects unknown skip policies.
func ValidateSkipPolicy(v string) error {
	if !store.SkipPolicy(v).IsValid() {
		return fmt.Errorf("skip-policy must be one of %q or %q, got %q", store.SkipByRepetition, store.SkipByTag, v)
	}
	return nil
}

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Plan,
	Timestamp,
	Suites,
	Tool,
	BuildDir,
	OutputDir,
}

// RunFlags are only meaningful to the run command.
var RunFlags = []cli.Flag{
	Repetitions,
	WorkDir,
	Shell,
	SkipPolicy,
	StatusEnabled,
	StatusAddr,
}

// ReportFlags are only meaningful to the report command.
var ReportFlags = []cli.Flag{
	PDF,
	PDFLatex,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, oppprof.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
