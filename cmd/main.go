package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	verbench "github.com/ethereum-optimism/infra/op-verbench"
	"github.com/ethereum-optimism/infra/op-verbench/exitcodes"
	"github.com/ethereum-optimism/infra/op-verbench/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-verbench"
	app.Usage = "Verifier experiment driver and results table renderer"
	app.Description = "op-verbench runs a verifier over generated inputs, records every result in resumable XML stores, and renders comparison tables as LaTeX"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Commands = []*cli.Command{
		{
			Name:        "run",
			Usage:       "Run every pending input of the plan",
			Description: "Inputs that already have a result in the store of the given timestamp are skipped, so an interrupted session resumes where it stopped.",
			Flags:       cliapp.ProtectFlags(flags.RunFlags),
			Action:      cliapp.LifecycleCmd(run),
		},
		{
			Name:        "report",
			Usage:       "Render the plan's tables from recorded results",
			Description: "Writes one LaTeX fragment per table, the wrapping document, and optionally a PDF.",
			Flags:       cliapp.ProtectFlags(flags.ReportFlags),
			Action:      report,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if verbench.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Failure))
			}
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func setupLogging(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogging(ctx)

	cfg, err := verbench.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, verbench.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	session, err := verbench.New(cfg, Version, nil, closeApp)
	if err != nil {
		return nil, verbench.NewRuntimeError(fmt.Errorf("failed to create session: %w", err))
	}
	return session, nil
}

func report(ctx *cli.Context) error {
	logger := setupLogging(ctx)

	cfg, err := verbench.NewConfig(ctx, logger)
	if err != nil {
		return verbench.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	if _, err := verbench.Report(ctx.Context, cfg, nil, ctx.App.Writer); err != nil {
		return verbench.NewRuntimeError(err)
	}
	return nil
}
