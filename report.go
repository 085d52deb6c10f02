package verbench

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum-optimism/infra/op-verbench/reporting"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
)

// Report renders every table of the plan from the stores of cfg.Timestamp,
// then prints a console summary to out. A nil processRunner runs pdflatex
// through the configured shell.
func Report(ctx context.Context, cfg *Config, processRunner runner.ProcessRunner, out io.Writer) (*reporting.Result, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.PDF && processRunner == nil {
		processRunner = runner.NewShellRunner(cfg.Shell, "", cfg.Log)
	}

	renderer, err := reporting.NewRenderer(reporting.Config{
		Log:       cfg.Log,
		OutputDir: cfg.OutputDir,
		Document:  cfg.Document,
		Preamble:  cfg.Plan.Reports.Preamble,
		Tables:    cfg.Plan.TableSpecs(cfg.Timestamp),
		PDF:       cfg.PDF,
		PDFLatex:  cfg.PDFLatex,
		Runner:    processRunner,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	res, err := renderer.Render(ctx)
	if err != nil {
		return nil, err
	}
	reporting.PrintSummary(out, res.Reports)
	return res, nil
}
