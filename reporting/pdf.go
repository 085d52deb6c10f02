package reporting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum-optimism/infra/op-verbench/runner"
)

// DefaultPDFLatex is the typesetter used by the optional PDF step.
const DefaultPDFLatex = "pdflatex"

// auxiliaryExts are removed after a successful typesetting pass.
var auxiliaryExts = []string{".aux", ".log"}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BuildPDF typesets document into its own directory and removes the
// auxiliary files pdflatex leaves behind.
func BuildPDF(ctx context.Context, r runner.ProcessRunner, pdflatex string, document string) (string, error) {
	if pdflatex == "" {
		pdflatex = DefaultPDFLatex
	}
	dir := filepath.Dir(document)
	command := fmt.Sprintf("%s -interaction=nonstopmode -output-directory %s %s",
		pdflatex, shellQuote(dir), shellQuote(document))

	inv, err := r.Run(ctx, command)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", pdflatex, err)
	}
	if inv.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", pdflatex, inv.ExitCode, lastLines(inv.Stdout, 10))
	}

	base := strings.TrimSuffix(document, filepath.Ext(document))
	for _, ext := range auxiliaryExts {
		if err := os.Remove(base + ext); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to remove %s: %w", base+ext, err)
		}
	}
	return base + ".pdf", nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
