package verbench

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verbench/flags"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

const testPlan = `tool: bin/vct
build_dir: build
command: "{tool} {build_dir}/{input_file}"
suites:
  - name: exp
    store: results/exp-{timestamp}.xml
    tests: [blur, gemm]
    versions: 2
    variants:
      - markers: []
      - markers: [_non_unique]
  - name: padre
    store: results/padre-{timestamp}.xml
    tests: [StepHalide]
    variants:
      - markers: [CB]
      - markers: [CB, _non_unique]
reports:
  output_dir: out
  document: table.tex
  tables:
    - name: exp
      store: results/exp-{timestamp}.xml
      layout: versions
      rule: experiment
      caption: Experiments.
      label: tab:exp
    - name: padre
      store: results/padre-{timestamp}.xml
      layout: bounds
      rule: bounds
      display_names:
        StepHalide: '\texttt{step}'
`

func quietLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func writePlan(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// configFromArgs parses args with every flag the app knows and builds a Config.
func configFromArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	all := append([]cli.Flag{}, flags.Flags...)
	all = append(all, flags.RunFlags...)
	all = append(all, flags.ReportFlags...)

	var cfg *Config
	var cfgErr error
	app := cli.NewApp()
	app.Flags = cliapp.ProtectFlags(all)
	app.Action = func(ctx *cli.Context) error {
		cfg, cfgErr = NewConfig(ctx, quietLogger())
		return nil
	}
	require.NoError(t, app.Run(append([]string{"op-verbench"}, args...)))
	return cfg, cfgErr
}

// fakeVerifier answers commands by input name: names with _non_unique take
// twice as long in the backend phase, gemm inputs time out.
type fakeVerifier struct {
	mu       sync.Mutex
	commands []string
	block    chan struct{}
}

func (f *fakeVerifier) Run(ctx context.Context, command string) (*runner.Invocation, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch {
	case strings.Contains(command, "gemm"):
		return &runner.Invocation{ExitCode: 3, Elapsed: time.Hour}, nil
	case strings.Contains(command, "_non_unique"):
		return &runner.Invocation{
			Elapsed: 20 * time.Second,
			Stdout:  "\x1b[32m[INFO]\x1b[0m Done: BackendVerification (at 12:00:00, duration: 00:00:16)\n",
		}, nil
	default:
		return &runner.Invocation{
			Elapsed: 10 * time.Second,
			Stdout:  "[INFO] Done: BackendVerification (at 12:00:00, duration: 00:00:08)\n",
		}, nil
	}
}

func (f *fakeVerifier) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}
