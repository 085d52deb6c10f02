package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunnerCapturesOutputAndExitCode(t *testing.T) {
	r := NewShellRunner("", "", log.NewLogger(log.DiscardHandler()))

	inv, err := r.Run(context.Background(), "echo out; echo err >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.ExitCode)
	assert.Equal(t, "out\n", inv.Stdout)
	assert.Equal(t, "err\n", inv.Stderr)
	assert.Greater(t, inv.Elapsed, time.Duration(0))
}

func TestShellRunnerSuccess(t *testing.T) {
	r := NewShellRunner(DefaultShell, "", log.NewLogger(log.DiscardHandler()))

	inv, err := r.Run(context.Background(), "true")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.ExitCode)
	assert.Empty(t, inv.Stdout)
}

func TestShellRunnerWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.c"), []byte("int main;"), 0644))

	r := NewShellRunner("", dir, log.NewLogger(log.DiscardHandler()))
	inv, err := r.Run(context.Background(), "cat input.c")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.ExitCode)
	assert.Equal(t, "int main;", inv.Stdout)
}

func TestShellRunnerCancelled(t *testing.T) {
	r := NewShellRunner("", "", log.NewLogger(log.DiscardHandler()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	inv, err := r.Run(ctx, "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, inv)
}

func TestShellRunnerCancelKillsGrandchildren(t *testing.T) {
	r := NewShellRunner("", "", log.NewLogger(log.DiscardHandler()))
	marker := filepath.Join(t.TempDir(), "done")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The nested shell stands in for a wrapper script that starts the
	// verifier; the trailing echo keeps the outer shell from exec'ing it.
	start := time.Now()
	inv, err := r.Run(ctx, "sh -c 'sleep 4; touch "+marker+"'; echo done")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, inv)
	assert.Less(t, elapsed, 2*time.Second)

	time.Sleep(4500 * time.Millisecond)
	assert.NoFileExists(t, marker)
}

func TestShellRunnerMissingShell(t *testing.T) {
	r := NewShellRunner("/nonexistent/shell", "", log.NewLogger(log.DiscardHandler()))

	_, err := r.Run(context.Background(), "true")
	require.Error(t, err)
}
