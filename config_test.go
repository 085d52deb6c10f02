package verbench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-verbench/plan"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/store"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := configFromArgs(t)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Empty(t, cfg.PlanPath)
	assert.Len(t, cfg.Plan.Suites, 2)
	assert.Equal(t, plan.DefaultTimestamp, cfg.Timestamp)
	assert.Equal(t, 1, cfg.Repetitions)
	assert.Equal(t, runner.DefaultTool, cfg.Tool)
	assert.Equal(t, filepath.Join(cwd, plan.DefaultBuildDir), cfg.BuildDir)
	assert.Equal(t, filepath.Join(cwd, plan.DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, plan.DefaultDocument, cfg.Document)
	assert.Equal(t, runner.DefaultShell, cfg.Shell)
	assert.Equal(t, store.SkipByRepetition, cfg.SkipPolicy)
	assert.False(t, cfg.PDF)
	assert.False(t, cfg.StatusEnabled)
	assert.False(t, cfg.MetricsConfig.Enabled)
	assert.False(t, cfg.PprofConfig.ListenEnabled)
}

func TestNewConfigFromPlanFile(t *testing.T) {
	dir := t.TempDir()
	path := writePlan(t, dir, testPlan)

	cfg, err := configFromArgs(t, "--plan", path, "--timestamp", "2026-01-02")
	require.NoError(t, err)

	assert.Equal(t, path, cfg.PlanPath)
	assert.Equal(t, "2026-01-02", cfg.Timestamp)
	assert.Equal(t, filepath.Join(dir, "bin/vct"), cfg.Tool)
	assert.Equal(t, filepath.Join(dir, "build"), cfg.BuildDir)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.OutputDir)
	assert.Equal(t, "table.tex", cfg.Document)
}

func TestNewConfigFlagsOverridePlan(t *testing.T) {
	dir := t.TempDir()
	path := writePlan(t, dir, testPlan)
	buildDir := filepath.Join(dir, "elsewhere")

	cfg, err := configFromArgs(t,
		"--plan", path,
		"--tool", "/opt/vercors/bin/vct",
		"--build-dir", buildDir,
		"--output-dir", filepath.Join(dir, "tables"),
		"--workdir", dir,
		"--skip-policy", "tagged",
		"--repetitions", "3",
		"--suite", "padre",
	)
	require.NoError(t, err)

	assert.Equal(t, "/opt/vercors/bin/vct", cfg.Tool)
	assert.Equal(t, buildDir, cfg.BuildDir)
	assert.Equal(t, filepath.Join(dir, "tables"), cfg.OutputDir)
	assert.Equal(t, dir, cfg.WorkDir)
	assert.Equal(t, store.SkipByTag, cfg.SkipPolicy)
	assert.Equal(t, 3, cfg.Repetitions)
	require.Len(t, cfg.Plan.Suites, 1)
	assert.Equal(t, "padre", cfg.Plan.Suites[0].Name)
}

func TestNewConfigBareToolName(t *testing.T) {
	dir := t.TempDir()
	path := writePlan(t, dir, "tool: vct-nightly\n"+testPlan[len("tool: bin/vct\n"):])

	cfg, err := configFromArgs(t, "--plan", path)
	require.NoError(t, err)
	assert.Equal(t, "vct-nightly", cfg.Tool)
}

func TestNewConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := writePlan(t, dir, testPlan)
	noDocument := filepath.Join(dir, "nodoc.yaml")
	require.NoError(t, os.WriteFile(noDocument, []byte(`suites:
  - name: exp
    store: exp.xml
    tests: [blur]
    variants:
      - markers: []
`), 0644))

	testCases := []struct {
		name string
		args []string
		msg  string
	}{
		{"missing plan", []string{"--plan", filepath.Join(dir, "missing.yaml")}, "failed to read plan"},
		{"unknown suite", []string{"--plan", path, "--suite", "nope"}, "unknown suites: nope"},
		{"empty timestamp", []string{"--plan", path, "--timestamp", ""}, "timestamp must not be empty"},
		{"pdf without document", []string{"--plan", noDocument, "--pdf"}, "--pdf requires"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := configFromArgs(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
