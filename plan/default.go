package plan

import (
	"github.com/ethereum-optimism/infra/op-verbench/reporting"
)

const (
	// DefaultCommand runs VerCors with a one hour total and one minute
	// per-assertion timeout.
	DefaultCommand = "{tool} --silicon-quiet --no-infer-heap-context-into-frame --dev-total-timeout=3600 --dev-assert-timeout 60 {build_dir}/{input_file}"

	DefaultBuildDir  = "../build"
	DefaultOutputDir = "results"
	DefaultDocument  = "table.tex"
	DefaultTimestamp = "2025-03-18"
)

// Default returns the built-in plan: the bounds suite and the versioned
// experiment suite, with the three tables rendered from them. Relative
// paths resolve against baseDir.
func Default(baseDir string) *Plan {
	p := &Plan{
		BuildDir: DefaultBuildDir,
		Command:  DefaultCommand,
		Suites: []Suite{
			{
				Name:  "padre",
				Store: "results/padre-{timestamp}.xml",
				Tests: []string{"StepHalide", "SubDirectionHalide", "SolveDirectionHalide", "PerformIterationHalide"},
				Ext:   DefaultExt,
				Variants: []Variant{
					{},
					{Markers: []string{reporting.MarkerNonUnique}},
					{Markers: []string{reporting.MarkerCB}},
					{Markers: []string{reporting.MarkerCB, reporting.MarkerNonUnique}},
				},
			},
			{
				Name:      "exp",
				Store:     "results/exp-{timestamp}.xml",
				TestsFile: "experiments.txt",
				Versions:  4,
				Ext:       DefaultExt,
				Variants: []Variant{
					{},
					{Markers: []string{reporting.MarkerNonUnique}},
					{Markers: []string{reporting.MarkerMem}, ExtraTestsFile: "experiments_mem.txt"},
					{Markers: []string{reporting.MarkerMem, reporting.MarkerNonUnique}, ExtraTestsFile: "experiments_mem.txt"},
				},
			},
		},
		Reports: Reports{
			OutputDir: DefaultOutputDir,
			Document:  DefaultDocument,
			Preamble:  []string{`\newcommand{\haliver}{HaliVer}`},
			Tables: []Table{
				{
					Name:    "exp-mem",
					Store:   "results/exp-{timestamp}.xml",
					Layout:  string(reporting.LayoutVersions),
					Rule:    string(reporting.RuleExperiment),
					Include: []string{reporting.MarkerMem},
					Caption: "Verification results for the experiments of HaliVer from Chapter 4.",
					Label:   "tab:chp6-results-exp-mem",
				},
				{
					Name:    "exp",
					Store:   "results/exp-{timestamp}.xml",
					Layout:  string(reporting.LayoutVersions),
					Rule:    string(reporting.RuleExperiment),
					Exclude: []string{reporting.MarkerMem},
					Caption: "Verification results for the experiments of HaliVer from Chapter 4.",
					Label:   "tab:chp6-results-exp",
				},
				{
					Name:   "padre",
					Store:  "results/padre-{timestamp}.xml",
					Layout: string(reporting.LayoutBounds),
					Rule:   string(reporting.RuleBounds),
					Caption: `Verification results for \texttt{step}, \texttt{sub\_direction}, \texttt{solve\_direction}, and ` +
						`\texttt{perform\_iteration} produced by \haliver. We use abbreviations for versions with concrete bounds ` +
						`(\textbf{CB}), nonconcrete bounds (\textbf{NCB}), \textbf{unique} and const type qualifiers, and no type ` +
						`qualifiers (\textbf{Normal}).`,
					Label: "tab:chp6-results",
					DisplayNames: map[string]string{
						"StepHalide":             `\texttt{step}`,
						"SubDirectionHalide":     `\texttt{sub\_direction}`,
						"SolveDirectionHalide":   `\texttt{solve\_direction}`,
						"PerformIterationHalide": `\texttt{perform\_iteration}`,
					},
				},
			},
		},
		baseDir: baseDir,
	}
	return p
}
