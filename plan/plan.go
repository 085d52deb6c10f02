// Package plan describes which verifier inputs to run and which tables to
// render from the results.
package plan

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-verbench/reporting"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
)

const (
	// TimestampPlaceholder is replaced in store paths by the run timestamp.
	TimestampPlaceholder = "{timestamp}"
	// TagNormal labels batches whose inputs carry no marker.
	TagNormal = "normal"
	// DefaultExt is appended to input names.
	DefaultExt = ".c"
)

// Plan is a complete experiment description.
type Plan struct {
	Tool     string  `yaml:"tool" toml:"tool"`
	BuildDir string  `yaml:"build_dir" toml:"build_dir"`
	Command  string  `yaml:"command" toml:"command"`
	Suites   []Suite `yaml:"suites" toml:"suites"`
	Reports  Reports `yaml:"reports" toml:"reports"`

	// baseDir anchors relative paths; the plan file's directory.
	baseDir string
}

// Suite is a family of tests run under a set of variants into one store.
type Suite struct {
	Name      string    `yaml:"name" toml:"name"`
	Store     string    `yaml:"store" toml:"store"`
	Command   string    `yaml:"command,omitempty" toml:"command,omitempty"`
	Tests     []string  `yaml:"tests,omitempty" toml:"tests,omitempty"`
	TestsFile string    `yaml:"tests_file,omitempty" toml:"tests_file,omitempty"`
	Versions  int       `yaml:"versions,omitempty" toml:"versions,omitempty"`
	Ext       string    `yaml:"ext,omitempty" toml:"ext,omitempty"`
	Variants  []Variant `yaml:"variants" toml:"variants"`
}

// Variant adds markers to every input name of a suite. Extra tests are
// only run under this variant and never carry a version.
type Variant struct {
	Markers        []string `yaml:"markers" toml:"markers"`
	ExtraTests     []string `yaml:"extra_tests,omitempty" toml:"extra_tests,omitempty"`
	ExtraTestsFile string   `yaml:"extra_tests_file,omitempty" toml:"extra_tests_file,omitempty"`
}

// Postfix is the concatenation of the variant's markers.
func (v Variant) Postfix() string {
	return strings.Join(v.Markers, "")
}

// Tag labels the group a variant's results are stored in.
func (v Variant) Tag() string {
	if p := v.Postfix(); p != "" {
		return p
	}
	return TagNormal
}

// Reports configures the LaTeX output.
type Reports struct {
	OutputDir string   `yaml:"output_dir" toml:"output_dir"`
	Document  string   `yaml:"document" toml:"document"`
	Preamble  []string `yaml:"preamble,omitempty" toml:"preamble,omitempty"`
	Tables    []Table  `yaml:"tables" toml:"tables"`
}

// Table is one rendered table.
type Table struct {
	Name         string            `yaml:"name" toml:"name"`
	Store        string            `yaml:"store" toml:"store"`
	Layout       string            `yaml:"layout" toml:"layout"`
	Rule         string            `yaml:"rule" toml:"rule"`
	Include      []string          `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude      []string          `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	Caption      string            `yaml:"caption,omitempty" toml:"caption,omitempty"`
	Label        string            `yaml:"label,omitempty" toml:"label,omitempty"`
	DisplayNames map[string]string `yaml:"display_names,omitempty" toml:"display_names,omitempty"`
}

// Load reads a plan from a YAML file, or a TOML file when the extension is
// .toml, and validates it.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	p := &Plan{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(p); err != nil {
			return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan path: %w", err)
	}
	p.baseDir = filepath.Dir(abs)
	p.applyDefaults()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return p, nil
}

func (p *Plan) applyDefaults() {
	if p.Command == "" {
		p.Command = DefaultCommand
	}
	for i := range p.Suites {
		if p.Suites[i].Ext == "" {
			p.Suites[i].Ext = DefaultExt
		}
	}
	if p.Reports.OutputDir == "" {
		p.Reports.OutputDir = DefaultOutputDir
	}
}

// BaseDir is the directory relative paths resolve against.
func (p *Plan) BaseDir() string {
	return p.baseDir
}

// Resolve makes path absolute relative to the plan's directory.
func (p *Plan) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.baseDir, path)
}

// StorePath substitutes the timestamp into a store template and resolves it.
func (p *Plan) StorePath(template, timestamp string) string {
	return p.Resolve(strings.ReplaceAll(template, TimestampPlaceholder, timestamp))
}

// Validate checks the plan is runnable.
func (p *Plan) Validate() error {
	if err := runner.CommandTemplate(p.Command).Validate(); err != nil {
		return err
	}
	if len(p.Suites) == 0 {
		return fmt.Errorf("at least one suite is required")
	}
	seen := make(map[string]bool)
	for _, s := range p.Suites {
		if s.Name == "" {
			return fmt.Errorf("suite name is required")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate suite %s", s.Name)
		}
		seen[s.Name] = true
		if s.Store == "" {
			return fmt.Errorf("suite %s: store is required", s.Name)
		}
		if len(s.Tests) == 0 && s.TestsFile == "" {
			return fmt.Errorf("suite %s: tests or tests_file is required", s.Name)
		}
		if s.Versions < 0 {
			return fmt.Errorf("suite %s: versions must not be negative", s.Name)
		}
		if len(s.Variants) == 0 {
			return fmt.Errorf("suite %s: at least one variant is required", s.Name)
		}
		if s.Command != "" {
			if err := runner.CommandTemplate(s.Command).Validate(); err != nil {
				return fmt.Errorf("suite %s: %w", s.Name, err)
			}
		}
	}
	for _, t := range p.Reports.Tables {
		if err := t.spec(p, "").Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Select narrows the plan to the named suites, keeping plan order.
func (p *Plan) Select(names []string) error {
	if len(names) == 0 {
		return nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var suites []Suite
	for _, s := range p.Suites {
		if want[s.Name] {
			suites = append(suites, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return fmt.Errorf("unknown suites: %s", strings.Join(missing, ", "))
	}
	p.Suites = suites
	return nil
}

// readLines returns the non-empty lines of a test list. Lines starting with
// # are comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open test list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read test list %s: %w", path, err)
	}
	return lines, nil
}

func (p *Plan) testNames(inline []string, file string) ([]string, error) {
	names := append([]string(nil), inline...)
	if file != "" {
		lines, err := readLines(p.Resolve(file))
		if err != nil {
			return nil, err
		}
		names = append(names, lines...)
	}
	return names, nil
}

// Inputs lists the input names of one variant of a suite: every test in
// every version with the variant's postfix, then the variant's extra tests.
func (p *Plan) Inputs(s Suite, v Variant) ([]string, error) {
	tests, err := p.testNames(s.Tests, s.TestsFile)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}
	extra, err := p.testNames(v.ExtraTests, v.ExtraTestsFile)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	ext := s.Ext
	if ext == "" {
		ext = DefaultExt
	}
	postfix := v.Postfix()

	var inputs []string
	for _, t := range tests {
		if s.Versions == 0 {
			inputs = append(inputs, t+postfix+ext)
			continue
		}
		for version := 0; version < s.Versions; version++ {
			inputs = append(inputs, fmt.Sprintf("%s_%d%s%s", t, version, postfix, ext))
		}
	}
	for _, t := range extra {
		inputs = append(inputs, t+postfix+ext)
	}
	return inputs, nil
}

// Batches enumerates every batch for the given number of repetitions,
// ordered by repetition, then suite, then variant.
func (p *Plan) Batches(repetitions int, timestamp string) ([]runner.Batch, error) {
	if repetitions < 1 {
		return nil, fmt.Errorf("repetitions must be at least 1, got %d", repetitions)
	}
	var batches []runner.Batch
	for i := 0; i < repetitions; i++ {
		for _, s := range p.Suites {
			command := p.Command
			if s.Command != "" {
				command = s.Command
			}
			for _, v := range s.Variants {
				inputs, err := p.Inputs(s, v)
				if err != nil {
					return nil, err
				}
				batches = append(batches, runner.Batch{
					Suite:      s.Name,
					Inputs:     inputs,
					Repetition: i,
					Command:    runner.CommandTemplate(command),
					StorePath:  p.StorePath(s.Store, timestamp),
					Tag:        v.Tag(),
				})
			}
		}
	}
	return batches, nil
}

func (t Table) spec(p *Plan, timestamp string) reporting.TableSpec {
	return reporting.TableSpec{
		Name:      t.Name,
		StorePath: p.StorePath(t.Store, timestamp),
		Layout:    reporting.Layout(t.Layout),
		Rule:      reporting.GroupingRule(t.Rule),
		Filter: reporting.Filter{
			Include: t.Include,
			Exclude: t.Exclude,
		},
		Caption:      t.Caption,
		Label:        t.Label,
		DisplayNames: t.DisplayNames,
	}
}

// TableSpecs returns the report tables with store paths resolved for the
// timestamp.
func (p *Plan) TableSpecs(timestamp string) []reporting.TableSpec {
	specs := make([]reporting.TableSpec, 0, len(p.Reports.Tables))
	for _, t := range p.Reports.Tables {
		specs = append(specs, t.spec(p, timestamp))
	}
	return specs
}
