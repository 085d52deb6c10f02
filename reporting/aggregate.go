// Package reporting reduces result stores into comparison tables and
// typesets them as LaTeX.
package reporting

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/op-verbench/store"
	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// Markers that distinguish run variants inside an input name.
const (
	MarkerNonUnique = "_non_unique"
	MarkerMem       = "_mem"
	MarkerCB        = "CB"
)

// Variant family names.
const (
	FamilyNormal = "Normal"
	FamilyUnique = "Unique"

	SectionCB  = "CB"
	SectionNCB = "NCB"
)

// GroupingRule decides how input names collapse into logical tests and
// variant tags.
type GroupingRule string

const (
	// RuleExperiment strips the uniqueness and memory markers.
	RuleExperiment GroupingRule = "experiment"
	// RuleBounds strips the uniqueness and concrete-bounds markers and adds a
	// -CB or -NCB suffix to the variant tag.
	RuleBounds GroupingRule = "bounds"
)

// IsValid reports whether the rule is known.
func (r GroupingRule) IsValid() bool {
	return r == RuleExperiment || r == RuleBounds
}

// LogicalName derives the logical test name from an input name.
func (r GroupingRule) LogicalName(name string) string {
	name = strings.ReplaceAll(name, MarkerNonUnique, "")
	switch r {
	case RuleBounds:
		name = strings.ReplaceAll(name, MarkerCB, "")
	default:
		name = strings.ReplaceAll(name, MarkerMem, "")
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// VariantTag derives the variant tag from an input name.
func (r GroupingRule) VariantTag(name string) string {
	tag := FamilyUnique
	if strings.Contains(name, MarkerNonUnique) {
		tag = FamilyNormal
	}
	if r == RuleBounds {
		if strings.Contains(name, MarkerCB) {
			return tag + "-" + SectionCB
		}
		return tag + "-" + SectionNCB
	}
	return tag
}

// Filter selects records by the markers their names contain.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether name carries every included marker and no excluded one.
func (f Filter) Match(name string) bool {
	for _, m := range f.Include {
		if !strings.Contains(name, m) {
			return false
		}
	}
	for _, m := range f.Exclude {
		if strings.Contains(name, m) {
			return false
		}
	}
	return true
}

// Seconds is a whole number of seconds that may be absent.
type Seconds struct {
	Value int
	Valid bool
}

// Some returns a present value.
func Some(v int) Seconds {
	return Seconds{Value: v, Valid: true}
}

func (s Seconds) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.Itoa(s.Value)
}

// RoundSeconds rounds half to even.
func RoundSeconds(f float64) int {
	return int(math.RoundToEven(f))
}

// Mean returns the rounded arithmetic mean of xs, or no value for an empty slice.
func Mean(xs []int) Seconds {
	if len(xs) == 0 {
		return Seconds{}
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return Some(RoundSeconds(float64(sum) / float64(len(xs))))
}

var phasePattern = regexp.MustCompile(`Done: BackendVerification \(at [^,]+, duration: (\d+):(\d+):(\d+)\)`)

// PhaseDuration extracts the backend verification duration reported in the
// verifier's stdout.
func PhaseDuration(stdout string) Seconds {
	m := phasePattern.FindStringSubmatch(stdout)
	if m == nil {
		return Seconds{}
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return Some(hours*3600 + minutes*60 + seconds)
}

// Sample is one record reduced to the values the tables need.
type Sample struct {
	Name       string
	ReturnCode int
	WallTime   int
	Phase      Seconds
}

// NewSample reduces a store record.
func NewSample(rec *store.Record) Sample {
	return Sample{
		Name:       rec.Name,
		ReturnCode: rec.ReturnCode,
		WallTime:   RoundSeconds(rec.ElapsedTime),
		Phase:      PhaseDuration(rec.Stdout),
	}
}

// Bucket summarises the samples of one variant tag with one outcome.
type Bucket struct {
	Count     int
	MeanWall  Seconds
	MeanPhase Seconds
}

// Test is one logical test with its samples per variant tag.
type Test struct {
	Name     string
	Variants map[string][]Sample
}

// Bucket computes the bucket for the variant tag and outcome.
func (t *Test) Bucket(tag string, outcome types.Outcome) Bucket {
	var wall, phase []int
	for _, s := range t.Variants[tag] {
		if s.ReturnCode != int(outcome) {
			continue
		}
		wall = append(wall, s.WallTime)
		if s.Phase.Valid {
			phase = append(phase, s.Phase.Value)
		}
	}
	return Bucket{
		Count:     len(wall),
		MeanWall:  Mean(wall),
		MeanPhase: Mean(phase),
	}
}

// Aggregation holds logical tests in first-seen order.
type Aggregation struct {
	Rule  GroupingRule
	Tests []*Test
	index map[string]*Test
}

// Test returns the logical test with the given name, or nil.
func (a *Aggregation) Test(name string) *Test {
	return a.index[name]
}

func (a *Aggregation) add(s Sample) {
	name := a.Rule.LogicalName(s.Name)
	t, ok := a.index[name]
	if !ok {
		t = &Test{Name: name, Variants: make(map[string][]Sample)}
		a.index[name] = t
		a.Tests = append(a.Tests, t)
	}
	tag := a.Rule.VariantTag(s.Name)
	t.Variants[tag] = append(t.Variants[tag], s)
}

// Aggregate groups every record of doc that passes filter by logical test and
// variant tag. Groups are visited in document order.
func Aggregate(doc *store.Document, rule GroupingRule, filter Filter) (*Aggregation, error) {
	if !rule.IsValid() {
		return nil, fmt.Errorf("unknown grouping rule: %q", rule)
	}
	agg := &Aggregation{
		Rule:  rule,
		index: make(map[string]*Test),
	}
	for _, g := range doc.Groups {
		for _, rec := range g.Records {
			if !filter.Match(rec.Name) {
				continue
			}
			agg.add(NewSample(rec))
		}
	}
	return agg, nil
}
