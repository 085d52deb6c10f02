package reporting

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// TimeoutPlaceholder replaces timing values of timed-out runs.
const TimeoutPlaceholder = "-"

// Highlight marks a cell as favourable or unfavourable.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightGood
	HighlightBad
)

// Cell is a rendered value with its highlight.
type Cell struct {
	Text      string
	Highlight Highlight
}

func plain(s string) Cell {
	return Cell{Text: s}
}

// Columns are the count and timing cells of one variant family.
type Columns struct {
	Count Cell
	Wall  Cell
	Phase Cell
}

// Comparison is one outcome row comparing the Normal and Unique families.
type Comparison struct {
	Outcome types.Outcome
	Normal  Columns
	Unique  Columns
	Speedup Cell
}

// Speedup is the ratio normal/unique rounded to two decimals.
type Speedup struct {
	Value float64
	Valid bool
}

// ComputeSpeedup returns normal/unique, or no value when either side is
// missing or unique is zero.
func ComputeSpeedup(normal, unique Seconds) Speedup {
	if !normal.Valid || !unique.Valid || unique.Value == 0 {
		return Speedup{}
	}
	ratio := float64(normal.Value) / float64(unique.Value)
	return Speedup{Value: math.RoundToEven(ratio*100) / 100, Valid: true}
}

// Cell renders the speedup, favourable above 1 and unfavourable below.
func (s Speedup) Cell() Cell {
	if !s.Valid {
		return Cell{}
	}
	c := plain(formatRatio(s.Value))
	switch {
	case s.Value > 1:
		c.Highlight = HighlightGood
	case s.Value < 1:
		c.Highlight = HighlightBad
	}
	return c
}

// formatRatio prints whole ratios with one decimal, as in 2.0.
func formatRatio(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s += ".0"
	}
	return s
}

// Compare builds the row for one outcome. It returns false when neither
// family has records with that outcome.
func Compare(outcome types.Outcome, normal, unique Bucket) (Comparison, bool) {
	if normal.Count == 0 && unique.Count == 0 {
		return Comparison{}, false
	}
	row := Comparison{Outcome: outcome}

	switch outcome {
	case types.OutcomeVerified:
		row.Normal = Columns{
			Count: plain(strconv.Itoa(normal.Count)),
			Wall:  plain(normal.MeanWall.String()),
			Phase: plain(normal.MeanPhase.String()),
		}
		row.Unique = Columns{
			Count: plain(strconv.Itoa(unique.Count)),
			Wall:  plain(unique.MeanWall.String()),
			Phase: plain(unique.MeanPhase.String()),
		}
		switch {
		case unique.Count == 0:
			row.Normal.Count.Highlight = HighlightGood
			row.Unique.Count.Highlight = HighlightBad
		case normal.Count == 0:
			row.Normal.Count.Highlight = HighlightBad
			row.Unique.Count.Highlight = HighlightGood
		default:
			if normal.MeanPhase.Valid && unique.MeanPhase.Valid {
				if normal.MeanPhase.Value < unique.MeanPhase.Value {
					row.Normal.Phase.Highlight = HighlightGood
				} else if unique.MeanPhase.Value < normal.MeanPhase.Value {
					row.Unique.Phase.Highlight = HighlightGood
				}
			}
			row.Speedup = ComputeSpeedup(normal.MeanPhase, unique.MeanPhase).Cell()
		}
	case types.OutcomeTimeout:
		row.Normal = timeoutColumns(normal)
		row.Unique = timeoutColumns(unique)
	default:
		row.Normal = plainColumns(normal)
		row.Unique = plainColumns(unique)
	}
	return row, true
}

func plainColumns(b Bucket) Columns {
	return Columns{
		Count: plain(strconv.Itoa(b.Count)),
		Wall:  plain(b.MeanWall.String()),
		Phase: plain(b.MeanPhase.String()),
	}
}

func timeoutColumns(b Bucket) Columns {
	c := Columns{Count: plain(strconv.Itoa(b.Count))}
	if b.Count > 0 {
		c.Wall = plain(TimeoutPlaceholder)
		c.Phase = plain(TimeoutPlaceholder)
	}
	return c
}

// Totals sums per-test verified means over the tests where both families
// verified at least once.
type Totals struct {
	NormalWall  int
	NormalPhase int
	UniqueWall  int
	UniquePhase int
	Tests       int
}

func (t *Totals) add(normal, unique Bucket) {
	if normal.Count == 0 || unique.Count == 0 {
		return
	}
	t.Tests++
	t.NormalWall += normal.MeanWall.Value
	t.UniqueWall += unique.MeanWall.Value
	t.NormalPhase += normal.MeanPhase.Value
	t.UniquePhase += unique.MeanPhase.Value
}

// Speedup is the overall phase ratio.
func (t *Totals) Speedup() Speedup {
	if t.Tests == 0 {
		return Speedup{}
	}
	return ComputeSpeedup(Some(t.NormalPhase), Some(t.UniquePhase))
}

// Section is the rows of one logical test, or of one CB/NCB half of a
// logical test in the bounds layout.
type Section struct {
	Test  string
	Label string
	Rows  []Comparison
}

// Report is a fully computed comparison table.
type Report struct {
	Name     string
	Layout   Layout
	Sections []Section
	Totals   Totals
}

// BuildReport computes the comparison rows of every logical test in agg.
func BuildReport(name string, agg *Aggregation, layout Layout) (*Report, error) {
	if !layout.IsValid() {
		return nil, fmt.Errorf("unknown table layout: %q", layout)
	}
	r := &Report{Name: name, Layout: layout}
	for _, t := range agg.Tests {
		for _, label := range layout.sections() {
			normalTag, uniqueTag := FamilyNormal, FamilyUnique
			if label != "" {
				normalTag += "-" + label
				uniqueTag += "-" + label
			}
			sec := Section{Test: t.Name, Label: label}
			for _, outcome := range types.Outcomes {
				normal := t.Bucket(normalTag, outcome)
				unique := t.Bucket(uniqueTag, outcome)
				if outcome == types.OutcomeVerified {
					r.Totals.add(normal, unique)
				}
				if row, ok := Compare(outcome, normal, unique); ok {
					sec.Rows = append(sec.Rows, row)
				}
			}
			r.Sections = append(r.Sections, sec)
		}
	}
	return r, nil
}
