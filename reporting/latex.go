package reporting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// Layout selects how a report is typeset.
type Layout string

const (
	// LayoutVersions is one tabular with a row group per versioned test.
	LayoutVersions Layout = "versions"
	// LayoutBounds is one subfloat per test with CB and NCB sections.
	LayoutBounds Layout = "bounds"
)

// IsValid reports whether the layout is known.
func (l Layout) IsValid() bool {
	return l == LayoutVersions || l == LayoutBounds
}

func (l Layout) sections() []string {
	if l == LayoutBounds {
		return []string{SectionCB, SectionNCB}
	}
	return []string{""}
}

// LaTeX cell colours.
const (
	ColorGood = `\cellcolor{ForestGreen!25}`
	ColorBad  = `\cellcolor{BrickRed!25}`
)

// LongNameThreshold is the length above which unversioned names are split
// over two rows.
const LongNameThreshold = 20

var resultNames = map[types.Outcome]string{
	types.OutcomeVerified:  `\checkmark`,
	types.OutcomeFalsified: `$\times$`,
	types.OutcomeError:     `Error`,
	types.OutcomeTimeout:   `T.O.`,
}

// ResultName returns the table label of an outcome.
func ResultName(o types.Outcome) string {
	if name, ok := resultNames[o]; ok {
		return name
	}
	return Escape(o.String())
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`_`, `\_`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`{`, `\{`,
	`}`, `\}`,
)

// Escape makes s safe for LaTeX text mode.
func Escape(s string) string {
	return latexEscaper.Replace(s)
}

func latexCell(c Cell) string {
	switch c.Highlight {
	case HighlightGood:
		return ColorGood + " " + c.Text
	case HighlightBad:
		return ColorBad + " " + c.Text
	default:
		return c.Text
	}
}

func comparisonCells(row Comparison) []string {
	return []string{
		latexCell(row.Normal.Count), latexCell(row.Normal.Wall), latexCell(row.Normal.Phase),
		latexCell(row.Unique.Count), latexCell(row.Unique.Wall), latexCell(row.Unique.Phase),
		latexCell(row.Speedup),
	}
}

func tableRow(cells ...string) string {
	return strings.Join(cells, " & ") + ` \\`
}

const (
	headerTiming = `\textbf{\#} & \textbf{T$_t$} & \textbf{T$_v$} & \textbf{\#} & \textbf{T$_t$} & \textbf{T$_v$} & \textbf{Speedup$_v$}`
	hline        = `\hline`
)

var versionSuffix = regexp.MustCompile(`^(.*)_(\d+)$`)

// SplitVersion splits "blur_2" into "blur" and "2". Names without a numeric
// suffix come back unchanged with an empty version.
func SplitVersion(name string) (string, string) {
	if m := versionSuffix.FindStringSubmatch(name); m != nil {
		return m[1], m[2]
	}
	return name, ""
}

// SplitLongName splits a long name at the underscore nearest its middle,
// keeping the underscore on the first half. Short names and names without
// an underscore are returned whole.
func SplitLongName(name string) (string, string) {
	if len(name) <= LongNameThreshold {
		return name, ""
	}
	best := -1
	mid := len(name) / 2
	for i, r := range name {
		if r != '_' {
			continue
		}
		if best < 0 || abs(i-mid) < abs(best-mid) {
			best = i
		}
	}
	if best < 0 {
		return name, ""
	}
	return name[:best+1], name[best+1:]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// RenderVersions typesets a report in the versions layout.
func RenderVersions(r *Report) string {
	var lines []string
	lines = append(lines,
		`\begin{tabular}{lll|rrr|rrr|r}`,
		hline,
		` & & & \multicolumn{3}{c|}{\textbf{Base}} & \multicolumn{3}{c|}{\textbf{Unique}} & \\`,
		`\textbf{Name} & \textbf{V} & \textbf{Result} & `+headerTiming+` \\`,
		hline,
	)

	var visible []Section
	for _, sec := range r.Sections {
		if len(sec.Rows) > 0 {
			visible = append(visible, sec)
		}
	}
	for i, sec := range visible {
		family, version := SplitVersion(sec.Test)
		lead := leadingCells(family, version)
		for j, row := range sec.Rows {
			prefix := ` & `
			if j < len(lead) {
				prefix = lead[j]
			}
			lines = append(lines, tableRow(append([]string{prefix + ` & ` + ResultName(row.Outcome)}, comparisonCells(row)...)...))
		}
		for j := len(sec.Rows); j < len(lead); j++ {
			lines = append(lines, tableRow(lead[j], "", "", "", "", "", "", "", ""))
		}
		if i == len(visible)-1 || sectionFamily(visible[i+1]) != family {
			lines = append(lines, hline)
		}
	}

	speedup := r.Totals.Speedup().Cell()
	lines = append(lines,
		tableRow(`Total`, ``, ResultName(types.OutcomeVerified),
			``, fmt.Sprint(r.Totals.NormalWall), fmt.Sprint(r.Totals.NormalPhase),
			``, fmt.Sprint(r.Totals.UniqueWall), fmt.Sprint(r.Totals.UniquePhase),
			latexCell(speedup)),
		hline,
		`\end{tabular}`,
	)
	return strings.Join(lines, "\n") + "\n"
}

func sectionFamily(s Section) string {
	family, _ := SplitVersion(s.Test)
	return family
}

// leadingCells returns the Name and V cells of the first rows of a test.
// Version 0 names the family; later versions only show their number.
func leadingCells(family, version string) []string {
	switch version {
	case "":
		first, second := SplitLongName(family)
		if second == "" {
			return []string{multicolumn(first)}
		}
		return []string{multicolumn(first), multicolumn(second)}
	case "0":
		return []string{Escape(family) + ` & ` + version}
	default:
		return []string{` & ` + version}
	}
}

func multicolumn(s string) string {
	return `\multicolumn{2}{l}{` + Escape(s) + `}`
}

// RenderBounds typesets a report in the bounds layout. displayNames maps
// logical test names to the LaTeX shown under each subfloat.
func RenderBounds(r *Report, displayNames map[string]string) string {
	var lines []string
	lines = append(lines, `\providecommand{\widthPadre}{0.7}`)

	for i := 0; i < len(r.Sections); {
		test := r.Sections[i].Test
		display, ok := displayNames[test]
		if !ok {
			display = `\texttt{` + Escape(test) + `}`
		}
		lines = append(lines,
			`\subfloat[\label{tab:`+test+`}`+display+`]{`,
			`\resizebox{\widthPadre\textwidth}{!}{`,
			`\begin{tabular}{ll|rrr|rrr|r}`,
			hline,
			` & & \multicolumn{3}{c|}{\textbf{Base}} & \multicolumn{3}{c}{\textbf{Unique}} & \\`,
			`\textbf{Version} & \textbf{Result} & `+headerTiming+` \\`,
			hline,
		)
		for ; i < len(r.Sections) && r.Sections[i].Test == test; i++ {
			sec := r.Sections[i]
			for j, row := range sec.Rows {
				label := ""
				if j == 0 {
					label = sec.Label
				}
				lines = append(lines, tableRow(append([]string{label, ResultName(row.Outcome)}, comparisonCells(row)...)...))
			}
			lines = append(lines, hline)
		}
		lines = append(lines,
			`\end{tabular}`,
			`}`,
			`}`,
			`\\`,
		)
	}
	return strings.Join(lines, "\n") + "\n"
}

// DocumentTable is one table float in the wrapping document.
type DocumentTable struct {
	Label    string
	Caption  string
	Fragment string
}

// DocumentPackages are loaded by the wrapping document.
var DocumentPackages = []string{
	`\usepackage{amssymb}`,
	`\usepackage{booktabs}`,
	`\usepackage{subcaption}`,
	`\usepackage{colortbl}`,
	`\usepackage[dvipsnames]{xcolor}`,
	`\usepackage{graphicx}`,
}

// RenderDocument typesets the document that inputs every fragment. Preamble
// lines are emitted right after \begin{document}.
func RenderDocument(preamble []string, tables []DocumentTable) string {
	lines := []string{`\documentclass{article}`}
	lines = append(lines, DocumentPackages...)
	lines = append(lines,
		`\captionsetup[subfigure]{position=bottom}`,
		`\begin{document}`,
	)
	lines = append(lines, preamble...)
	for _, t := range tables {
		caption := t.Caption
		if t.Label != "" {
			caption = `\label{` + t.Label + `}` + caption
		}
		lines = append(lines,
			`\begin{table}[t]`,
			`\centering`,
			`\caption{`+caption+`}`,
			`\input{`+t.Fragment+`}`,
			`\end{table}`,
		)
	}
	lines = append(lines, `\end{document}`)
	return strings.Join(lines, "\n") + "\n"
}
