package reporting

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-verbench/metrics"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/store"
)

// TableSpec describes one rendered table.
type TableSpec struct {
	Name         string
	StorePath    string
	Layout       Layout
	Rule         GroupingRule
	Filter       Filter
	Caption      string
	Label        string
	DisplayNames map[string]string
}

// Validate checks the spec is renderable.
func (s TableSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if s.StorePath == "" {
		return fmt.Errorf("table %s: store is required", s.Name)
	}
	if !s.Layout.IsValid() {
		return fmt.Errorf("table %s: unknown layout %q", s.Name, s.Layout)
	}
	if !s.Rule.IsValid() {
		return fmt.Errorf("table %s: unknown grouping rule %q", s.Name, s.Rule)
	}
	return nil
}

// Config holds configuration for creating a new Renderer
type Config struct {
	Log       log.Logger
	OutputDir string
	// Document is the wrapping document's file name inside OutputDir. Empty
	// skips the document and the PDF step.
	Document string
	Preamble []string
	Tables   []TableSpec

	PDF      bool
	PDFLatex string
	Runner   runner.ProcessRunner
}

// Result lists what a render produced.
type Result struct {
	Reports   []*Report
	Fragments []string
	Document  string
	PDF       string
}

// Renderer turns result stores into LaTeX fragments and a wrapping document.
type Renderer struct {
	config Config
}

// NewRenderer creates a new Renderer
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("at least one table is required")
	}
	for _, t := range cfg.Tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.PDF {
		if cfg.Document == "" {
			return nil, fmt.Errorf("the PDF step needs a document")
		}
		if cfg.Runner == nil {
			return nil, fmt.Errorf("the PDF step needs a process runner")
		}
	}
	return &Renderer{config: cfg}, nil
}

// Render loads every table's store, writes its fragment, then the document
// and optionally the PDF.
func (r *Renderer) Render(ctx context.Context) (*Result, error) {
	res := &Result{}
	var docTables []DocumentTable

	for _, spec := range r.config.Tables {
		report, err := r.buildReport(spec)
		if err != nil {
			return nil, err
		}

		var content string
		switch spec.Layout {
		case LayoutBounds:
			content = RenderBounds(report, spec.DisplayNames)
		default:
			content = RenderVersions(report)
		}

		fragment, err := filepath.Abs(filepath.Join(r.config.OutputDir, spec.Name+".tex"))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve fragment path: %w", err)
		}
		if err := NewFileWriter(fragment).Write(content); err != nil {
			metrics.RecordErrorDetails("table_write", err)
			return nil, err
		}

		rows := 0
		for _, sec := range report.Sections {
			rows += len(sec.Rows)
		}
		metrics.RecordTableRendered(spec.Name, rows)
		r.config.Log.Info("Wrote table", "table", spec.Name, "path", fragment, "tests", len(report.Sections), "rows", rows,
			"total_normal", report.Totals.NormalWall, "total_unique", report.Totals.UniqueWall)

		res.Reports = append(res.Reports, report)
		res.Fragments = append(res.Fragments, fragment)
		docTables = append(docTables, DocumentTable{
			Label:    spec.Label,
			Caption:  spec.Caption,
			Fragment: fragment,
		})
	}

	if r.config.Document == "" {
		return res, nil
	}

	document := filepath.Join(r.config.OutputDir, r.config.Document)
	if err := NewFileWriter(document).Write(RenderDocument(r.config.Preamble, docTables)); err != nil {
		metrics.RecordErrorDetails("table_write", err)
		return nil, err
	}
	res.Document = document
	r.config.Log.Info("Wrote document", "path", document)

	if !r.config.PDF {
		return res, nil
	}
	pdf, err := BuildPDF(ctx, r.config.Runner, r.config.PDFLatex, document)
	if err != nil {
		return nil, err
	}
	res.PDF = pdf
	r.config.Log.Info("Wrote PDF", "path", pdf)
	return res, nil
}

func (r *Renderer) buildReport(spec TableSpec) (*Report, error) {
	doc, err := store.Load(spec.StorePath)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", spec.Name, err)
	}
	agg, err := Aggregate(doc, spec.Rule, spec.Filter)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", spec.Name, err)
	}
	return BuildReport(spec.Name, agg, spec.Layout)
}
