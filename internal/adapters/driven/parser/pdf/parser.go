// Package pdf implements the structured PDF parser (driven.StructuredParser):
// it restores reading order across multi-column layouts, classifies tables
// as rate-bearing or ordinary, serializes rate tables to CSV sidecars plus a
// shared metadata.json index, and renders the remainder to Markdown with
// rate tables replaced by "[rate-table: {uuid}]" placeholders.
package pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/logger"
)

// DefaultExportDir is used when no WithExportDir option is given.
const DefaultExportDir = "./data/rate-tables"

// Parser implements driven.StructuredParser over local PDF files.
type Parser struct {
	exportDir string
}

// Option configures the parser.
type Option func(*Parser)

// WithExportDir overrides where rate-table CSVs and metadata.json land.
func WithExportDir(dir string) Option {
	return func(p *Parser) {
		if dir != "" {
			p.exportDir = dir
		}
	}
}

// New creates a structured PDF parser.
func New(opts ...Option) *Parser {
	p := &Parser{exportDir: DefaultExportDir}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse implements driven.StructuredParser.
func (p *Parser) Parse(_ context.Context, path string, doc *domain.PolicyDocument) (*driven.ParseResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	r, closeFn, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: %s: %w", path, errParse(err))
	}
	defer closeFn()

	lines := extractLines(r)
	elements := buildElements(lines)

	exporter := newTableExporter(p.exportDir)
	ratePlaceholder := make(map[int]string)
	var tables []domain.RateTable

	for i, el := range elements {
		if el.kind != elemTable {
			continue
		}
		isRate, ratio := classifyTable(el.tableRows)
		if !isRate {
			continue
		}
		rt, err := exporter.export(doc, el, el.tableRows)
		if err != nil {
			return nil, fmt.Errorf("pdf: %s: %w", path, errParse(err))
		}
		logger.Debug("pdf: classified rate table uuid=%s pages=%d-%d numeric_ratio=%.2f", rt.UUID, rt.PageStart, rt.PageEnd, ratio)
		ratePlaceholder[i] = rt.UUID
		tables = append(tables, rt)
	}

	return &driven.ParseResult{
		Markdown: renderMarkdown(elements, ratePlaceholder),
		Tables:   tables,
	}, nil
}

// errParse wraps any failure in domain.ErrParseFailure, the distinct error
// kind the caller uses to leave the document PENDING without committing
// partial results.
func errParse(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
}

// openReader opens path, retrying once with an empty-password decrypt if
// the PDF reports itself as encrypted, then giving up.
func openReader(path string) (*pdf.Reader, func(), error) {
	f, r, err := pdf.Open(path)
	if err == nil {
		return r, func() { f.Close() }, nil
	}

	// ledongthuc/pdf surfaces an encrypted file as an Open error; retry once
	// through the encrypted-reader path with an empty password before
	// failing for good, per the "attempt empty-password decrypt once" rule.
	f2, err2 := os.Open(path)
	if err2 != nil {
		return nil, func() {}, err
	}
	info, err2 := f2.Stat()
	if err2 != nil {
		f2.Close()
		return nil, func() {}, err
	}
	r2, err2 := pdf.NewReaderEncrypted(f2, info.Size(), func() string { return "" })
	if err2 != nil {
		f2.Close()
		return nil, func() {}, fmt.Errorf("encrypted, empty-password decrypt failed: %w", err)
	}
	return r2, func() { f2.Close() }, nil
}
