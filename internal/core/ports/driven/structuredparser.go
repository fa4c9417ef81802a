package driven

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// StructuredParser converts a verified PDF into an ordered Markdown
// rendering and a set of extracted rate tables, preserving reading order in
// multi-column layouts and separating rate tables from prose.
type StructuredParser interface {
	// Parse reads the PDF at path and returns the rendering described above.
	// ParseFailure (domain.ErrParseFailure) is returned for any per-document
	// failure; the caller leaves the document PENDING and records the error
	// in ReviewerNotes rather than committing partial results.
	Parse(ctx context.Context, path string, doc *domain.PolicyDocument) (*ParseResult, error)
}

// ParseResult is the output of structured parsing.
type ParseResult struct {
	// Markdown is the full rendering, headings mapped to # through #####,
	// ordinary tables as GitHub-flavored Markdown, rate tables replaced by
	// "[rate-table: {uuid}]" placeholders.
	Markdown string

	// Tables holds every RateTable classified during parsing. CSVPath is
	// already populated: the parser serializes each table to its sidecar
	// CSV and appends a metadata.json record as part of Parse.
	Tables []domain.RateTable
}
