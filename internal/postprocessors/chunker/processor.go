// Package chunker splits a document's rendered Markdown into retrieval
// chunks that carry their heading context. It implements driven.PostProcessor
// as the pipeline's first stage: it receives chunks=nil and produces chunks
// from markdown; later stages (the enricher) fill in category/entity_role/
// keywords.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/logger"
)

// Default sizing, in estimated tokens (1 token ~= 1.5 Chinese characters).
const (
	DefaultTargetTokens  = 750
	DefaultMaxTokens     = 2048
	DefaultOverlapMin    = 100
	DefaultOverlapMax    = 200
	maxHeadingLevel      = 5
	tokensPerCharEstimate = 1.5
)

var rateTableRefPattern = regexp.MustCompile(`\[rate-table:\s*([^\]\s]+)\]`)

// Processor splits Markdown into heading-aware, token-budgeted chunks.
// It implements the PostProcessor interface.
type Processor struct {
	targetTokens int
	maxTokens    int
	overlapMin   int
	overlapMax   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTargetTokens sets the preferred chunk size in estimated tokens.
func WithTargetTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.targetTokens = n
		}
	}
}

// WithMaxTokens sets the hard ceiling a chunk may grow to before a forced
// split, to preserve one logical unit per chunk where possible.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlapRange sets the [min, max] estimated-token overlap window
// carried from the tail of one chunk into the head of the next.
func WithOverlapRange(min, max int) Option {
	return func(p *Processor) {
		if min >= 0 && max >= min {
			p.overlapMin, p.overlapMax = min, max
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		targetTokens: DefaultTargetTokens,
		maxTokens:    DefaultMaxTokens,
		overlapMin:   DefaultOverlapMin,
		overlapMax:   DefaultOverlapMax,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxTokens < p.targetTokens {
		p.maxTokens = p.targetTokens
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// blockKind distinguishes the Markdown elements the chunker reasons about.
type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockTable
)

type block struct {
	kind    blockKind
	level   int      // heading depth, 1..5; zero for non-headings
	text    string   // heading text, or paragraph text
	lines   []string // raw lines, for tables
}

// Process builds PolicyChunks from markdown, walking the heading tree and
// applying the target/max token sizing and overlap policy. Input chunks is
// ignored: this processor always starts a document's chunk sequence.
func (p *Processor) Process(_ context.Context, dctx driven.DocumentContext, markdown string, _ []domain.PolicyChunk) ([]domain.PolicyChunk, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}

	blocks := parseMarkdown(markdown)

	var (
		out         []domain.PolicyChunk
		headingPath [maxHeadingLevel + 1]string // 1-indexed
		deepest     int                         // deepest active heading level, 0 if none
		pending     []string                    // accumulated paragraph texts for the current region
	)

	flushProse := func() {
		for _, body := range p.splitRegion(pending) {
			out = append(out, p.buildTextChunk(dctx, headingPath, deepest, body, len(out)))
		}
		pending = nil
	}

	for _, b := range blocks {
		switch b.kind {
		case blockHeading:
			flushProse()
			for lvl := b.level; lvl <= maxHeadingLevel; lvl++ {
				headingPath[lvl] = ""
			}
			headingPath[b.level] = b.text
			deepest = b.level
		case blockTable:
			flushProse()
			out = append(out, p.buildTableChunk(dctx, headingPath, deepest, b, len(out)))
		default:
			if strings.TrimSpace(b.text) != "" {
				pending = append(pending, strings.TrimSpace(b.text))
			}
		}
	}
	flushProse()

	logger.Debug("chunker: document=%s produced %d chunks", dctx.DocumentID, len(out))
	return out, nil
}

func breadcrumb(headingPath [maxHeadingLevel + 1]string) string {
	var parts []string
	for _, h := range headingPath {
		if h != "" {
			parts = append(parts, h)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "[section: " + strings.Join(parts, " > ") + "]"
}

func sectionTitle(headingPath [maxHeadingLevel + 1]string, deepest int) string {
	if deepest == 0 {
		return ""
	}
	return headingPath[deepest]
}

func levelOf(deepest int) int {
	if deepest < 1 {
		return 1
	}
	return deepest
}

func (p *Processor) buildTextChunk(dctx driven.DocumentContext, headingPath [maxHeadingLevel + 1]string, deepest int, body []string, index int) domain.PolicyChunk {
	crumb := breadcrumb(headingPath)
	content := strings.Join(body, "\n\n")
	if crumb != "" {
		content = crumb + "\n\n" + content
	}

	return domain.PolicyChunk{
		ID:            uuid.New().String(),
		DocumentID:    dctx.DocumentID,
		ChunkIndex:    index,
		Content:       content,
		Company:       dctx.Company,
		ProductCode:   dctx.ProductCode,
		ProductName:   dctx.ProductName,
		DocType:       dctx.DocType,
		SectionTitle:  sectionTitle(headingPath, deepest),
		Level:         levelOf(deepest),
		SectionPath:   crumb,
		TableRefs:     tableRefsIn(body),
	}
}

func (p *Processor) buildTableChunk(dctx driven.DocumentContext, headingPath [maxHeadingLevel + 1]string, deepest int, b block, index int) domain.PolicyChunk {
	crumb := breadcrumb(headingPath)
	raw := strings.Join(b.lines, "\n")
	content := raw
	if crumb != "" {
		content = crumb + "\n\n" + raw
	}

	return domain.PolicyChunk{
		ID:           uuid.New().String(),
		DocumentID:   dctx.DocumentID,
		ChunkIndex:   index,
		Content:      content,
		Company:      dctx.Company,
		ProductCode:  dctx.ProductCode,
		ProductName:  dctx.ProductName,
		DocType:      dctx.DocType,
		SectionTitle: sectionTitle(headingPath, deepest),
		Level:        levelOf(deepest),
		SectionPath:  crumb,
		IsTable:      true,
		TableData:    parseTableData(b.lines),
	}
}

// tableRefsIn collects rate-table placeholder uuids found verbatim in body
// paragraphs, in first-seen order.
func tableRefsIn(body []string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, para := range body {
		for _, m := range rateTableRefPattern.FindAllStringSubmatch(para, -1) {
			id := m[1]
			if !seen[id] {
				seen[id] = true
				refs = append(refs, id)
			}
		}
	}
	return refs
}

// splitRegion groups a region's paragraphs into one or more chunk bodies,
// each targeting p.targetTokens, allowed to grow to p.maxTokens to avoid
// splitting mid-paragraph, then stitches an overlap tail from the previous
// body onto the head of the next.
func (p *Processor) splitRegion(paragraphs []string) [][]string {
	if len(paragraphs) == 0 {
		return nil
	}

	var bodies [][]string
	i := 0
	for i < len(paragraphs) {
		var cur []string
		tokens := 0
		for i < len(paragraphs) {
			t := estimateTokens(paragraphs[i])
			if tokens > 0 && tokens+t > p.maxTokens {
				break
			}
			cur = append(cur, paragraphs[i])
			tokens += t
			i++
			if tokens >= p.targetTokens {
				break
			}
		}
		bodies = append(bodies, cur)
	}

	for idx := 1; idx < len(bodies); idx++ {
		overlap := p.overlapTail(bodies[idx-1])
		if len(overlap) > 0 {
			bodies[idx] = append(append([]string{}, overlap...), bodies[idx]...)
		}
	}
	return bodies
}

// overlapTail picks whole trailing paragraphs from prev summing to roughly
// [overlapMin, overlapMax] estimated tokens, starting at a paragraph boundary.
func (p *Processor) overlapTail(prev []string) []string {
	var tail []string
	tokens := 0
	for j := len(prev) - 1; j >= 0; j-- {
		t := estimateTokens(prev[j])
		if tokens+t > p.overlapMax {
			break
		}
		tail = append([]string{prev[j]}, tail...)
		tokens += t
		if tokens >= p.overlapMin {
			break
		}
	}
	return tail
}

func estimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	tokens := int(float64(n) / tokensPerCharEstimate)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

var headingPattern = regexp.MustCompile(`^(#{1,5})\s+(.*)$`)

// parseMarkdown performs a line-based walk of the generated Markdown,
// recognizing headings, GitHub-flavored tables, and HTML comment markers
// (dropped, they stand in for figures the parser could not preserve as text).
func parseMarkdown(markdown string) []block {
	lines := strings.Split(markdown, "\n")
	var blocks []block

	var para []string
	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{kind: blockParagraph, text: strings.Join(para, "\n")})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushPara()
		case headingPattern.MatchString(trimmed):
			flushPara()
			m := headingPattern.FindStringSubmatch(trimmed)
			blocks = append(blocks, block{kind: blockHeading, level: len(m[1]), text: strings.TrimSpace(m[2])})
		case strings.HasPrefix(trimmed, "<!--"):
			flushPara() // figure/comment marker: not prose, not carried into any chunk
		case isTableRow(trimmed) && i+1 < len(lines) && isTableSeparator(strings.TrimSpace(lines[i+1])):
			flushPara()
			var tableLines []string
			for i < len(lines) && isTableRow(strings.TrimSpace(lines[i])) {
				tableLines = append(tableLines, strings.TrimSpace(lines[i]))
				i++
			}
			i--
			blocks = append(blocks, block{kind: blockTable, lines: tableLines})
		default:
			para = append(para, line)
		}
	}
	flushPara()
	return blocks
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.Contains(line[1:], "|")
}

var tableSeparatorCell = regexp.MustCompile(`^:?-+:?$`)

func isTableSeparator(line string) bool {
	if !isTableRow(line) {
		return false
	}
	for _, cell := range splitTableRow(line) {
		if cell == "" {
			continue
		}
		if !tableSeparatorCell.MatchString(cell) {
			return false
		}
	}
	return true
}

func splitTableRow(line string) []string {
	trimmed := strings.Trim(line, "|")
	cells := strings.Split(trimmed, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func parseTableData(lines []string) *domain.TableData {
	if len(lines) < 2 {
		return &domain.TableData{}
	}
	headers := splitTableRow(lines[0])
	td := &domain.TableData{Headers: headers}
	for _, line := range lines[2:] {
		cells := splitTableRow(line)
		row := make(domain.TableRow, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		td.Rows = append(td.Rows, row)
	}
	return td
}
