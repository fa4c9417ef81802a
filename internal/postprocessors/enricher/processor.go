// Package enricher implements the metadata enrichment pipeline stage: it
// takes the chunker's output and fills in category, entity_role, keywords,
// section_id, and parent_section for each PolicyChunk.
package enricher

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/tokenize"
)

// DefaultTopKKeywords is the default number of keywords kept per chunk.
const DefaultTopKKeywords = 5

// categoryRule is one step of the priority cascade; rules are evaluated in
// order and the first match wins, making classification deterministic.
type categoryRule struct {
	category domain.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{domain.CategoryExclusion, []string{"责任免除", "我们不承担", "除外", "不负责", "免除责任", "不予给付"}},
	{domain.CategoryLiability, []string{"保险责任", "我们给付", "保险金", "我们支付", "承担责任", "给付"}},
	{domain.CategoryDefinition, []string{"本合同所称", "定义", "是指", "本条款中", "以下简称"}},
	{domain.CategoryProcess, []string{"申请", "理赔", "手续", "流程", "提交材料", "审核", "办理"}},
}

var entityRoleKeywords = map[domain.EntityRole][]string{
	domain.RoleInsurer:     {"我们", "本公司", "保险人"},
	domain.RoleInsured:     {"被保险人", "受保人", "您的孩子"},
	domain.RoleBeneficiary: {"受益人", "继承人"},
}

var sectionIDPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)`)

// Processor enriches chunks with deterministic, rule-based metadata. It
// implements driven.PostProcessor and is intended to run after the chunker.
type Processor struct {
	topK int
	tok  *tokenize.Tokenizer
}

// Option configures the enricher processor.
type Option func(*Processor)

// WithTopKKeywords overrides the number of keywords kept per chunk.
func WithTopKKeywords(k int) Option {
	return func(p *Processor) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithTokenizer injects a pre-built tokenizer, for tests or shared reuse
// with the sparse index's indexing path.
func WithTokenizer(tok *tokenize.Tokenizer) Option {
	return func(p *Processor) {
		p.tok = tok
	}
}

// New creates an enricher processor. Without WithTokenizer, keyword
// extraction degrades to empty results; category/entity_role/section_id are
// independent of tokenization and are always populated.
func New(opts ...Option) *Processor {
	p := &Processor{topK: DefaultTopKKeywords}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "enricher"
}

// Process fills in category, entity_role, keywords, section_id, and
// parent_section for each text chunk, leaving everything else untouched.
// Table chunks only get CategoryGeneral.
func (p *Processor) Process(_ context.Context, _ driven.DocumentContext, _ string, chunks []domain.PolicyChunk) ([]domain.PolicyChunk, error) {
	for i := range chunks {
		c := &chunks[i]
		if c.IsTable {
			c.Category = domain.CategoryGeneral
			continue
		}

		c.Category = classifyCategory(c.Content)
		c.EntityRole = identifyEntityRole(c.Content)
		c.Keywords = p.extractKeywords(c.Content)

		sectionID := extractSectionID(c.SectionTitle)
		c.SectionID = sectionID
		c.ParentSection = parentSection(sectionID)
	}
	return chunks, nil
}

// classifyCategory applies the priority cascade: the first rule whose
// keyword set appears anywhere in content wins; General is the sink.
func classifyCategory(content string) domain.Category {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(content, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneral
}

// identifyEntityRole counts each role's keyword occurrences and returns the
// strictly largest; ties (including all-zero) yield RoleNone.
func identifyEntityRole(content string) domain.EntityRole {
	var best domain.EntityRole
	bestCount := 0
	tie := false

	// Iterate in a fixed order so a tie always resolves to RoleNone
	// regardless of map iteration order.
	for _, role := range []domain.EntityRole{domain.RoleInsurer, domain.RoleInsured, domain.RoleBeneficiary} {
		text := content
		if role == domain.RoleInsurer {
			// "保险人" inside "被保险人" names the insured, not the insurer.
			text = strings.ReplaceAll(content, "被保险人", "")
		}
		count := 0
		for _, kw := range entityRoleKeywords[role] {
			count += strings.Count(text, kw)
		}
		switch {
		case count > bestCount:
			best = role
			bestCount = count
			tie = false
		case count == bestCount && count > 0:
			tie = true
		}
	}
	if bestCount == 0 || tie {
		return domain.RoleNone
	}
	return best
}

// extractSectionID parses the leading dotted-numeric pattern off the
// deepest heading, e.g. "1.2.6 身故保险金" -> "1.2.6".
func extractSectionID(sectionTitle string) string {
	m := sectionIDPattern.FindString(strings.TrimSpace(sectionTitle))
	return m
}

// parentSection strips the last dotted segment off a section id.
func parentSection(sectionID string) string {
	if sectionID == "" {
		return ""
	}
	idx := strings.LastIndex(sectionID, ".")
	if idx < 0 {
		return ""
	}
	return sectionID[:idx]
}

// extractKeywords tokenizes content and returns the top-k terms by raw
// term frequency within the chunk. Ties break by first occurrence, so the
// result is stable across repeated runs on identical input.
func (p *Processor) extractKeywords(content string) []string {
	if p.tok == nil {
		return nil
	}
	words := p.tok.Tokenize(content)
	if len(words) == 0 {
		return nil
	}

	freq := make(map[string]int, len(words))
	order := make(map[string]int, len(words))
	for i, w := range words {
		if _, seen := order[w]; !seen {
			order[w] = i
		}
		freq[w]++
	}

	unique := make([]string, 0, len(freq))
	for w := range freq {
		unique = append(unique, w)
	}
	sort.Slice(unique, func(i, j int) bool {
		if freq[unique[i]] != freq[unique[j]] {
			return freq[unique[i]] > freq[unique[j]]
		}
		return order[unique[i]] < order[unique[j]]
	})

	k := p.topK
	if k > len(unique) {
		k = len(unique)
	}
	return unique[:k]
}
