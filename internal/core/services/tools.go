package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/core/ports/driving"
	"github.com/policyrag/policyrag/internal/logger"
)

var _ driving.ToolService = (*Tools)(nil)

// exclusionKeywordExpansion curates the risk-scenario vocabulary that
// check_exclusion_risk folds into its retrieval query. Keyed by the phrase a
// caller is likely to type; values are synonyms insurers actually use in
// exclusion clauses.
var exclusionKeywordExpansion = map[string][]string{
	"酒驾":    {"酒后驾驶", "饮酒", "醉酒", "酒精"},
	"吸毒":    {"毒品", "注射毒品", "管制药物"},
	"犯罪":    {"违法", "犯罪行为", "被逮捕", "刑事"},
	"自杀":    {"自致伤害", "自杀", "故意自伤"},
	"既往症":   {"从前", "曾经", "过去", "病史", "先天性"},
	"无证驾驶":  {"无合法有效驾驶证", "无有效驾驶证", "驾驶证有效期已届满"},
	"战争":    {"战争", "军事冲突", "暴乱", "武装叛乱"},
	"核":     {"核爆炸", "核辐射", "核污染"},
}

const exclusionDisclaimer = "本工具仅提供条款检索辅助，不构成理赔承诺。具体理赔结论以保险公司审核为准。"

// rateKeywords trigger doc-type inference toward a rate table when the query
// also carries a digit (§4.9's search_policy_clause doc_type inference).
var rateKeywords = []string{"保费", "费率", "多少钱", "价格", "费用", "成本", "交多少"}

// Tools implements driving.ToolService on top of a Retriever and the
// Product/Document metadata stores.
type Tools struct {
	retriever     driving.RetrievalService
	productStore  driven.ProductStore
	documentStore driven.DocumentStore
	rateTables    driven.RateTableStore
}

// NewTools constructs a Tools service.
func NewTools(retriever driving.RetrievalService, productStore driven.ProductStore, documentStore driven.DocumentStore, rateTables driven.RateTableStore) *Tools {
	return &Tools{retriever: retriever, productStore: productStore, documentStore: documentStore, rateTables: rateTables}
}

// SearchPolicyClause implements driving.ToolService.
func (t *Tools) SearchPolicyClause(ctx context.Context, in driving.SearchPolicyClauseInput) ([]driving.ClauseResult, error) {
	if in.ProductCode == "" && in.ProductName == "" {
		return nil, fmt.Errorf("search_policy_clause: %w: product_code or product_name is required", domain.ErrInvalidInput)
	}

	docType := in.DocType
	if docType == "" {
		docType = inferDocType(in.Query)
	}

	topK := in.TopK
	if topK <= 0 {
		topK = 5
	}
	minSim := in.MinSimilarity
	if minSim == 0 {
		minSim = -1 // let the retriever apply its component default
	}

	filters := domain.Filters{
		Company:     in.Company,
		ProductCode: in.ProductCode,
		ProductName: in.ProductName,
		DocType:     domain.DocType(docType),
		Category:    domain.Category(in.Category),
	}

	scored, err := t.retriever.Search(ctx, in.Query, domain.SearchOptions{TopK: topK, MinSimilarity: minSim, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("search_policy_clause: %w", err)
	}
	return toClauseResults(scored), nil
}

// CheckExclusionRisk implements driving.ToolService.
func (t *Tools) CheckExclusionRisk(ctx context.Context, in driving.CheckExclusionRiskInput) (*driving.ExclusionRiskResult, error) {
	expanded := in.ScenarioDescription
	for phrase, synonyms := range exclusionKeywordExpansion {
		if strings.Contains(in.ScenarioDescription, phrase) {
			expanded += " " + strings.Join(synonyms, " ")
		}
	}

	// strict narrows recall to the higher-confidence floor so relevant_clauses
	// only surfaces clauses a reviewer would call risk-bearing; non-strict
	// widens the floor for "rather a false positive than a miss" recall.
	minSim := 0.5
	if in.Strict {
		minSim = 0.65
	}

	filters := domain.Filters{ProductCode: in.ProductCode, Category: domain.CategoryExclusion}
	scored, err := t.retriever.Search(ctx, expanded, domain.SearchOptions{
		TopK:          10,
		MinSimilarity: minSim,
		Filters:       filters,
	})
	if err != nil {
		return nil, fmt.Errorf("check_exclusion_risk: %w", err)
	}

	clauses := toClauseResults(scored)
	riskDetected := false
	for _, c := range clauses {
		if c.SimilarityScore > 0.75 {
			riskDetected = true
			break
		}
	}

	summary := "未发现直接相关的免责条款。"
	if len(clauses) > 0 {
		if riskDetected {
			summary = fmt.Sprintf("检测到高风险免责条款。该场景可能触及以下 %d 条免责内容，请仔细核对。", len(clauses))
		} else {
			summary = fmt.Sprintf("发现 %d 条可能相关的免责条款，建议人工核实。", len(clauses))
		}
	}

	return &driving.ExclusionRiskResult{
		RiskDetected:    riskDetected,
		RelevantClauses: clauses,
		Summary:         summary,
		Disclaimer:      exclusionDisclaimer,
	}, nil
}

// CalculateSurrenderValueLogic implements driving.ToolService.
func (t *Tools) CalculateSurrenderValueLogic(ctx context.Context, in driving.SurrenderValueLogicInput) (*driving.SurrenderValueLogicResult, error) {
	if in.ProductCode == "" {
		return nil, fmt.Errorf("calculate_surrender_value_logic: %w: product_code is required", domain.ErrInvalidInput)
	}

	filters := domain.Filters{ProductCode: in.ProductCode, Category: domain.CategoryProcess}

	surrenderQuery := "解除合同 退保 现金价值"
	rpuQuery := "减额交清"
	if in.PolicyYear != nil {
		yearNote := " 第" + strconv.Itoa(*in.PolicyYear) + "个保单年度"
		surrenderQuery += yearNote
		rpuQuery += yearNote
	}

	surrenderHits, err := t.retriever.Search(ctx, surrenderQuery, domain.SearchOptions{TopK: 3, MinSimilarity: -1, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("calculate_surrender_value_logic: surrender retrieval: %w", err)
	}
	rpuHits, err := t.retriever.Search(ctx, rpuQuery, domain.SearchOptions{TopK: 3, MinSimilarity: -1, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("calculate_surrender_value_logic: reduced-paid-up retrieval: %w", err)
	}

	tableFilters := domain.Filters{ProductCode: in.ProductCode}
	isTable := true
	tableFilters.IsTable = &isTable
	tableHits, err := t.retriever.Search(ctx, "现金价值表 减额交清表", domain.SearchOptions{TopK: 3, MinSimilarity: -1, Filters: tableFilters})
	if err != nil {
		return nil, fmt.Errorf("calculate_surrender_value_logic: table retrieval: %w", err)
	}

	var chosen []domain.ScoredChunk
	var operationName, definition string
	switch in.Operation {
	case driving.OperationReducedPaidUp:
		chosen = rpuHits
		operationName = "减额交清"
		definition = "将保单现金价值作为一次交清的保险费，转换为缴清保额更低但继续有效的保单，不再需要缴纳后续保费。"
	default:
		chosen = surrenderHits
		operationName = "退保（解除合同）"
		definition = "投保人解除保险合同，保险公司按合同约定退还保单现金价值，合同效力终止。"
	}

	var rules, conditions, consequences []string
	for _, h := range chosen {
		rules = append(rules, h.Chunk.Content)
	}
	if len(tableHits) == 0 {
		rules = append(rules, "未检索到关联现金价值表/减额交清表，请查阅保单合同所附的现金价值表。")
	}
	if len(chosen) == 0 {
		conditions = append(conditions, "未检索到明确的条件说明，建议人工核实保单条款。")
	}
	consequences = append(consequences, "合同变更后原保险责任范围与保额按新条款重新确定。")

	relatedTables := make([]string, 0, len(tableHits))
	for _, h := range tableHits {
		relatedTables = append(relatedTables, h.Chunk.TableRefsCSV())
	}

	comparisonNote := fmt.Sprintf(
		"退保将终止合同并一次性退还现金价值；减额交清则以现金价值冲抵保费、降低保额但维持合同有效。"+
			"是否选择%s需结合保单年度%s与现金价值表核实具体数额。",
		operationName, policyYearNote(in.PolicyYear),
	)

	sourceRefs := make([]driving.SourceReference, 0, len(chosen)+len(tableHits))
	for _, h := range chosen {
		sourceRefs = append(sourceRefs, sourceRefFor(h.Chunk))
	}
	for _, h := range tableHits {
		sourceRefs = append(sourceRefs, sourceRefFor(h.Chunk))
	}

	return &driving.SurrenderValueLogicResult{
		OperationName:    operationName,
		Definition:       definition,
		CalculationRules: rules,
		Conditions:       conditions,
		Consequences:     consequences,
		RelatedTables:    relatedTables,
		ComparisonNote:   comparisonNote,
		SourceReferences: sourceRefs,
	}, nil
}

func policyYearNote(year *int) string {
	if year == nil {
		return ""
	}
	return fmt.Sprintf("（第%d个保单年度）", *year)
}

// LookupProduct implements driving.ToolService. It never touches the vector
// index, per §4.9 — purely a fuzzy match over the Product metadata store.
func (t *Tools) LookupProduct(ctx context.Context, in driving.LookupProductInput) ([]driving.ProductInfo, error) {
	products, err := t.productStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup_product: %w", err)
	}

	type scored struct {
		product    domain.Product
		similarity float64
	}
	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		if in.Company != "" && p.Company != in.Company {
			continue
		}
		candidates = append(candidates, scored{product: p, similarity: nameSimilarity(in.ProductName, p.Name)})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].similarity > candidates[j].similarity })

	topK := in.TopK
	if topK <= 0 {
		topK = 5
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	logger.Debug("lookup_product: query=%q company=%q matches=%d", in.ProductName, in.Company, len(candidates))

	results := make([]driving.ProductInfo, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, driving.ProductInfo{
			ProductID:   c.product.ID,
			ProductCode: c.product.ProductCode,
			ProductName: c.product.Name,
			Company:     c.product.Company,
			Category:    c.product.Category,
			PublishTime: c.product.PublishTime,
		})
	}
	return results, nil
}

// nameSimilarity mirrors product_lookup.py's calculate_similarity: a
// rune-level Levenshtein ratio with a substring bonus.
func nameSimilarity(query, target string) float64 {
	query = strings.ToLower(query)
	target = strings.ToLower(target)
	ratio := levenshteinRatio(query, target)
	if strings.Contains(target, query) && query != "" {
		bonus := 0.8 + (float64(utf8.RuneCountInString(query))/float64(utf8.RuneCountInString(target)))*0.2
		if bonus > ratio {
			ratio = bonus
		}
	}
	return ratio
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	dist := levenshteinDistance(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshteinDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func inferDocType(query string) string {
	lower := strings.ToLower(query)
	hasDigit := strings.ContainsAny(query, "0123456789")
	if !hasDigit {
		return ""
	}
	for _, kw := range rateKeywords {
		if strings.Contains(lower, kw) {
			return string(domain.DocTypeRateTable)
		}
	}
	return ""
}

func toClauseResults(scored []domain.ScoredChunk) []driving.ClauseResult {
	results := make([]driving.ClauseResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, driving.ClauseResult{
			ChunkID:         s.Chunk.ID,
			Content:         s.Chunk.Content,
			SectionID:       s.Chunk.SectionID,
			SectionTitle:    s.Chunk.SectionTitle,
			SimilarityScore: s.Similarity,
			SourceReference: sourceRefFor(s.Chunk),
		})
	}
	return results
}

func sourceRefFor(c domain.PolicyChunk) driving.SourceReference {
	var page *int
	if c.PageNumber != nil {
		p := *c.PageNumber
		page = &p
	}
	return driving.SourceReference{
		ProductName:  c.ProductName,
		DocumentType: string(c.DocType),
		DocumentID:   c.DocumentID,
		SectionID:    c.SectionID,
		PageNumber:   page,
	}
}
