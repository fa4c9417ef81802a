package driving

import (
	"context"
	"time"
)

// ToolService implements the four retrieval tools exposed over MCP (§4.9).
// Every surfaced chunk carries a SourceReference with at minimum
// product_name, document_type, and a pointer back to the original document.
// An empty result is always a valid response: the tool layer never
// synthesizes content.
type ToolService interface {
	SearchPolicyClause(ctx context.Context, in SearchPolicyClauseInput) ([]ClauseResult, error)
	CheckExclusionRisk(ctx context.Context, in CheckExclusionRiskInput) (*ExclusionRiskResult, error)
	CalculateSurrenderValueLogic(ctx context.Context, in SurrenderValueLogicInput) (*SurrenderValueLogicResult, error)
	LookupProduct(ctx context.Context, in LookupProductInput) ([]ProductInfo, error)
}

// SourceReference points a surfaced chunk back to its origin document.
type SourceReference struct {
	ProductName  string `json:"product_name"`
	DocumentType string `json:"document_type"`
	DocumentID   string `json:"document_id"`
	SectionID    string `json:"section_id,omitempty"`
	PageNumber   *int   `json:"page_number,omitempty"`
}

// SearchPolicyClauseInput is the search_policy_clause tool's input.
type SearchPolicyClauseInput struct {
	Query         string  `json:"query"`
	Company       string  `json:"company,omitempty"`
	ProductCode   string  `json:"product_code,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
	DocType       string  `json:"doc_type,omitempty"`
	Category      string  `json:"category,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// ClauseResult is one search_policy_clause hit.
type ClauseResult struct {
	ChunkID         string          `json:"chunk_id"`
	Content         string          `json:"content"`
	SectionID       string          `json:"section_id,omitempty"`
	SectionTitle    string          `json:"section_title,omitempty"`
	SimilarityScore float64         `json:"similarity_score"`
	SourceReference SourceReference `json:"source_reference"`
}

// CheckExclusionRiskInput is the check_exclusion_risk tool's input.
type CheckExclusionRiskInput struct {
	ScenarioDescription string `json:"scenario_description"`
	ProductCode         string `json:"product_code,omitempty"`
	Strict              bool   `json:"strict"`
}

// ExclusionRiskResult is the check_exclusion_risk tool's output.
type ExclusionRiskResult struct {
	RiskDetected    bool           `json:"risk_detected"`
	RelevantClauses []ClauseResult `json:"relevant_clauses"`
	Summary         string         `json:"summary"`
	Disclaimer      string         `json:"disclaimer"`
}

// SurrenderOperation selects which logic calculate_surrender_value_logic explains.
type SurrenderOperation string

const (
	OperationSurrender     SurrenderOperation = "surrender"
	OperationReducedPaidUp SurrenderOperation = "reduced_paid_up"
)

// SurrenderValueLogicInput is the calculate_surrender_value_logic tool's input.
type SurrenderValueLogicInput struct {
	ProductCode string             `json:"product_code"`
	PolicyYear  *int               `json:"policy_year,omitempty"`
	Operation   SurrenderOperation `json:"operation"`
}

// SurrenderValueLogicResult is the calculate_surrender_value_logic tool's output.
type SurrenderValueLogicResult struct {
	OperationName    string            `json:"operation_name"`
	Definition       string            `json:"definition"`
	CalculationRules []string          `json:"calculation_rules"`
	Conditions       []string          `json:"conditions"`
	Consequences     []string          `json:"consequences"`
	RelatedTables    []string          `json:"related_tables"`
	ComparisonNote   string            `json:"comparison_note"`
	SourceReferences []SourceReference `json:"source_references"`
}

// LookupProductInput is the lookup_product tool's input.
type LookupProductInput struct {
	ProductName string `json:"product_name"`
	Company     string `json:"company,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

// ProductInfo is one lookup_product match.
type ProductInfo struct {
	ProductID   string    `json:"product_id"`
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	Company     string    `json:"company"`
	Category    string    `json:"category"`
	PublishTime time.Time `json:"publish_time"`
}
