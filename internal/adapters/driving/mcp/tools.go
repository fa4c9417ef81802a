package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

// registerTools registers the four retrieval tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_policy_clause",
		Description: "Semantic search over verified insurance policy clauses, filterable by company, product_code, product_name, doc_type and category.",
	}, s.handleSearchPolicyClause)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_exclusion_risk",
		Description: "Check a described risk scenario against exclusion (responsibility disclaimer) clauses, with automatic keyword expansion.",
	}, s.handleCheckExclusionRisk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "calculate_surrender_value_logic",
		Description: "Explain the surrender or reduced-paid-up calculation logic for a product, with related cash-value tables.",
	}, s.handleCalculateSurrenderValueLogic)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lookup_product",
		Description: "Fuzzy product lookup by name, optionally filtered by company. Does not touch the vector index.",
	}, s.handleLookupProduct)
}

// searchPolicyClauseOutput wraps the ClauseResult list with a count.
type searchPolicyClauseOutput struct {
	Results []driving.ClauseResult `json:"results"`
	Count   int                    `json:"count"`
}

func (s *Server) handleSearchPolicyClause(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input driving.SearchPolicyClauseInput,
) (*mcp.CallToolResult, searchPolicyClauseOutput, error) {
	results, err := s.ports.Tools.SearchPolicyClause(ctx, input)
	if err != nil {
		return nil, searchPolicyClauseOutput{}, err
	}
	return nil, searchPolicyClauseOutput{Results: results, Count: len(results)}, nil
}

// checkExclusionRiskInput mirrors driving.CheckExclusionRiskInput but models
// strict as a pointer: a caller who omits the field gets the documented
// default of true, rather than Go's bool zero value.
type checkExclusionRiskInput struct {
	ScenarioDescription string `json:"scenario_description" jsonschema:"the risk scenario to check, e.g. '酒驾出事'"`
	ProductCode         string `json:"product_code,omitempty"`
	Strict              *bool  `json:"strict,omitempty" jsonschema:"require the higher-confidence similarity floor (default true)"`
}

func (s *Server) handleCheckExclusionRisk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input checkExclusionRiskInput,
) (*mcp.CallToolResult, driving.ExclusionRiskResult, error) {
	strict := true
	if input.Strict != nil {
		strict = *input.Strict
	}

	result, err := s.ports.Tools.CheckExclusionRisk(ctx, driving.CheckExclusionRiskInput{
		ScenarioDescription: input.ScenarioDescription,
		ProductCode:         input.ProductCode,
		Strict:              strict,
	})
	if err != nil {
		return nil, driving.ExclusionRiskResult{}, err
	}
	return nil, *result, nil
}

func (s *Server) handleCalculateSurrenderValueLogic(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input driving.SurrenderValueLogicInput,
) (*mcp.CallToolResult, driving.SurrenderValueLogicResult, error) {
	result, err := s.ports.Tools.CalculateSurrenderValueLogic(ctx, input)
	if err != nil {
		return nil, driving.SurrenderValueLogicResult{}, err
	}
	return nil, *result, nil
}

// lookupProductOutput wraps the ProductInfo list with a count.
type lookupProductOutput struct {
	Results []driving.ProductInfo `json:"results"`
	Count   int                   `json:"count"`
}

func (s *Server) handleLookupProduct(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input driving.LookupProductInput,
) (*mcp.CallToolResult, lookupProductOutput, error) {
	results, err := s.ports.Tools.LookupProduct(ctx, input)
	if err != nil {
		return nil, lookupProductOutput{}, err
	}
	return nil, lookupProductOutput{Results: results, Count: len(results)}, nil
}
