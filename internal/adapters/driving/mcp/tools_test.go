package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

// fakeToolService is a test double for driving.ToolService.
type fakeToolService struct {
	clauses        []driving.ClauseResult
	exclusionResult *driving.ExclusionRiskResult
	surrenderResult *driving.SurrenderValueLogicResult
	products        []driving.ProductInfo
	err             error

	lastSearchInput    driving.SearchPolicyClauseInput
	lastExclusionInput driving.CheckExclusionRiskInput
}

func (f *fakeToolService) SearchPolicyClause(_ context.Context, in driving.SearchPolicyClauseInput) ([]driving.ClauseResult, error) {
	f.lastSearchInput = in
	return f.clauses, f.err
}

func (f *fakeToolService) CheckExclusionRisk(_ context.Context, in driving.CheckExclusionRiskInput) (*driving.ExclusionRiskResult, error) {
	f.lastExclusionInput = in
	if f.err != nil {
		return nil, f.err
	}
	if f.exclusionResult == nil {
		return &driving.ExclusionRiskResult{}, nil
	}
	return f.exclusionResult, nil
}

func (f *fakeToolService) CalculateSurrenderValueLogic(_ context.Context, _ driving.SurrenderValueLogicInput) (*driving.SurrenderValueLogicResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.surrenderResult == nil {
		return &driving.SurrenderValueLogicResult{}, nil
	}
	return f.surrenderResult, nil
}

func (f *fakeToolService) LookupProduct(_ context.Context, _ driving.LookupProductInput) ([]driving.ProductInfo, error) {
	return f.products, f.err
}

func TestServer_handleSearchPolicyClause(t *testing.T) {
	ctx := context.Background()

	t.Run("returns clause results", func(t *testing.T) {
		tools := &fakeToolService{clauses: []driving.ClauseResult{
			{ChunkID: "doc-1#0000", Content: "第一段"},
		}}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, output, err := server.handleSearchPolicyClause(ctx, nil, driving.SearchPolicyClauseInput{Query: "保险期间", ProductCode: "FY001"})
		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "doc-1#0000", output.Results[0].ChunkID)
		assert.Equal(t, "FY001", tools.lastSearchInput.ProductCode)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		tools := &fakeToolService{err: errors.New("retrieval failed")}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, _, err = server.handleSearchPolicyClause(ctx, nil, driving.SearchPolicyClauseInput{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval failed")
	})
}

func TestServer_handleCheckExclusionRisk(t *testing.T) {
	ctx := context.Background()

	t.Run("omitted strict defaults to true", func(t *testing.T) {
		tools := &fakeToolService{}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, _, err = server.handleCheckExclusionRisk(ctx, nil, checkExclusionRiskInput{ScenarioDescription: "酒驾出事"})
		require.NoError(t, err)
		assert.True(t, tools.lastExclusionInput.Strict)
	})

	t.Run("explicit strict false is preserved", func(t *testing.T) {
		tools := &fakeToolService{}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		notStrict := false
		_, _, err = server.handleCheckExclusionRisk(ctx, nil, checkExclusionRiskInput{ScenarioDescription: "酒驾出事", Strict: &notStrict})
		require.NoError(t, err)
		assert.False(t, tools.lastExclusionInput.Strict)
	})

	t.Run("returns result from tool service", func(t *testing.T) {
		tools := &fakeToolService{exclusionResult: &driving.ExclusionRiskResult{
			RiskDetected: true,
			Disclaimer:   "本工具仅提供条款检索辅助，不构成理赔承诺。具体理赔结论以保险公司审核为准。",
		}}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, output, err := server.handleCheckExclusionRisk(ctx, nil, checkExclusionRiskInput{ScenarioDescription: "酒驾出事"})
		require.NoError(t, err)
		assert.True(t, output.RiskDetected)
		assert.NotEmpty(t, output.Disclaimer)
	})
}

func TestServer_handleCalculateSurrenderValueLogic(t *testing.T) {
	ctx := context.Background()

	t.Run("returns result from tool service", func(t *testing.T) {
		tools := &fakeToolService{surrenderResult: &driving.SurrenderValueLogicResult{OperationName: "退保（解除合同）"}}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, output, err := server.handleCalculateSurrenderValueLogic(ctx, nil, driving.SurrenderValueLogicInput{ProductCode: "FY001"})
		require.NoError(t, err)
		assert.Equal(t, "退保（解除合同）", output.OperationName)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		tools := &fakeToolService{err: errors.New("unknown product")}
		server, err := NewServer(&Ports{Tools: tools})
		require.NoError(t, err)

		_, _, err = server.handleCalculateSurrenderValueLogic(ctx, nil, driving.SurrenderValueLogicInput{ProductCode: "missing"})
		require.Error(t, err)
	})
}

func TestServer_handleLookupProduct(t *testing.T) {
	ctx := context.Background()

	server, err := NewServer(&Ports{Tools: &fakeToolService{
		products: []driving.ProductInfo{{ProductID: "prod-1", ProductName: "福瑶年金"}},
	}})
	require.NoError(t, err)

	_, output, err := server.handleLookupProduct(ctx, nil, driving.LookupProductInput{ProductName: "福瑶"})
	require.NoError(t, err)
	assert.Equal(t, 1, output.Count)
	assert.Equal(t, "prod-1", output.Results[0].ProductID)
}
