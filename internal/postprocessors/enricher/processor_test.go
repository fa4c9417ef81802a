package enricher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

var testCtx = driven.DocumentContext{
	DocumentID:  "doc-1",
	Company:     "平安",
	ProductCode: "FY001",
	ProductName: "福耀年金",
	DocType:     domain.DocTypeClause,
}

func TestClassifyCategory_ExclusionBeatsLiability(t *testing.T) {
	// Contains both an exclusion keyword and a liability keyword; exclusion
	// must win because it is evaluated first in the cascade.
	content := "下列情形属于责任免除，本公司不承担给付保险金的责任。"
	assert.Equal(t, domain.CategoryExclusion, classifyCategory(content))
}

func TestClassifyCategory_Liability(t *testing.T) {
	assert.Equal(t, domain.CategoryLiability, classifyCategory("被保险人身故的，我们按本合同约定给付身故保险金。"))
}

func TestClassifyCategory_Definition(t *testing.T) {
	assert.Equal(t, domain.CategoryDefinition, classifyCategory("本合同所称的\"等待期\"是指自本合同生效之日起的一段期间。"))
}

func TestClassifyCategory_Process(t *testing.T) {
	assert.Equal(t, domain.CategoryProcess, classifyCategory("申请理赔时请提交材料并办理相关手续。"))
}

func TestClassifyCategory_General(t *testing.T) {
	assert.Equal(t, domain.CategoryGeneral, classifyCategory("本合同适用中华人民共和国法律。"))
}

func TestIdentifyEntityRole_StrictlyLargestWins(t *testing.T) {
	assert.Equal(t, domain.RoleInsured, identifyEntityRole("被保险人被保险人被保险人生存至保险期间届满，受益人可申请给付。"))
}

func TestIdentifyEntityRole_TieYieldsNone(t *testing.T) {
	assert.Equal(t, domain.RoleNone, identifyEntityRole("我们与被保险人共同确认本合同条款。"))
}

func TestIdentifyEntityRole_AllZeroYieldsNone(t *testing.T) {
	assert.Equal(t, domain.RoleNone, identifyEntityRole("本合同适用中华人民共和国法律。"))
}

func TestExtractSectionID(t *testing.T) {
	assert.Equal(t, "1.2.6", extractSectionID("1.2.6 身故保险金"))
	assert.Equal(t, "", extractSectionID("身故保险金"))
}

func TestParentSection(t *testing.T) {
	assert.Equal(t, "1.2", parentSection("1.2.6"))
	assert.Equal(t, "", parentSection("1"))
	assert.Equal(t, "", parentSection(""))
}

func TestProcess_TableChunkGetsGeneralCategoryOnly(t *testing.T) {
	p := New(WithTokenizer(nil))
	chunks := []domain.PolicyChunk{
		{IsTable: true, SectionTitle: "1.1 现金价值表"},
	}

	out, err := p.Process(context.Background(), testCtx, "", chunks)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.CategoryGeneral, out[0].Category)
	assert.Empty(t, out[0].SectionID) // table chunks are not enriched beyond category
}

func TestProcess_FillsSectionAndCategory(t *testing.T) {
	p := New(WithTokenizer(nil))
	chunks := []domain.PolicyChunk{
		{Content: "1.2.6 被保险人身故的，我们给付身故保险金。", SectionTitle: "1.2.6 身故保险金"},
	}

	out, err := p.Process(context.Background(), testCtx, "", chunks)
	require.NoError(t, err)
	require.Len(t, out, 1)

	c := out[0]
	assert.Equal(t, domain.CategoryLiability, c.Category)
	assert.Equal(t, "1.2.6", c.SectionID)
	assert.Equal(t, "1.2", c.ParentSection)
	assert.Nil(t, c.Keywords) // no tokenizer injected in this test
}

func TestName(t *testing.T) {
	assert.Equal(t, "enricher", New(WithTokenizer(nil)).Name())
}
