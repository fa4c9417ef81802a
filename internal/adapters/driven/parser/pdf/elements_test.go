package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHeading_ChapterSectionClause(t *testing.T) {
	lvl, text, ok := classifyHeading("第一章 总则")
	require.True(t, ok)
	assert.Equal(t, 1, lvl)
	assert.Equal(t, "总则", text)

	lvl, text, ok = classifyHeading("第二节 保险责任")
	require.True(t, ok)
	assert.Equal(t, 2, lvl)
	assert.Equal(t, "保险责任", text)

	lvl, text, ok = classifyHeading("第三条 责任免除")
	require.True(t, ok)
	assert.Equal(t, 3, lvl)
	assert.Equal(t, "责任免除", text)
}

func TestClassifyHeading_DottedSection(t *testing.T) {
	lvl, text, ok := classifyHeading("1.2.6 身故保险金")
	require.True(t, ok)
	assert.Equal(t, 3, lvl)
	assert.Equal(t, "1.2.6 身故保险金", text)
}

func TestClassifyHeading_Enumeration(t *testing.T) {
	lvl, text, ok := classifyHeading("一、投保范围")
	require.True(t, ok)
	assert.Equal(t, 2, lvl)
	assert.Equal(t, "投保范围", text)
}

func TestClassifyHeading_LongLineIsProse(t *testing.T) {
	long := "被保险人于本合同保险期间内身故的，本公司按合同约定向身故保险金受益人给付身故保险金，本合同终止，这段话明显太长不应被当成标题来处理因为它超过了六十个字符的上限判定阈值。"
	_, _, ok := classifyHeading(long)
	assert.False(t, ok)
}

func TestClassifyHeading_OrdinaryProseIsNotHeading(t *testing.T) {
	_, _, ok := classifyHeading("被保险人身故的，本公司给付保险金。")
	assert.False(t, ok)
}

func TestBuildElements_HeadingTableAndParagraph(t *testing.T) {
	lines := []pageLine{
		{page: 1, cells: []string{"第一章 总则"}},
		{page: 1, cells: []string{"本合同由保险条款和投保单构成。"}},
		{page: 2, cells: []string{"年龄", "现金价值"}},
		{page: 2, cells: []string{"30", "1000"}},
		{page: 2, cells: []string{"40", "2000"}},
		{page: 3, cells: []string{"以上现金价值以实际给付为准。"}},
	}

	els := buildElements(lines)
	require.Len(t, els, 4)
	assert.Equal(t, elemHeading, els[0].kind)
	assert.Equal(t, elemParagraph, els[1].kind)
	assert.Equal(t, elemTable, els[2].kind)
	require.Len(t, els[2].tableRows, 3)
	assert.Equal(t, elemParagraph, els[3].kind)
}

func TestBuildElements_ShortMultiCellRunFallsBackToProse(t *testing.T) {
	lines := []pageLine{
		{page: 1, cells: []string{"甲", "乙"}}, // a single two-cell line, below minTableRows
	}
	els := buildElements(lines)
	require.Len(t, els, 1)
	assert.Equal(t, elemParagraph, els[0].kind)
}

func TestBuildElements_BlankPageBecomesFigure(t *testing.T) {
	lines := []pageLine{{page: 5}}
	els := buildElements(lines)
	require.Len(t, els, 1)
	assert.Equal(t, elemFigure, els[0].kind)
	assert.Equal(t, 5, els[0].pageStart)
}
