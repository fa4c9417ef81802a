package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_HeadingsAndParagraphs(t *testing.T) {
	els := []element{
		{kind: elemHeading, level: 1, text: "总则"},
		{kind: elemParagraph, text: "本合同由保险条款构成。"},
		{kind: elemHeading, level: 2, text: "保险责任"},
	}
	md := renderMarkdown(els, nil)
	assert.Contains(t, md, "# 总则")
	assert.Contains(t, md, "本合同由保险条款构成。")
	assert.Contains(t, md, "## 保险责任")
}

func TestRenderMarkdown_OrdinaryTableRendersAsGFM(t *testing.T) {
	els := []element{
		{kind: elemTable, tableRows: [][]string{
			{"条款", "说明"},
			{"第一条", "总则"},
		}},
	}
	md := renderMarkdown(els, nil)
	assert.Contains(t, md, "| 条款 | 说明 |")
	assert.Contains(t, md, "| --- | --- |")
	assert.Contains(t, md, "| 第一条 | 总则 |")
}

func TestRenderMarkdown_RateTableBecomesPlaceholder(t *testing.T) {
	els := []element{
		{kind: elemTable, tableRows: [][]string{{"年龄", "现金价值"}, {"30", "1000"}}},
	}
	md := renderMarkdown(els, map[int]string{0: "abc-123"})
	assert.Equal(t, "[rate-table: abc-123]", md)
}

func TestRenderMarkdown_FigureDropsToComment(t *testing.T) {
	els := []element{{kind: elemFigure, pageStart: 7}}
	md := renderMarkdown(els, nil)
	assert.Equal(t, "<!-- figure: page 7 -->", md)
}
