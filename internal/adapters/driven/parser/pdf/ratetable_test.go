package pdf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyrag/policyrag/internal/core/domain"
)

func TestClassifyTable_RateWithKeywordAndModerateNumerics(t *testing.T) {
	rows := [][]string{
		{"年龄", "现金价值"},
		{"30", "1000"},
		{"40", "2000"},
		{"50", "abc"}, // one non-numeric cell keeps ratio below 1.0 but above 0.5
	}
	isRate, ratio := classifyTable(rows)
	assert.True(t, isRate)
	assert.InDelta(t, 5.0/6.0, ratio, 0.01)
}

func TestClassifyTable_NotRateWithoutKeywordOrHighRatio(t *testing.T) {
	rows := [][]string{
		{"条款", "说明"},
		{"第一条", "总则"},
		{"第二条", "定义"},
	}
	isRate, _ := classifyTable(rows)
	assert.False(t, isRate)
}

func TestClassifyTable_RateOnHighNumericRatioRegardlessOfHeader(t *testing.T) {
	rows := [][]string{
		{"编号", "数值"},
		{"1", "100"},
		{"2", "200"},
		{"3", "300"},
	}
	isRate, ratio := classifyTable(rows)
	assert.True(t, isRate)
	assert.Equal(t, 1.0, ratio)
}

func TestClassifyTable_TooFewRows(t *testing.T) {
	isRate, ratio := classifyTable([][]string{{"header"}})
	assert.False(t, isRate)
	assert.Equal(t, 0.0, ratio)
}

func TestIsNumericCell(t *testing.T) {
	assert.True(t, isNumericCell("1,000"))
	assert.True(t, isNumericCell("12.5%"))
	assert.True(t, isNumericCell("¥500"))
	assert.False(t, isNumericCell("不适用"))
	assert.False(t, isNumericCell(""))
}

func TestTableExporter_WriteAndMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	exporter := newTableExporter(dir)
	doc := &domain.PolicyDocument{ID: "doc-1", ProductID: "FY001", Filename: "fuyao.pdf"}

	rows := [][]string{
		{"年龄", "现金价值"},
		{"30", "1000"},
		{"40", "2000"},
	}
	el := element{pageStart: 3, pageEnd: 4}

	rt, err := exporter.export(doc, el, rows)
	require.NoError(t, err)
	assert.NotEmpty(t, rt.UUID)
	assert.Equal(t, 2, rt.RowCount)
	assert.Equal(t, 2, rt.ColCount)
	assert.Equal(t, domain.TableTypeRate, rt.TableType)

	csvBytes, err := os.ReadFile(rt.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(csvBytes), "现金价值")
	assert.Contains(t, string(csvBytes), "1000")

	metaBytes, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	var records []domain.RateTableMetadataRecord
	require.NoError(t, json.Unmarshal(metaBytes, &records))
	require.Len(t, records, 1)
	assert.Equal(t, rt.UUID, records[0].UUID)
	assert.Equal(t, "fuyao.pdf", records[0].SourcePDF)
	assert.Equal(t, [2]int{3, 4}, records[0].PageRange)
}

func TestTableExporter_AppendsToExistingMetadata(t *testing.T) {
	dir := t.TempDir()
	exporter := newTableExporter(dir)
	doc := &domain.PolicyDocument{ID: "doc-1", ProductID: "FY001", Filename: "fuyao.pdf"}
	rows := [][]string{{"年龄", "现金价值"}, {"30", "1000"}}

	_, err := exporter.export(doc, element{}, rows)
	require.NoError(t, err)
	_, err = exporter.export(doc, element{}, rows)
	require.NoError(t, err)

	metaBytes, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	var records []domain.RateTableMetadataRecord
	require.NoError(t, json.Unmarshal(metaBytes, &records))
	assert.Len(t, records, 2)
}
