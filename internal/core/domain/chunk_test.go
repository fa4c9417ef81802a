package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validChunk() PolicyChunk {
	return PolicyChunk{
		ID:          "doc-1#0",
		DocumentID:  "doc-1",
		ChunkIndex:  0,
		Content:     "[section: 保险责任]\n\n我们承担给付责任。",
		Company:     "平安人寿",
		ProductCode: "P001",
		ProductName: "福瑶年金",
		DocType:     DocTypeClause,
		Level:       1,
		Category:    CategoryLiability,
	}
}

func TestPolicyChunk_Validate_OK(t *testing.T) {
	c := validChunk()
	assert.NoError(t, c.Validate())
}

func TestPolicyChunk_Validate_MissingContext(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PolicyChunk)
	}{
		{"missing company", func(c *PolicyChunk) { c.Company = "" }},
		{"missing product code", func(c *PolicyChunk) { c.ProductCode = "" }},
		{"missing product name", func(c *PolicyChunk) { c.ProductName = "" }},
		{"missing doc type", func(c *PolicyChunk) { c.DocType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
		})
	}
}

func TestPolicyChunk_Validate_TableExclusivity(t *testing.T) {
	c := validChunk()
	c.IsTable = true
	c.TableData = nil
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c2 := validChunk()
	c2.IsTable = false
	c2.TableData = &TableData{Headers: []string{"age"}}
	assert.ErrorIs(t, c2.Validate(), ErrInvalidInput)

	c3 := validChunk()
	c3.IsTable = true
	c3.TableData = &TableData{Headers: []string{"age"}, Rows: []TableRow{{"age": "30"}}}
	assert.NoError(t, c3.Validate())
}

func TestPolicyChunk_Validate_Level(t *testing.T) {
	for _, lvl := range []int{0, 6, -1} {
		c := validChunk()
		c.Level = lvl
		assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
	}
	for _, lvl := range []int{1, 2, 3, 4, 5} {
		c := validChunk()
		c.Level = lvl
		assert.NoError(t, c.Validate())
	}
}

func TestPolicyChunk_Validate_CategoryTotal(t *testing.T) {
	c := validChunk()
	c.Category = "Unknown"
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	for _, cat := range []Category{CategoryLiability, CategoryExclusion, CategoryProcess, CategoryDefinition, CategoryGeneral} {
		c := validChunk()
		c.Category = cat
		assert.NoError(t, c.Validate())
	}
}

func TestPolicyChunk_KeywordsCSVRoundTrip(t *testing.T) {
	c := validChunk()
	c.Keywords = []string{"保险责任", "给付", "身故"}

	csv := c.KeywordsCSV()
	assert.Equal(t, "保险责任,给付,身故", csv)
	assert.Equal(t, c.Keywords, ParseKeywordsCSV(csv))
	assert.Nil(t, ParseKeywordsCSV(""))
}

func TestPolicyChunk_TableRefsCSVRoundTrip(t *testing.T) {
	c := validChunk()
	c.TableRefs = []string{"uuid-1", "uuid-2"}

	csv := c.TableRefsCSV()
	assert.Equal(t, "uuid-1,uuid-2", csv)
	assert.Equal(t, c.TableRefs, ParseTableRefsCSV(csv))
}
