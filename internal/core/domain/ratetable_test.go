package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateTable_ToMetadataRecord(t *testing.T) {
	now := time.Now()
	rt := RateTable{
		UUID:        "uuid-1",
		DocumentID:  "doc-1",
		PageStart:   3,
		PageEnd:     4,
		Headers:     []string{"年龄", "费率"},
		RowCount:    10,
		ColCount:    2,
		CSVPath:     "/assets/tables/uuid-1.csv",
		ProductCode: "P001",
		TableType:   TableTypeRate,
		CreatedAt:   now,
	}

	rec := rt.ToMetadataRecord()
	assert.Equal(t, "uuid-1", rec.UUID)
	assert.Equal(t, [2]int{3, 4}, rec.PageRange)
	assert.Equal(t, TableTypeRate, rec.TableType)
	assert.Equal(t, 10, rec.RowCount)
	assert.Equal(t, []string{"年龄", "费率"}, rec.Headers)
}
