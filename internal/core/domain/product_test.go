package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_Fields(t *testing.T) {
	now := time.Now()
	p := Product{
		ID:          "prod-1",
		ProductCode: "P001",
		Name:        "福瑶年金",
		Company:     "平安人寿",
		Category:    "life",
		PublishTime: now,
	}

	assert.Equal(t, "P001", p.ProductCode)
	assert.Equal(t, "平安人寿", p.Company)
	assert.Equal(t, now, p.PublishTime)
}
