package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDocument_Fields(t *testing.T) {
	now := time.Now()
	doc := PolicyDocument{
		ID:                 "doc-123",
		ProductID:          "prod-456",
		DocType:            DocTypeClause,
		Filename:           "clause.pdf",
		LocalPath:          "/root/raw/平安/P001/clause.pdf",
		SourceURL:          "https://example.com/clause.pdf",
		FileHash:           "deadbeef",
		FileSize:           1024,
		DownloadedAt:       now,
		VerificationStatus: StatusPending,
		ReviewerNotes:      "",
		PDFLinks:           map[DocType]string{DocTypeClause: "https://example.com/clause.pdf"},
	}

	assert.Equal(t, "doc-123", doc.ID)
	assert.Equal(t, DocTypeClause, doc.DocType)
	assert.Equal(t, int64(1024), doc.FileSize)
	assert.Equal(t, now, doc.DownloadedAt)
}

func TestPolicyDocument_CanIngest(t *testing.T) {
	tests := []struct {
		name   string
		status VerificationStatus
		want   bool
	}{
		{"pending cannot ingest", StatusPending, false},
		{"verified can ingest", StatusVerified, true},
		{"rejected cannot ingest", StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := PolicyDocument{VerificationStatus: tt.status}
			assert.Equal(t, tt.want, doc.CanIngest())
		})
	}
}
