package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyrag/policyrag/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [product-id] [local-path]", ingestCmd.Use)
}

func TestIngestCmd_RequiresTwoArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "prod-1"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestIngestCmd_ExecutesWithVerifiedDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := &fakeIngestionService{chunks: []domain.PolicyChunk{{}, {}}}
	ingestionService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "prod-1", "/tmp/fuyao.pdf"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2 chunks")
	require.Len(t, fake.ingested, 1)
	assert.Equal(t, "prod-1", fake.ingested[0].ProductID)
	assert.Equal(t, domain.StatusVerified, fake.ingested[0].VerificationStatus)
	assert.Equal(t, "doc-fuyao", fake.ingested[0].ID)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestionService
	ingestionService = nil
	defer func() { ingestionService = oldService }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "prod-1", "/tmp/x.pdf"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestionService = &fakeIngestionService{err: errFakeService}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "prod-1", "/tmp/x.pdf"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest failed")
}

func TestReindexCmd_Use(t *testing.T) {
	assert.Equal(t, "reindex", reindexCmd.Use)
}

func TestReindexCmd_ReingestsEveryVerifiedDocumentAndRebuilds(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentStore = &fakeDocumentStore{byStatus: []domain.PolicyDocument{
		{ID: "doc-1", VerificationStatus: domain.StatusVerified},
		{ID: "doc-2", VerificationStatus: domain.StatusVerified},
	}}
	fake := &fakeIngestionService{chunks: []domain.PolicyChunk{{}}}
	ingestionService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"reindex"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Len(t, fake.ingested, 2)
	assert.Len(t, fake.reindexed, 2)
	assert.Contains(t, buf.String(), "Reindexed 2 documents, 2 chunks")
}

func TestReindexCmd_DocumentStoreNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentStore = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"reindex"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "document store not configured")
}

func TestDocumentIDFromPath_StripsExtensionAndDirectory(t *testing.T) {
	assert.Equal(t, "doc-fuyao", documentIDFromPath("/a/b/fuyao.pdf"))
	assert.Equal(t, "doc-fuyao", documentIDFromPath("fuyao.pdf"))
}
