package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/core/domain"
)

var ingestDocType string

var ingestCmd = &cobra.Command{
	Use:   "ingest [product-id] [local-path]",
	Short: "Ingest a verified policy document",
	Long: `Parses a verified PDF, chunks and enriches it, embeds the chunks,
and upserts them into the dense vector store and rate-table store. The
document is attested VERIFIED by the operator invoking this command;
re-ingesting the same path deletes its prior chunks and rate tables first.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the sparse index over every verified document",
	Long: `Re-ingests every VERIFIED document and rebuilds the BM25 sparse
index from scratch over the resulting chunk set, since the sparse index has
no incremental-update path.`,
	RunE: runReindex,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocType, "doc-type", string(domain.DocTypeClause), "document type (clause, manual, rate-table)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	productID, localPath := args[0], args[1]
	doc := &domain.PolicyDocument{
		ID:                 documentIDFromPath(localPath),
		ProductID:          productID,
		DocType:            domain.DocType(ingestDocType),
		LocalPath:          localPath,
		VerificationStatus: domain.StatusVerified,
	}

	chunks, err := ingestionService.IngestDocument(context.Background(), doc)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %s: %d chunks\n", doc.ID, len(chunks))
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	ctx := context.Background()
	docs, err := documentStore.ListByStatus(ctx, domain.StatusVerified)
	if err != nil {
		return fmt.Errorf("listing verified documents: %w", err)
	}

	var all []domain.PolicyChunk
	for i := range docs {
		chunks, err := ingestionService.IngestDocument(ctx, &docs[i])
		if err != nil {
			return fmt.Errorf("reindex %s: %w", docs[i].ID, err)
		}
		all = append(all, chunks...)
	}

	if err := ingestionService.Reindex(ctx, all); err != nil {
		return fmt.Errorf("rebuilding sparse index: %w", err)
	}

	cmd.Printf("Reindexed %d documents, %d chunks\n", len(docs), len(all))
	return nil
}

// documentIDFromPath derives a stable document id from a local file path
// for single-document CLI ingestion, where no discovery layer has already
// assigned one.
func documentIDFromPath(localPath string) string {
	base := filepath.Base(localPath)
	return "doc-" + strings.TrimSuffix(base, filepath.Ext(base))
}
