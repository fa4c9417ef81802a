package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

var (
	searchCompany     string
	searchProductCode string
	searchProductName string
	searchDocType     string
	searchCategory    string
	searchTopK        int
	searchMinSim      float64
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search verified policy clauses",
	Long: `Runs search_policy_clause: hybrid dense+sparse retrieval over
verified insurance policy clauses, fused by reciprocal rank fusion.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCompany, "company", "", "filter by insurer")
	searchCmd.Flags().StringVar(&searchProductCode, "product-code", "", "filter by product code")
	searchCmd.Flags().StringVar(&searchProductName, "product-name", "", "filter by product name")
	searchCmd.Flags().StringVar(&searchDocType, "doc-type", "", "filter by document type")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "filter by clause category")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 5, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinSim, "min-similarity", -1, "similarity floor (-1 = component default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if toolService == nil {
		return errors.New("tool service not configured")
	}

	results, err := toolService.SearchPolicyClause(context.Background(), driving.SearchPolicyClauseInput{
		Query:         args[0],
		Company:       searchCompany,
		ProductCode:   searchProductCode,
		ProductName:   searchProductName,
		DocType:       searchDocType,
		Category:      searchCategory,
		TopK:          searchTopK,
		MinSimilarity: searchMinSim,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []driving.ClauseResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []driving.ClauseResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].SectionTitle
		if title == "" {
			title = results[i].ChunkID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].SimilarityScore)
		cmd.Printf("      %s | %s\n", results[i].SourceReference.ProductName, results[i].SourceReference.DocumentType)
		if results[i].Content != "" {
			cmd.Printf("      %s\n", truncateRunes(results[i].Content, 120))
		}
		cmd.Println()
	}

	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
