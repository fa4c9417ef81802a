package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

var (
	lookupCompany string
	lookupTopK    int
)

var lookupProductCmd = &cobra.Command{
	Use:   "lookup-product [name]",
	Short: "Fuzzy-match a product by name",
	Long:  `Runs lookup_product: fuzzy name match over the Product table, optionally filtered by company. Does not touch the vector index.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLookupProduct,
}

func init() {
	lookupProductCmd.Flags().StringVar(&lookupCompany, "company", "", "filter by insurer")
	lookupProductCmd.Flags().IntVarP(&lookupTopK, "top-k", "n", 5, "maximum number of results")
	rootCmd.AddCommand(lookupProductCmd)
}

func runLookupProduct(cmd *cobra.Command, args []string) error {
	if toolService == nil {
		return errors.New("tool service not configured")
	}

	results, err := toolService.LookupProduct(context.Background(), driving.LookupProductInput{
		ProductName: args[0],
		Company:     lookupCompany,
		TopK:        lookupTopK,
	})
	if err != nil {
		return fmt.Errorf("lookup_product failed: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("No matching products.")
		return nil
	}

	for i := range results {
		cmd.Printf("  [%d] %s (%s) — %s\n", i+1, results[i].ProductName, results[i].ProductCode, results[i].Company)
	}
	return nil
}
