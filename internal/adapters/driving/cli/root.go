// Package cli wires the cobra command tree that drives the tool and
// ingestion services from a terminal. It is a thin shell: all retrieval and
// indexing logic lives behind the driving ports it dispatches to.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/core/ports/driving"
	"github.com/policyrag/policyrag/internal/logger"
)

var version = "dev"

var (
	toolService      driving.ToolService
	ingestionService driving.IngestionService
	documentStore    driven.DocumentStore
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "policyrag",
	Short: "Hybrid retrieval over verified insurance policy clauses",
	Long: `policyrag ingests verified insurance policy PDFs into a hybrid
dense+sparse index and exposes four retrieval tools (search_policy_clause,
check_exclusion_risk, calculate_surrender_value_logic, lookup_product) both
as CLI subcommands and over the Model Context Protocol.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug output from the retrieval pipeline")
}

// Configure wires the driving ports the CLI commands dispatch to. Call
// before Execute.
func Configure(tools driving.ToolService, ingestion driving.IngestionService, documents driven.DocumentStore) {
	toolService = tools
	ingestionService = ingestion
	documentStore = documents
}

// SetVersion overrides the version string the "version" subcommand prints.
// Call before Execute; cmd/policyrag sets this from a build-time ldflags var.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
