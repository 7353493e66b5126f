// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/affiliation"
	"github.com/pdiddy/affiliation-engine/internal/faculty"
	"github.com/pdiddy/affiliation-engine/internal/heuristics"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

var heuristicsCmd = &cobra.Command{
	Use:   "heuristics",
	Short: "Run the heuristic stage over pending records",
	Long: `Heuristics parses the WoS and Scopus affiliations of every record not
processed yet, matches internal authors against the registry, resolves
faculties and departments, and flags records that need the LLM stage.`,
	RunE: runHeuristics,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <affiliation>",
	Short: "Run the heuristic stage on one affiliation string",
	Long: `Resolve runs the heuristic stage on a single WoS affiliation string (or a
Scopus one with --scopus) against the stored registry and prints the result
as JSON. Nothing is written to the store.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	heuristicsCmd.Flags().Int("limit", 0, "maximum records to process (0 = all)")
	heuristicsCmd.Flags().Int("batch-size", 0, "records per batch (default heuristics.batch_size)")
	heuristicsCmd.Flags().Bool("reprocess-errors", false, "also process records whose last attempt failed")

	resolveCmd.Flags().Bool("scopus", false, "treat the argument as a Scopus affiliation")
	resolveCmd.Flags().StringSlice("author", nil, "contributor names copied into the result")

	rootCmd.AddCommand(heuristicsCmd, resolveCmd)
}

func newEngine(cfg types.HeuristicsConfig) *heuristics.Engine {
	parser := affiliation.NewParser(affiliation.NewDetector(cfg.Keywords))
	return heuristics.NewEngine(parser, faculty.DefaultResolver(), cfg.MatchThreshold)
}

func runHeuristics(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	limit, _ := cmd.Flags().GetInt("limit")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.Heuristics.BatchSize
	}
	reprocess, _ := cmd.Flags().GetBool("reprocess-errors")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := heuristics.NewRunner(newEngine(cfg.Heuristics), st, registry.NewCache(st), logger)
	summary, err := runner.Run(cmd.Context(), heuristics.Options{
		BatchSize:       batchSize,
		Limit:           limit,
		ReprocessErrors: reprocess,
	}, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nheuristics: %d processed, %d need llm, %d failed\n",
		summary.Processed, summary.NeedsLLM, summary.Failed)
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) failed the heuristic stage", summary.Failed)
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	scopus, _ := cmd.Flags().GetBool("scopus")
	authors, _ := cmd.Flags().GetStringSlice("author")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := registry.NewCache(st).Get(cmd.Context())
	if err != nil {
		return err
	}
	logger.Debug("registry loaded", zap.Int("authors", len(reg)))

	pub := types.Publication{ResourceID: "cli", Contributors: authors}
	if scopus {
		pub.ScopusAffiliations = args
	} else {
		pub.WoSAffiliations = args
	}
	res := newEngine(cfg.Heuristics).Process(pub, reg)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
