// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/llm"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Run the LLM stage over records the heuristics could not settle",
	Long: `LLM sends every record flagged by the heuristic stage to a generative
backend (OpenAI-compatible, Ollama or Anthropic), validates the structured
answer and keeps only authors present in the internal registry. Results are
merged with the heuristic attribution.`,
	RunE: runLLM,
}

func init() {
	llmCmd.Flags().Int("limit", 0, "maximum records to process (0 = all)")
	llmCmd.Flags().Int("batch-size", 0, "records per batch (default llm.batch_size)")
	llmCmd.Flags().String("provider", "", "preferred backend: openai, ollama or anthropic (default llm.provider)")
	llmCmd.Flags().Bool("reprocess-errors", false, "also process records whose last attempt failed")
	llmCmd.Flags().Int("workers", 0, "records processed concurrently (default llm.workers)")

	rootCmd.AddCommand(llmCmd)
}

func runLLM(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.LLM.Provider = types.Provider(p)
	}
	limit, _ := cmd.Flags().GetInt("limit")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.LLM.BatchSize
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.LLM.Workers
	}
	reprocess, _ := cmd.Flags().GetBool("reprocess-errors")

	ctx := cmd.Context()
	b, err := backend.Select(ctx, cfg.LLM, nil, logger)
	if err != nil {
		return err
	}
	logger.Info("backend selected", zap.String("backend", b.Name()))

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	processor := llm.NewProcessor(b, cfg.LLM.MaxCandidates, logger)
	runner := llm.NewRunner(processor, st, registry.NewCache(st), logger)
	summary, err := runner.Run(ctx, llm.Options{
		BatchSize:       batchSize,
		Limit:           limit,
		ReprocessErrors: reprocess,
		Workers:         workers,
		BatchPause:      cfg.LLM.BatchPause,
	}, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nllm (%s): %d processed, %d invalid, %d failed, %d names rejected\n",
		b.Name(), summary.Processed, summary.Invalid, summary.Failed, summary.Rejected)
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) failed the llm stage", summary.Failed+summary.Invalid)
	}
	return nil
}
