// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/affiliation-engine/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record counts per stage and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(loadConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.Status(cmd.Context())
		if err != nil {
			return err
		}
		report.Print(cmd.OutOrStdout())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attribution results as CSV, JSON or YAML",
	Long: `Export writes one row per record with its statuses, attributed internal
authors, faculties and departments. CSV cells separate list values with "||".`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", store.FormatCSV, "output format: csv, json or yaml")
	exportCmd.Flags().Bool("only-llm", false, "export only records processed by the LLM stage")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(statusCmd, exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	onlyLLM, _ := cmd.Flags().GetBool("only-llm")
	output, _ := cmd.Flags().GetString("output")

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := st.Export(cmd.Context(), w, format, onlyLLM)
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, output)
	}
	return nil
}
