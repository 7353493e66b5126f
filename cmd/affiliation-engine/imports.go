// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/internal/store"
)

var importAuthorsCmd = &cobra.Command{
	Use:   "import-authors",
	Short: "Replace the internal author registry",
	Long: `Import-authors replaces the internal author registry with the authors
read from a ';'-delimited CSV (header row skipped, up to four surname and
firstname column pairs per row) or from a YAML list of surname/firstname
records. Authors whose normalized names collide are stored once.`,
	RunE: runImportAuthors,
}

var importRecordsCmd = &cobra.Command{
	Use:   "import-records",
	Short: "Import publication records from a repository CSV export",
	Long: `Import-records reads a ';'-delimited CSV with the columns
resource_id, dc.contributor.author, utb.wos.affiliation and
utb.scopus.affiliation. Multi-valued cells separate values with "||".
Existing records keep their processing state.`,
	RunE: runImportRecords,
}

func init() {
	importAuthorsCmd.Flags().String("csv", "", "authors CSV file")
	importAuthorsCmd.Flags().String("yaml", "", "authors YAML file")
	importAuthorsCmd.MarkFlagsMutuallyExclusive("csv", "yaml")
	importAuthorsCmd.MarkFlagsOneRequired("csv", "yaml")

	importRecordsCmd.Flags().String("csv", "", "records CSV file")
	_ = importRecordsCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(importAuthorsCmd, importRecordsCmd)
}

func runImportAuthors(cmd *cobra.Command, args []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")
	yamlPath, _ := cmd.Flags().GetString("yaml")

	var (
		authors []registry.Author
		err     error
	)
	if csvPath != "" {
		authors, err = registry.LoadCSVFile(csvPath)
	} else {
		authors, err = loadAuthorsYAML(yamlPath)
	}
	if err != nil {
		return err
	}

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ReplaceAuthors(cmd.Context(), authors)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d internal authors\n", n)
	return nil
}

func loadAuthorsYAML(path string) ([]registry.Author, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening authors file: %w", err)
	}
	defer f.Close()
	return registry.LoadYAML(f)
}

func runImportRecords(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("csv")
	pubs, err := store.ReadPublicationsCSVFile(path)
	if err != nil {
		return err
	}

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportPublications(cmd.Context(), pubs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
	return nil
}
