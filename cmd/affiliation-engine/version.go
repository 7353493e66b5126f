// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/affiliation-engine/internal/heuristics"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of affiliation-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("affiliation-engine %s (heuristics %s)\n", version, heuristics.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
