package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pdfsplit",
	Short: "Batch PDF splitter with optional Ghostscript compression",
	Long: `Pdfsplit partitions large PDF files into smaller pieces and optionally
compresses each piece with Ghostscript.

Features:
  - Split by part count, pages per part, or target output size
  - Repair of damaged files before splitting
  - Parallel compression with size presets
  - Remote sources downloaded and staged automatically`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pdfsplit/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pdfsplit home directory (default: ~/.pdfsplit)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
