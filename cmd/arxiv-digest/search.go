package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/config"
	"github.com/pdiddy/arxiv-digest/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List the papers a run would pick up",
	Long: `Search runs discovery only: it queries arXiv for papers matching the
configured keywords within the lookback window, deduplicates them, and prints
them newest first. Nothing is downloaded or delivered.`,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := bindSearchFlags(cmd); err != nil {
		return err
	}
	cfg := config.Decode(viper.GetViper()).Search
	if err := config.ValidateSearch(cfg); err != nil {
		return err
	}

	svc, err := newDiscovery(cfg, logger)
	if err != nil {
		return err
	}
	papers := svc.Discover(cmd.Context(), cfg.Query())

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := search.FormatJSON(papers, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
		return nil
	}
	search.FormatTable(papers, cmd.OutOrStdout())
	return nil
}
