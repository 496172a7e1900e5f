package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/config"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// addSearchFlags registers the discovery overrides shared by run, schedule
// and search.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("keywords", "", "keywords to search, comma-separated (overrides search.keywords)")
	cmd.Flags().Int("max-results", 0, "results per keyword request (overrides search.max_results)")
	cmd.Flags().Int("days", 0, "lookback window in days (overrides search.lookback_days)")
	cmd.Flags().String("source", "", "discovery source: api or rss (overrides search.source)")
}

var searchFlagKeys = map[string]string{
	"keywords":    "search.keywords",
	"max-results": "search.max_results",
	"days":        "search.lookback_days",
	"source":      "search.source",
}

// bindSearchFlags binds the flags of cmd that were set on the command line.
// Binding happens per command so commands sharing a key do not shadow each
// other.
func bindSearchFlags(cmd *cobra.Command) error {
	for flag, key := range searchFlagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadSettings binds cmd's flags and returns validated settings.
func loadSettings(cmd *cobra.Command) (types.Settings, error) {
	if err := bindSearchFlags(cmd); err != nil {
		return types.Settings{}, err
	}
	return config.Load(viper.GetViper())
}
