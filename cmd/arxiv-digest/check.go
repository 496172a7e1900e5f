package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-digest/internal/artifact"
	"github.com/pdiddy/arxiv-digest/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and show effective settings",
	Long: `Check validates the configuration the way run and schedule do, reports
which delivery channels are enabled and whether a PDF rasterizer is installed,
and prints the effective settings as YAML with credentials masked.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	s := config.Decode(viper.GetViper())
	verr := config.Validate(s)

	fmt.Fprintf(w, "Source:     %s\n", s.Search.Source)
	fmt.Fprintf(w, "Keywords:   %v\n", s.Search.Keywords)
	fmt.Fprintf(w, "Email:      %s\n", enabledString(s.Email.Enabled))
	fmt.Fprintf(w, "Chat:       %s\n", enabledString(s.Chat.Enabled))
	if r, err := artifact.DetectRasterizer(); err != nil {
		fmt.Fprintf(w, "Rasterizer: none (%v)\n", err)
	} else {
		fmt.Fprintf(w, "Rasterizer: %s\n", r.Name())
	}
	fmt.Fprintln(w)

	data, err := yaml.Marshal(s.Redacted())
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	fmt.Fprint(w, string(data))

	if verr != nil {
		fmt.Fprintln(w)
		return verr
	}
	fmt.Fprintln(w, "\nConfiguration OK")
	return nil
}

func enabledString(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
