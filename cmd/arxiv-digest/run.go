package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the digest pipeline once",
	Long: `Run discovers new papers, then for each one downloads the PDF, renders a
first-page preview, summarizes it, draws the digest image, and delivers it on
every enabled channel. A paper that fails does not stop the run.`,
	RunE: runOnce,
}

func init() {
	addSearchFlags(runCmd)
	runCmd.Flags().String("report", "", "write the run report as YAML to this file")

	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := newPipeline(ctx, s, nil, logger)
	if err != nil {
		return err
	}

	report := p.Run(ctx, s.Search.Query())
	printReport(cmd.OutOrStdout(), report)

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := writeReport(path, report); err != nil {
			return err
		}
	}
	if report.HasFailures() {
		return fmt.Errorf("%d paper(s) not delivered", report.Failed)
	}
	return nil
}

func printReport(w io.Writer, r types.Report) {
	fmt.Fprintf(w, "Run %s (%s): %d discovered, %d delivered, %d failed in %s\n",
		r.RunID, r.Source, r.Discovered, r.Succeeded, r.Failed, r.Duration().Round(time.Second))
	for _, o := range r.Outcomes {
		status := "ok"
		switch {
		case !o.Delivered():
			status = "FAILED"
		case o.Partial():
			status = "partial"
		}
		fmt.Fprintf(w, "  %-8s %-12s %-15s %s\n", status, o.PaperID, o.Stage, o.Title)
	}
}

func writeReport(path string, r types.Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
