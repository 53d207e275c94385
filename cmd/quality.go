package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newQualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Runs the read-only quality checks against the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			p, err := pipeline.NewWarehousePipeline(cfg, log, utils.RealTimeProvider{})
			if err != nil {
				return err
			}
			defer p.Close()

			results, err := p.RunQualityChecks()
			if err != nil {
				return err
			}

			printCheckResults(results)
			return nil
		},
	}
}

// printCheckResults writes one human-readable line per check. Findings are
// reported, never acted on.
func printCheckResults(results []pipeline.CheckResult) {
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		line := fmt.Sprintf("%s  %s", status, r.Name)
		if r.Detail != "" {
			line += " (" + r.Detail + ")"
		}
		fmt.Fprintln(os.Stdout, line)
	}
}
