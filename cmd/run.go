package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newRunCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the full pipeline: ingest, transform, quality",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all {
				return fmt.Errorf("nothing to run; pass --all for the full pipeline")
			}

			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			secrets, err := config.NewSecretsFromEnv()
			if err != nil {
				return err
			}

			p, err := pipeline.NewPipeline(cfg, secrets, log, utils.RealTimeProvider{})
			if err != nil {
				return err
			}
			defer p.Close()

			rows, err := p.Ingest("", "")
			if err != nil {
				log.Error(fmt.Sprintf("Ingest finished with errors: %v. Upserted %d rows", err, rows))
				return err
			}
			log.Info(fmt.Sprintf("Ingest completed. Upserted %d rows", rows))

			if err := p.Transform(); err != nil {
				return err
			}

			results, err := p.RunQualityChecks()
			if err != nil {
				return err
			}
			printCheckResults(results)

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run ingest, transform and quality in sequence")

	return cmd
}
