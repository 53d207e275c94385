package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newIngestCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pulls all sources incrementally into the staging tables",
		Long: "Pulls GA4, Google Ads, Shopify and Square into the staging tables. " +
			"Without flags the range starts at the earliest staging watermark and ends today.",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			rows, err := p.Ingest(start, end)
			if err != nil {
				log.Error(fmt.Sprintf("Ingest finished with errors: %v. Upserted %d rows", err, rows))
				return err
			}
			log.Info(fmt.Sprintf("Ingest completed without errors. Upserted %d rows", rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD), defaults to the earliest watermark")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD), defaults to today")

	return cmd
}
