package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newBackfillCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-pulls a historical date range in bounded windows",
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

			rows, err := p.Backfill(start, end)
			if err != nil {
				log.Error(fmt.Sprintf("Backfill aborted: %v. Upserted %d rows before the failure", err, rows))
				return err
			}
			log.Info(fmt.Sprintf("Backfill completed without errors. Upserted %d rows", rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
