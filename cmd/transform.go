package cmd

import (
	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newTransformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Rebuilds the core and mart tables from the staging layer",
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

			return p.Transform()
		},
	}
}
