package cmd

import (
	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
	"github.com/botarhythm/my-shopify-ga-app-sub001/report"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the read-only report API and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			db, err := load.NewDuckDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			addr := cfg.Report.Addr
			if addr == "" {
				addr = ":8080"
			}

			return report.NewServer(db, log).Run(addr)
		},
	}
}
