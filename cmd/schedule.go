package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/pipeline"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Runs the pipeline on the configured cron schedules",
		Long: "Blocks and runs the daily ingest+transform, weekly quality and monthly " +
			"full transform on the cron expressions from the schedule config section. " +
			"Missed runs are not replayed.",
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

			scheduler := cron.New()

			if cfg.Schedule.Daily != "" {
				_, err := scheduler.AddFunc(cfg.Schedule.Daily, func() {
					rows, err := p.Ingest("", "")
					if err != nil {
						log.Error(fmt.Sprintf("Scheduled ingest finished with errors: %v. Upserted %d rows", err, rows))
					}
					if err := p.Transform(); err != nil {
						log.Error(fmt.Sprintf("Scheduled transform failed: %v", err))
					}
				})
				if err != nil {
					return fmt.Errorf("invalid daily schedule %q: %w", cfg.Schedule.Daily, err)
				}
			}

			if cfg.Schedule.Weekly != "" {
				_, err := scheduler.AddFunc(cfg.Schedule.Weekly, func() {
					results, err := p.RunQualityChecks()
					if err != nil {
						log.Error(fmt.Sprintf("Scheduled quality checks failed: %v", err))
						return
					}
					printCheckResults(results)
				})
				if err != nil {
					return fmt.Errorf("invalid weekly schedule %q: %w", cfg.Schedule.Weekly, err)
				}
			}

			if cfg.Schedule.Monthly != "" {
				_, err := scheduler.AddFunc(cfg.Schedule.Monthly, func() {
					if err := p.Transform(); err != nil {
						log.Error(fmt.Sprintf("Scheduled monthly transform failed: %v", err))
					}
				})
				if err != nil {
					return fmt.Errorf("invalid monthly schedule %q: %w", cfg.Schedule.Monthly, err)
				}
			}

			if len(scheduler.Entries()) == 0 {
				return fmt.Errorf("no schedules configured")
			}

			log.Info("Scheduler started", "entries", len(scheduler.Entries()))
			scheduler.Start()
			defer scheduler.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info("Scheduler stopping")
			return nil
		},
	}
}
