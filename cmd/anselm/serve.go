package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/anselm/internal/api"
	"github.com/MikeSquared-Agency/anselm/internal/dataset"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			pipeline, err := cfg.Pipeline()
			if err != nil {
				return err
			}
			splitOpts, err := cfg.Split()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := slog.Default()
			svc, err := connectServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			srv := api.NewServer(api.Config{
				Port:     cfg.Port,
				APIToken: cfg.APIToken,
				Pipeline: pipeline,
				Split:    splitOpts,
			}, svc.publisher(), logger)

			switch {
			case reportPath != "":
				report, err := dataset.LoadRunReport(reportPath)
				if err != nil {
					logger.Warn("could not load run report", "path", reportPath, "error", err)
				} else {
					srv.SetLastReport(report)
				}
			case svc.db != nil:
				report, err := svc.db.LatestRun(ctx)
				if err != nil {
					logger.Warn("could not load latest run", "error", err)
				} else if report != nil {
					srv.SetLastReport(report)
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			if svc.events != nil {
				if err := svc.events.Subscribe(dataset.SubjectBuilt, srv.HandleRunEvent); err != nil {
					return err
				}
				if err := svc.events.Publish("anselm.agent.registered", map[string]any{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
					"port":      cfg.Port,
				}); err != nil {
					logger.Warn("failed to publish registration", "error", err)
				}
			}
			logger.Info("anselm ready", "port", cfg.Port)

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "report.json to show on the status endpoint")
	return cmd
}
