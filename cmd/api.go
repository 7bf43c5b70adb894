package cmd

import (
	"context"
	"postqueue/internal/api"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.HTTP.CronSecret == "" {
				log.Warn().Msg("CRON_SECRET is empty, process-due route disabled")
			}

			server := api.NewServer(a.scheduler, a.processor, api.Options{
				CronSecret:     a.cfg.HTTP.CronSecret,
				AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
				Metrics:        a.metrics,
				Health:         a.redis.Ping,
			})
			return server.Run(port)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}
