package cmd

import (
	"context"
	"os"
	"os/signal"
	"postqueue/internal/worker"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var interval time.Duration

	var command = &cobra.Command{
		Use:   "worker",
		Short: "Process due posts on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if interval <= 0 {
				interval = a.cfg.Scheduler.TickInterval
			}
			return worker.New(a.processor, worker.Config{Interval: interval}).Run(ctx)
		},
	}

	command.Flags().DurationVar(&interval, "interval", 0, "Tick interval, defaults to SCHEDULER_TICK_INTERVAL")
	return command
}
