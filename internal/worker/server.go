package worker

import (
	"context"
	"postqueue/internal/ports"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Interval time.Duration
}

// Worker drives the trigger on a fixed interval, starting with an immediate run.
type Worker struct {
	trigger  ports.Trigger
	interval time.Duration
}

func New(trigger ports.Trigger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Worker{trigger: trigger, interval: cfg.Interval}
}

// Run blocks until ctx is cancelled. A failed run is logged and the loop continues.
func (w *Worker) Run(ctx context.Context) error {
	log.Ctx(ctx).Info().Dur("interval", w.interval).Msg("worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.tick(ctx)

		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	report, err := w.trigger.ProcessDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Ctx(ctx).Error().Err(err).Msg("process due posts")
		}
		return
	}
	if report.Due == 0 {
		log.Ctx(ctx).Debug().Msg("no due posts")
		return
	}
	log.Ctx(ctx).Info().
		Int("due", report.Due).
		Int("published", report.Published).
		Int("retried", report.Retried).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("dropped", report.Dropped).
		Int("errors", report.Errors).
		Msg("processed due posts")
}
