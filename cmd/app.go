package cmd

import (
	"context"
	"fmt"
	"net/http"
	"postqueue/internal/config"
	"postqueue/internal/infra/contentdb"
	"postqueue/internal/infra/publisher"
	"postqueue/internal/infra/redisq"
	"postqueue/internal/metrics"
	"postqueue/internal/ports"
	"postqueue/internal/usecase"

	"github.com/rs/zerolog/log"
)

// app holds the wired runtime shared by every long-running command.
type app struct {
	cfg       *config.Config
	redis     *redisq.Client
	scheduler *usecase.Scheduler
	processor *usecase.Processor
	metrics   http.Handler
	closers   []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	a.redis, err = redisq.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.redis.Close)

	gdb, err := contentdb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open content database: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	m, handler, err := metrics.Setup("postqueue")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("setup metrics: %w", err)
	}
	a.metrics = handler

	deps := usecase.Deps{
		Queue:      a.redis,
		Locks:      a.redis,
		Contents:   &contentdb.Store{DB: gdb},
		Metrics:    m,
		Sandbox:    cfg.Scheduler.Sandbox,
		MockPrefix: cfg.Scheduler.MockPrefix,
	}

	var pub ports.Publisher = publisher.NewHTTP(cfg.Publisher)
	if cfg.Scheduler.Sandbox {
		pub = publisher.Sandbox{Next: pub, Prefix: cfg.Scheduler.MockPrefix}
	}

	a.scheduler = &usecase.Scheduler{
		Deps:        deps,
		RecordGrace: cfg.Scheduler.RecordGrace,
		ListWindow:  cfg.Scheduler.ListWindow,
	}
	a.processor = &usecase.Processor{
		Deps:           deps,
		Publisher:      pub,
		Policy:         cfg.Scheduler.Policy(),
		LockTTL:        cfg.Scheduler.LockTTL,
		RecordGrace:    cfg.Scheduler.RecordGrace,
		ArchiveTTL:     cfg.Scheduler.ArchiveTTL,
		PublishTimeout: cfg.Scheduler.PublishTimeout,
		Concurrency:    cfg.Scheduler.Concurrency,
		BatchSize:      cfg.Scheduler.BatchSize,
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close resource")
		}
	}
}
