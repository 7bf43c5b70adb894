package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"postqueue/internal/ports"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// CronSecret guards the trigger route; the route is not mounted when empty.
	CronSecret     string
	AllowedOrigins []string
	Metrics        http.Handler
	Health         func(ctx context.Context) error
}

type Server struct {
	router *chi.Mux
}

func NewServer(sched ports.SchedulingAPI, trigger ports.Trigger, opts Options) *Server {
	h := &handlers{sched: sched, trigger: trigger}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", userHeader},
			MaxAge:         300,
		}),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/scheduled-posts", h.schedule)
			r.Get("/scheduled-posts", h.list)
			r.Delete("/scheduled-posts/{id}", h.cancel)
			r.Patch("/scheduled-posts/{id}", h.reschedule)
			r.Get("/scheduled-posts/{id}/failure", h.failure)
		})

		if opts.CronSecret != "" && trigger != nil {
			r.With(requireBearer(opts.CronSecret)).Post("/cron/process-due", h.processDue)
		}
	})

	return &Server{router: r}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on port until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run(port int) error {
	addr := fmt.Sprintf(":%d", port)

	httpServer := http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		done <- httpServer.Shutdown(ctx)
	}()

	log.Info().Msgf("server serving on port %d", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
