package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/guardview/guardview/internal/config"
	"github.com/guardview/guardview/internal/database"
	"github.com/guardview/guardview/internal/handler"
	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/metrics"
	"github.com/guardview/guardview/internal/middleware"
	"github.com/guardview/guardview/internal/remote"
	"github.com/guardview/guardview/internal/router"
	"github.com/guardview/guardview/internal/selection"
	"github.com/guardview/guardview/internal/service"
	"github.com/guardview/guardview/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "GuardView session and device security server",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting GuardView server")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Remote security API client
	client := remote.NewClient(remote.Config{
		BaseURL:    cfg.Remote.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Remote.Timeout},
	})

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	met := metrics.New(reg)

	// Shared state: store, selection trackers and the mutation gate
	st := store.New()
	st.SetTrendHistory(cfg.Dashboard.TrendHistory)
	sessionSel := selection.NewTracker()
	deviceSel := selection.NewTracker()
	alertSel := selection.NewTracker()
	gate := service.NewGate()

	// Initialize services
	reconcileSvc := service.NewReconcileService(
		st, client, rdb, gate,
		sessionSel, deviceSel, alertSel,
		met, cfg.Redis.PushChannel, cfg.Dashboard.CacheTTL, log,
	)
	bulkSvc := service.NewBulkService(st, client, gate, sessionSel, deviceSel, alertSel, met, log)
	securitySvc := service.NewSecurityService(st, bulkSvc, sessionSel, deviceSel, alertSel, log)
	log.Info().Msg("services initialized")

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first fetch runs before the server accepts traffic so /ready
	// flips as soon as there is reconciled state to serve. A failure here
	// is not fatal: the poller retries.
	if err := reconcileSvc.Fetch(ctx); err != nil {
		log.Warn().Err(err).Msg("initial fetch failed, serving empty state until the next pass")
	}
	reconcileSvc.StartPolling(ctx, cfg.Poll.Interval)
	reconcileSvc.StartPushSubscriber(ctx)
	log.Info().
		Dur("poll_interval", cfg.Poll.Interval).
		Str("push_channel", cfg.Redis.PushChannel).
		Msg("reconciliation workers started")

	// Initialize handlers
	h := handler.New(rdb, log, cfg, securitySvc, reconcileSvc)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, reg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}
