package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shehryarbajwa/framebridge/internal/api"
	"github.com/shehryarbajwa/framebridge/internal/metrics"
	"github.com/shehryarbajwa/framebridge/internal/proxy"
	"github.com/shehryarbajwa/framebridge/internal/ratelimit"
	"github.com/shehryarbajwa/framebridge/internal/session"
)

func newHubCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run the window hub",
		Long: `Run the window hub: a registry of remote windows and their tree, plus a
websocket relay between them. A window whose relay connection drops is closed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Hub.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runHub(ctx, a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address; overrides HUB_ADDR")

	return cmd
}

func runHub(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting framebridge hub", zap.String("version", version))

	m := metrics.New()

	sessions := session.NewManager(session.Config{
		MaxWindowsPerTop: cfg.Hub.MaxWindowsPerTop,
		Retention:        cfg.Hub.ClosedRetention,
	}, m, logger.Named("session"))

	var apiLimiter, relayLimiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		apiLimiter = ratelimit.NewLimiter(ratelimit.PerHour(cfg.RateLimit.RequestsPerHour), cfg.RateLimit.Burst)
		relayLimiter = ratelimit.NewLimiter(rate.Limit(cfg.RateLimit.RelayPerSecond), cfg.RateLimit.RelayBurst)
		logger.Info("Rate limiting enabled",
			zap.Int("requests_per_hour", cfg.RateLimit.RequestsPerHour),
			zap.Float64("relay_per_second", cfg.RateLimit.RelayPerSecond))
	}

	relay := proxy.NewServer(sessions, relayLimiter, m, logger.Named("relay"))
	router := api.NewHandler(sessions, logger.Named("api")).SetupRoutes(relay, apiLimiter, m)

	// No write timeout: relay connections are long lived
	srv := &http.Server{
		Addr:        cfg.Hub.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Hub listening", zap.String("addr", cfg.Hub.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sessions.RunReaper(ctx, cfg.Hub.ReapInterval)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down hub")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Hub.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Hub stopped cleanly")
	return nil
}
