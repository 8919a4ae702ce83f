package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"busboard.hk/internal/app"
	"busboard.hk/internal/appconf"
	"busboard.hk/internal/board"
	"busboard.hk/internal/clock"
	"busboard.hk/internal/etabus"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/restapi"
	"busboard.hk/internal/retry"
	"busboard.hk/internal/transit"
	"busboard.hk/internal/webui"
)

const (
	// writeTimeout covers a full resolution cycle including catalog retries.
	writeTimeout       = 60 * time.Second
	shutdownTimeout    = 30 * time.Second
	cacheStatsInterval = 30 * time.Second
)

// ParseAddrList splits a comma-separated flag value into trimmed entries.
func ParseAddrList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// BuildApplication wires the upstream client, the resolution pipeline and the
// board from cfg.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger := logging.NewLogger(os.Stdout, level, cfg.Env == appconf.Production)
	clk := clock.RealClock{}
	m := metrics.NewWithLogger(logger)

	upstream := etabus.New(etabus.Options{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.RequestTimeout,
		RatePerSecond: cfg.UpstreamRatePerSecond,
		Burst:         cfg.UpstreamBurst,
		Logger:        logger,
		Metrics:       m,
		Clock:         clk,
	})

	svc := transit.NewService(transit.Options{
		Upstream: upstream,
		Clock:    clk,
		Logger:   logger,
		Metrics:  m,
		Policies: transit.Policies{
			Catalog: retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
			Probe:   retry.Policy{Attempts: cfg.ProbeAttempts, Delay: cfg.RetryDelay},
			Stop:    retry.Policy{Attempts: cfg.StopAttempts, Delay: cfg.RetryDelay},
			ETA:     retry.Policy{Attempts: cfg.ETAAttempts, Delay: cfg.RetryDelay},
		},
		CatalogTTL:    cfg.CatalogTTL,
		MaxConcurrent: cfg.MaxConcurrentFetches,
	})
	m.StartCacheStatsCollector(svc.CacheLen, cacheStatsInterval)

	return &app.Application{
		Config:   cfg,
		Logger:   logger,
		Clock:    clk,
		Metrics:  m,
		Upstream: upstream,
		Transit:  svc,
		Board: board.New(board.Options{
			Resolver: svc,
			Clock:    clk,
			Logger:   logger,
			Metrics:  m,
			Language: cfg.Language,
		}),
	}, nil
}

// CreateServer builds the HTTP server. The caller must call api.Shutdown.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webui.NewWebUI(coreApp).SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      api.Wrap(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// warmCatalog loads the route catalog so /healthz turns ready without
// waiting for the first search.
func warmCatalog(ctx context.Context, coreApp *app.Application) {
	if err := coreApp.Board.LoadCatalog(ctx); err != nil {
		if ctx.Err() == nil {
			logging.LogError(coreApp.Logger, "initial catalog load failed", err)
		}
		return
	}
	logging.LogOperation(coreApp.Logger, "catalog_loaded",
		slog.Int("routes", len(coreApp.Board.Catalog())))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	defer coreApp.Metrics.Shutdown()
	defer api.Shutdown()

	warmCtx, cancelWarm := context.WithCancel(ctx)
	defer cancelWarm()
	go warmCatalog(warmCtx, coreApp)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()),
			slog.String("upstream", coreApp.Config.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
