package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/tradesim/internal/config"
	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/engine"
	"github.com/efreitasn/tradesim/internal/exposure"
	"github.com/efreitasn/tradesim/internal/fix"
	"github.com/efreitasn/tradesim/internal/handler"
	"github.com/efreitasn/tradesim/internal/market"
	"github.com/efreitasn/tradesim/internal/service"
	"github.com/efreitasn/tradesim/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Stores and collaborators.
	tradeStore := store.NewTradeStore()
	sink := fix.NewSink()
	gate := exposure.NewGate(cfg.ExposureLimits, cfg.ExposureDefaultLimit)
	instruments := domain.NewInstrumentRegistry(cfg.ISINs)
	feed := market.NewFeed(cfg.ISINs, cfg.TickInterval, cfg.AverageWindow, seed)

	// Execution engine.
	sched := engine.NewScheduler(cfg.Workers)
	rnd := engine.NewRandomizer(seed, engine.RandomizerConfig{
		TransientFailureProb:    cfg.TransientFailureProb,
		PartialFillProb:         cfg.PartialFillProb,
		ConfirmationFailureProb: cfg.ConfirmationFailureProb,
		FailurePauseMin:         cfg.FailurePauseMin,
		FailurePauseMax:         cfg.FailurePauseMax,
		PartialFollowUpMin:      cfg.PartialFollowUpMin,
		PartialFollowUpMax:      cfg.PartialFollowUpMax,
		ConfirmationDelayMin:    cfg.ConfirmationDelayMin,
		ConfirmationDelayMax:    cfg.ConfirmationDelayMax,
	})
	executor := engine.NewExecutor(tradeStore, feed, sink, gate, sched, rnd, engine.Config{
		MaxAttempts:        cfg.MaxAttempts,
		BackoffBase:        cfg.BackoffBase,
		DeviationTolerance: cfg.DeviationTolerance,
		AverageWindow:      cfg.AverageWindow,
		ForcePartialTrader: "TEST_PARTIAL",
		ForcePartialLimit:  -1,
	}, logger)

	tradeSvc := service.NewTradeService(tradeStore, executor, gate, instruments)

	// Router.
	router := handler.NewRouter(tradeSvc, feed, gate, sink, logger)

	// Start background goroutines with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	feed.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop the HTTP server, then the engine and feed.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	sched.Wait()

	logger.Info("server stopped")
}
