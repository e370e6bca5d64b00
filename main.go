/*
Package main
File: main.go
Description: Server entry point. Loads the catalog and the player's saved
progress, starts the real-time WebSocket hub and runs the heartbeat that
pays out passive income every second.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/everforgeworks/diggis-clicker/internal/api"
	"github.com/everforgeworks/diggis-clicker/internal/config"
	"github.com/everforgeworks/diggis-clicker/internal/game"
	"github.com/everforgeworks/diggis-clicker/internal/storage"
)

func main() {
	configPath := flag.String("config", "diggis.yaml", "path to the server config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 2. The static catalog
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	// 3. Durable storage and the engine (loads saved progress)
	store, err := storage.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := game.NewEngine(game.Options{Catalog: catalog, Store: store, Logger: logger})
	if err != nil {
		return err
	}

	// 4. Real-time hub, subscribed to every engine signal
	hub := api.NewHub(engine, logger)
	engine.Subscribe(hub)

	limiter := rate.NewLimiter(rate.Limit(cfg.ClickRatePerSecond), cfg.ClickBurst)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(engine, hub, limiter, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return engine.RunHeartbeat(ctx, cfg.TickInterval) })
	g.Go(func() error { return watchHangup(ctx, engine, logger) })
	g.Go(func() error {
		logger.Info("DIGGIS server live", "addr", cfg.ListenAddr, "currency", cfg.CurrencyName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server shutdown complete")
	return err
}

func loadCatalog(cfg config.Config) (*game.Catalog, error) {
	if cfg.CatalogPath == "" {
		return game.DefaultCatalog(cfg.CurrencyName)
	}
	return game.LoadCatalog(cfg.CatalogPath, cfg.CurrencyName)
}

// watchHangup re-runs catalog validation on SIGHUP so an operator can check
// the catalog of a running server.
func watchHangup(ctx context.Context, engine *game.Engine, logger *slog.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigChan:
			diags := engine.Diagnostics()
			logger.Info("SIGNAL: catalog validation", "problems", len(diags))
			for _, d := range diags {
				logger.Error("invalid upgrade", "index", d.Index, "key", d.Key, "problem", d.Problem)
			}
		}
	}
}
