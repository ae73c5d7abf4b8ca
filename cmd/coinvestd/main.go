// Package main runs the co-investment coordination daemon: the REST API,
// the Prometheus endpoint and the rent reminder job.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/brickvest/coinvest_layer/internal/app"
	"github.com/brickvest/coinvest_layer/internal/app/httpapi"
	"github.com/brickvest/coinvest_layer/internal/app/metrics"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/app/storage/postgres"
	"github.com/brickvest/coinvest_layer/internal/config"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

func main() {
	log := logger.NewDefault("coinvestd")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.StateStore
	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Error("failed to open postgres state store")
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
		log.Info("using postgres state store")
	} else {
		log.Info("using in-memory state store")
	}

	application, err := app.New(cfg, store, log)
	if err != nil {
		log.WithError(err).Error("failed to build application")
		os.Exit(1)
	}
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start application")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewHandler(application))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddress).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown failed")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown failed")
	}
}
