// Package main runs the appcore daemon: it builds the application
// container, restores persisted state, and serves metrics and health
// endpoints until interrupted.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cartaomais/appcore/internal/app"
	"github.com/cartaomais/appcore/internal/config"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
)

func main() {
	addr := flag.String("addr", ":9464", "metrics/health listen address")
	configPath := flag.String("config", "appcore.yaml", "optional YAML config override")
	flag.Parse()

	cfg, err := config.LoadWithOverride(*configPath)
	if err != nil {
		logging.NewDefault("main").WithError(err).Error("load configuration")
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	if err := a.Init(ctx); err != nil {
		log.WithError(err).Error("initialize application")
		os.Exit(1)
	}
	log.WithField("storage", cfg.Storage.Backend).Info("appcore started")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("metrics endpoint listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
	if err := a.Dispose(shutdownCtx); err != nil {
		log.WithError(err).Warn("dispose application")
	}
}
