package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/queue"
	"github.com/soltixdb/seasonal/internal/router"
	"github.com/soltixdb/seasonal/internal/services"
	"github.com/soltixdb/seasonal/internal/worker"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Analyzer service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.New(reg)
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("Queue connection established")

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	svc := services.NewAnalysisService(logger, cfg, queueClient, recorder)

	var jobWorker *worker.Worker
	if cfg.Worker.Enabled {
		jobWorker, err = worker.New(cfg.Worker, queueClient, svc, logger, recorder)
		if err != nil {
			logger.Fatal("Failed to create analysis worker", "error", err)
		}
		if err := jobWorker.Start(); err != nil {
			logger.Fatal("Failed to start analysis worker", "error", err)
		}
	}

	app := router.New(logger, svc, queueClient, recorder, cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the worker first so in-flight results are published before the queue closes
	if jobWorker != nil {
		if err := jobWorker.Stop(); err != nil {
			logger.Error("Failed to stop analysis worker", "error", err)
		}
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	_ = logger.Sync()
	logger.Info("Server exited")
}
