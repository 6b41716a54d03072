// Command apiserver runs the analysis HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	httpserver "github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting corprisk apiserver",
		logging.String("source", cfg.Source.Kind),
		logging.Int("port", cfg.Server.Port))

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	router, teardown, err := buildRouter(startCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", logging.Err(err))
	}
	defer teardown()

	srv := httpserver.NewServer(cfg.Server, router, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("http server failed", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := srv.Stop(context.Background()); err != nil {
		log.Error("shutdown incomplete", logging.Err(err))
	}
}
