package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"pulsefut/internal/config"
	"pulsefut/internal/engine"
	"pulsefut/internal/logging"
)

func main() {
	path := flag.String("config", "pulsefut.yml", "config file (missing file means defaults)")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Configure(logging.FromEnv(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg, engine.Options{})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	logging.L().Info("starting", "instance", e.Instance(), "driver", cfg.Client.Driver)

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
