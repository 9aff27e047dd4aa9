package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simtrade/internal/config"
	"simtrade/internal/feed"
	"simtrade/internal/util"
)

func main() {
	cfg := config.Default()
	if p := os.Getenv("SIMTRADE_CONFIG"); p != "" {
		var err error
		cfg, err = config.Load(p)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := feed.NewGenerator(cfg.Feed, time.Now().UnixNano(), logger)
	if err := gen.Run(ctx); err != nil {
		logger.Error("feed generator stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("feed generator shut down")
}
