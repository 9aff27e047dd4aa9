package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simtrade/internal/book"
	"simtrade/internal/config"
	"simtrade/internal/dashboard"
	"simtrade/internal/domain"
	"simtrade/internal/engine"
	"simtrade/internal/event"
	"simtrade/internal/exchange"
	"simtrade/internal/feed"
	"simtrade/internal/portfolio"
	"simtrade/internal/store"
	"simtrade/internal/strategy"
	"simtrade/internal/strategy/builtins"
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

	history, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening order history: %v", err)
	}
	defer history.Close()

	ledger := portfolio.NewLedger()
	pnl := portfolio.NewPnLTracker()
	gate := engine.NewRiskGate(cfg.Risk, ledger)
	sim := exchange.NewSimulator(cfg.Execution, rand.New(rand.NewSource(time.Now().UnixNano())), logger)
	bus := event.NewBus()
	books := book.New()

	eng := engine.NewEngine(gate, sim, ledger, pnl, history, books, bus, logger)

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSpread(cfg.Strategy, cfg.Risk.PositionLimit))
	strat, _ := registry.Get("spread")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dashboard HTTP server with websocket event stream.
	hub := dashboard.NewHub(bus, logger)
	go hub.Run(ctx)

	dash := dashboard.NewServer(eng, history, books, hub, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: dash.Handler(),
	}
	go func() {
		logger.Info("dashboard listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard server stopped", "error", err)
		}
	}()

	// Feed ingestion: tick → book → strategy → pipeline.
	onTick := func(tick domain.Tick) {
		eng.Stats().IncTicks()
		snap := books.Update(tick)

		positions := make(map[string]int64)
		for _, p := range ledger.Positions() {
			positions[p.Symbol] = p.Quantity
		}

		if sig := strat.OnBook(snap, positions); sig != nil {
			eng.ProcessSignal(*sig)
		}
	}

	feedURL := fmt.Sprintf("ws://localhost:%d/ws", cfg.Feed.Port)
	client := feed.NewClient(feedURL, onTick, logger)

	go statsLoop(ctx, eng, ledger, pnl, books, logger)

	logger.Info("trading system starting", "feed", feedURL)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("feed client stopped", "error", err)
	}

	// Drain in-flight executions before archiving and exiting.
	logger.Info("shutting down, draining in-flight executions")
	eng.Close()

	archiveFills(history, cfg.Storage.ArchiveDir, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("trading system shut down", "stats", eng.Stats().Snapshot())
}

// statsLoop logs a periodic summary of pipeline activity, positions, and PnL.
func statsLoop(ctx context.Context, eng *engine.Engine, ledger *portfolio.Ledger, pnl *portfolio.PnLTracker, books *book.Book, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := eng.Stats().Snapshot()
			positions := ledger.Positions()
			snapshot := pnl.Snapshot(positions, books.Marks())
			logger.Info("system stats",
				"ticks", stats.TicksProcessed,
				"signals", stats.SignalsGenerated,
				"orders", stats.OrdersSent,
				"fills", stats.FillsReceived,
				"rejected", stats.OrdersRejected,
				"open_positions", len(positions),
				"realized_pnl", snapshot.TotalRealized,
				"unrealized_pnl", snapshot.TotalUnrealized,
			)
		}
	}
}

// archiveFills exports the durable fill log to the Parquet archive for the
// audit tool.
func archiveFills(history *store.SQLiteStore, archiveDir string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fills, err := history.Fills(ctx)
	if err != nil {
		logger.Error("reading fills for archive", "error", err)
		return
	}
	if len(fills) == 0 {
		return
	}
	archive := store.NewParquetArchive(archiveDir)
	if err := archive.ArchiveFills(fills); err != nil {
		logger.Error("archiving fills", "error", err)
		return
	}
	logger.Info("fills archived", "count", len(fills), "dir", archiveDir)
}
