package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"paperbot/internal/bot"
	"paperbot/internal/config"
	"paperbot/internal/database"
	"paperbot/internal/ledger"
	"paperbot/internal/logger"
	"paperbot/internal/market"
	"paperbot/internal/rebalance"
	"paperbot/internal/scanner"
	"paperbot/internal/strategy"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Market data gateway over the configured venue fallback chain.
	var venues []market.Venue
	for _, name := range cfg.Market.Venues {
		switch name {
		case "binance":
			venues = append(venues, market.NewBinanceVenue(&cfg.Market, log))
		case "kraken":
			venues = append(venues, market.NewKrakenVenue(&cfg.Market, log))
		default:
			log.Warn("Unknown venue in config, skipping", zap.String("venue", name))
		}
	}
	if len(venues) == 0 {
		log.Fatal("No usable market data venues configured")
	}
	gateway := market.NewGateway(venues, time.Duration(cfg.Market.CacheTTL)*time.Second, log)

	paperLedger := ledger.NewPaperLedger(db, log)
	tradeLedger := ledger.NewTradeLedger(db, paperLedger, log)
	botStore := bot.NewStore(db, log)
	registry := strategy.NewRegistry()
	scan := scanner.New(gateway, log)
	rebalancer := rebalance.New(db, tradeLedger, paperLedger, gateway, cfg.Rebalance.PrimaryPairs, cfg.Rebalance.DriftThreshold, log)

	cycle := bot.NewCycle(botStore, tradeLedger, paperLedger, registry, scan, gateway, rebalancer, cfg.Engine, log)
	runner := bot.NewRunner(cycle, botStore,
		time.Duration(cfg.Engine.CycleTimeoutSeconds)*time.Second, cfg.Engine.MaxConcurrentBots, log)

	alertEvaluator := bot.NewAlertEvaluator(db, log)
	apiServer := bot.NewAPIServer(cfg.Server.Port, runner, botStore, alertEvaluator, paperLedger, gateway, log)
	apiServer.Start()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	interval := time.Duration(cfg.Engine.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("Starting bot run loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := apiServer.Stop(shutdownCtx); err != nil {
				log.Error("API server shutdown failed", zap.Error(err))
			}
			shutdownCancel()
			log.Info("Bot daemon has been shut down.")
			return
		case <-ticker.C:
			results := runner.RunAll(ctx)
			for _, res := range results {
				if len(res.Errors) > 0 {
					log.Warn("cycle finished with errors",
						zap.Uint("bot_id", res.BotID), zap.Strings("errors", res.Errors))
				}
			}
		}
	}
}
