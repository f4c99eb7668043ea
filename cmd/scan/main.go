package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/notifier"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
	"github.com/vitos/crypto_ambush_bot/internal/usecase"
)

// One-shot evaluation of a single symbol, printed as JSON. Useful for
// checking what the scanner would do without running the bot.
func main() {
	symbol := flag.String("symbol", "", "symbol to evaluate, e.g. SOLUSDT")
	restURL := flag.String("rest", "https://api.binance.com", "exchange REST endpoint")
	dbPath := flag.String("db", ":memory:", "sqlite path, in-memory by default")
	flag.Parse()

	if *symbol == "" {
		fmt.Println("usage: scan -symbol SOLUSDT")
		os.Exit(1)
	}

	log := zap.NewNop()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	binance := exchange.NewBinanceAdapter(*restURL, "")

	watchlist, err := usecase.NewWatchlistService(ctx, store, usecase.DefaultWatchlistConfig(), log)
	if err != nil {
		fmt.Printf("Failed to init watchlist: %v\n", err)
		os.Exit(1)
	}
	monitor, err := usecase.NewPositionMonitor(ctx, store, usecase.DefaultMonitorConfig(), log)
	if err != nil {
		fmt.Printf("Failed to init monitor: %v\n", err)
		os.Exit(1)
	}
	governor, err := usecase.NewAlertGovernor(ctx, store, usecase.DefaultGovernorConfig(), log)
	if err != nil {
		fmt.Printf("Failed to init governor: %v\n", err)
		os.Exit(1)
	}

	scorerCfg := usecase.DefaultScorerConfig()
	scanner := usecase.NewScannerService(
		binance,
		usecase.NewAmbushScorer(scorerCfg),
		scorerCfg,
		watchlist,
		monitor,
		governor,
		patterns.NewAnalyzer(nil, log),
		notifier.NewTelegramNotifier("", ""),
		usecase.DefaultScannerConfig(),
		log,
	)

	report, err := scanner.ScanSymbol(ctx, *symbol)
	if err != nil {
		fmt.Printf("Scan failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
