package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/notifier"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/patternsvc"
	"github.com/vitos/crypto_ambush_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
	"github.com/vitos/crypto_ambush_bot/internal/scheduler"
	"github.com/vitos/crypto_ambush_bot/internal/usecase"
	"github.com/vitos/crypto_ambush_bot/internal/web"
)

type Config struct {
	Exchange struct {
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"exchange"`
	PatternService struct {
		URL string `yaml:"url"`
	} `yaml:"pattern_service"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Scanner struct {
		SlowInterval string `yaml:"slow_interval"`
		FastInterval string `yaml:"fast_interval"`
		Concurrency  int    `yaml:"concurrency"`
		QuoteAsset   string `yaml:"quote_asset"`
	} `yaml:"scanner"`
	Schedule struct {
		ScanEveryMinutes    int `yaml:"scan_every_minutes"`
		TriggerEveryMinutes int `yaml:"trigger_every_minutes"`
		MonitorEveryMinutes int `yaml:"monitor_every_minutes"`
	} `yaml:"schedule"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange (Binance)
	binance := exchange.NewBinanceAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint)
	if err := binance.ConnectWS(); err != nil {
		// The price stream only feeds the runaway prune, so a dead stream
		// degrades rather than blocks startup.
		log.Error("Failed to connect price stream", zap.Error(err))
	}
	defer binance.CloseWS()

	// 5. Init Collaborators
	var patternService domain.PatternService
	if cfg.PatternService.URL != "" {
		patternService = patternsvc.NewClient(cfg.PatternService.URL)
	}
	analyzer := patterns.NewAnalyzer(patternService, log)
	telegram := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	// 6. Init Services (state is rehydrated from sqlite inside the constructors)
	ctx := context.Background()
	watchlist, err := usecase.NewWatchlistService(ctx, store, usecase.DefaultWatchlistConfig(), log)
	if err != nil {
		log.Fatal("Failed to init watchlist", zap.Error(err))
	}
	monitor, err := usecase.NewPositionMonitor(ctx, store, usecase.DefaultMonitorConfig(), log)
	if err != nil {
		log.Fatal("Failed to init position monitor", zap.Error(err))
	}
	governor, err := usecase.NewAlertGovernor(ctx, store, usecase.DefaultGovernorConfig(), log)
	if err != nil {
		log.Fatal("Failed to init alert governor", zap.Error(err))
	}

	scorerCfg := usecase.DefaultScorerConfig()
	scannerCfg := usecase.DefaultScannerConfig()
	if cfg.Scanner.SlowInterval != "" {
		scannerCfg.SlowInterval = cfg.Scanner.SlowInterval
	}
	if cfg.Scanner.FastInterval != "" {
		scannerCfg.FastInterval = cfg.Scanner.FastInterval
	}
	if cfg.Scanner.Concurrency > 0 {
		scannerCfg.Concurrency = cfg.Scanner.Concurrency
	}
	if cfg.Scanner.QuoteAsset != "" {
		scannerCfg.QuoteAsset = cfg.Scanner.QuoteAsset
	}

	scanner := usecase.NewScannerService(
		binance,
		usecase.NewAmbushScorer(scorerCfg),
		scorerCfg,
		watchlist,
		monitor,
		governor,
		analyzer,
		telegram,
		scannerCfg,
		log,
	)

	// 7. Start Scheduler
	schedCfg := scheduler.DefaultConfig()
	if cfg.Schedule.ScanEveryMinutes > 0 {
		schedCfg.ScanEvery = time.Duration(cfg.Schedule.ScanEveryMinutes) * time.Minute
	}
	if cfg.Schedule.TriggerEveryMinutes > 0 {
		schedCfg.TriggerEvery = time.Duration(cfg.Schedule.TriggerEveryMinutes) * time.Minute
	}
	if cfg.Schedule.MonitorEveryMinutes > 0 {
		schedCfg.MonitorEvery = time.Duration(cfg.Schedule.MonitorEveryMinutes) * time.Minute
	}
	sched := scheduler.NewScheduler(scanner, governor, schedCfg, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// 8. Start Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, scanner, watchlist, monitor, binance, patternService, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}
