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

	"github.com/vitos/solana_trade_bot/internal/domain"
	"github.com/vitos/solana_trade_bot/internal/infrastructure/cache"
	"github.com/vitos/solana_trade_bot/internal/infrastructure/logger"
	"github.com/vitos/solana_trade_bot/internal/infrastructure/solana"
	"github.com/vitos/solana_trade_bot/internal/infrastructure/storage"
	"github.com/vitos/solana_trade_bot/internal/usecase"
	"github.com/vitos/solana_trade_bot/internal/web"
)

type Config struct {
	Solana struct {
		RPCURL         string `yaml:"rpc_url"`
		Cluster        string `yaml:"cluster"`
		JupiterAPIURL  string `yaml:"jupiter_api_url"`
		JupiterSwapURL string `yaml:"jupiter_swap_url"`
		JupiterPrice   string `yaml:"jupiter_price_url"`
		RaydiumAPIURL  string `yaml:"raydium_api_url"`
	} `yaml:"solana"`
	Wallet struct {
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallet"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Risk   usecase.RiskConfig `yaml:"risk"`
	Sniper struct {
		ScanIntervalMs    int     `yaml:"scan_interval_ms"`
		ScanBackoffMs     int     `yaml:"scan_backoff_ms"`
		MonitorIntervalMs int     `yaml:"monitor_interval_ms"`
		MinLiquidity      float64 `yaml:"min_liquidity"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"sniper"`
	Copy struct {
		PollIntervalMs int `yaml:"poll_interval_ms"`
		PollBackoffMs  int `yaml:"poll_backoff_ms"`
		TradeLookback  int `yaml:"trade_lookback"`
	} `yaml:"copy_trading"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
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
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Cache (redis when configured, in-process otherwise)
	var kv domain.Cache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Fatal("Failed to reach redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer redisCache.Close()
		kv = redisCache
	} else {
		log.Info("No redis address configured, using in-memory cache")
		kv = cache.NewMemoryCache()
	}

	// 5. Init Chain Client
	chain := solana.NewClient(solana.Config{
		RPCURL:         cfg.Solana.RPCURL,
		JupiterAPIURL:  cfg.Solana.JupiterAPIURL,
		JupiterSwapURL: cfg.Solana.JupiterSwapURL,
	}, log)

	// 6. Init Services
	sources := []domain.PriceSource{
		solana.NewJupiterPriceSource(cfg.Solana.JupiterPrice),
		solana.NewRaydiumPriceSource(cfg.Solana.RaydiumAPIURL),
		solana.NewChainPriceSource(chain),
	}
	marketService := usecase.NewMarketDataService(chain, kv, sources, log)

	risk := usecase.NewRiskEvaluator(cfg.Risk, store, log)
	tradingService := usecase.NewTradingService(chain, store, kv, risk, cfg.Wallet.PrivateKey, cfg.Solana.Cluster, log)
	sniperService := usecase.NewSniperService(chain, marketService, store, usecase.SniperEngineConfig{
		ScanInterval:    time.Duration(cfg.Sniper.ScanIntervalMs) * time.Millisecond,
		ScanBackoff:     time.Duration(cfg.Sniper.ScanBackoffMs) * time.Millisecond,
		MonitorInterval: time.Duration(cfg.Sniper.MonitorIntervalMs) * time.Millisecond,
		MinLiquidity:    cfg.Sniper.MinLiquidity,
		MaxConcurrent:   cfg.Sniper.MaxConcurrent,
	}, log)
	copyTradeService := usecase.NewCopyTradeService(chain, store, usecase.CopyTradeEngineConfig{
		PollInterval:  time.Duration(cfg.Copy.PollIntervalMs) * time.Millisecond,
		PollBackoff:   time.Duration(cfg.Copy.PollBackoffMs) * time.Millisecond,
		TradeLookback: cfg.Copy.TradeLookback,
	}, log)

	// 7. Init Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080 // Default
	}
	server := web.NewServer(port, tradingService, sniperService, copyTradeService, marketService, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sniperService.Shutdown(shutdownCtx)
	copyTradeService.Shutdown(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
