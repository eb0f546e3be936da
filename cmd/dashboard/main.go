package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/config"
	"github.com/jeongwoo-hong/jwcoin/dashboard"
	"github.com/jeongwoo-hong/jwcoin/internal/storage/decisions"
	"github.com/jeongwoo-hong/jwcoin/internal/storage/trades"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.Get(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := trades.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open trades database", zap.Error(err))
	}
	defer store.Close()

	decisionLog, err := decisions.NewWALStore(cfg.DecisionDir)
	if err != nil {
		logger.Fatal("failed to open decision log", zap.Error(err))
	}
	defer decisionLog.Close()

	srv := dashboard.NewServer(cfg.Dashboard.Addr, store, decisionLog, cfg.Analysis)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.Dashboard.Domains) > 0 {
		logger.Info("dashboard listening with automatic TLS",
			zap.String("addr", cfg.Dashboard.Addr),
			zap.Strings("domains", cfg.Dashboard.Domains))
		err = srv.StartWithAutoTLS(ctx, cfg.Dashboard.Domains, cfg.Dashboard.CertCache)
	} else {
		logger.Info("dashboard listening", zap.String("addr", cfg.Dashboard.Addr))
		err = srv.Start(ctx)
	}
	if err != nil {
		logger.Fatal("dashboard server failed", zap.Error(err))
	}
}
