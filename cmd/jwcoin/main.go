package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeongwoo-hong/jwcoin/config"
	"github.com/jeongwoo-hong/jwcoin/dashboard"
	"github.com/jeongwoo-hong/jwcoin/internal/app"
	"github.com/jeongwoo-hong/jwcoin/internal/clients"
	"github.com/jeongwoo-hong/jwcoin/internal/services/audit"
	"github.com/jeongwoo-hong/jwcoin/internal/services/trader"
	"github.com/jeongwoo-hong/jwcoin/internal/storage/decisions"
	"github.com/jeongwoo-hong/jwcoin/internal/storage/trades"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	withDashboard := flag.Bool("dashboard", false, "serve the web dashboard alongside the bot")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Get(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.UpbitAccessKey == "" || cfg.UpbitSecretKey == "" {
		logger.Fatal("UPBIT_ACCESS_KEY and UPBIT_SECRET_KEY must be set")
	}
	if cfg.LLM.APIKey == "" {
		logger.Fatal("LLM_API_KEY must be set")
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

	exchange := clients.NewUpbitClient(cfg.UpbitAccessKey, cfg.UpbitSecretKey, "")
	llm := clients.NewOpenAICompatibleClient(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model)

	bot := app.NewTradingBot(app.Config{
		Pair:         cfg.Pair,
		PollInterval: cfg.PollInterval,
		AuditSpec:    cfg.AuditSpec,
		Feed:         exchange,
		LLM:          llm,
		Trader:       trader.NewUpbitTrader(exchange, cfg.Pair, logger),
		Store:        store,
		Decisions:    decisionLog,
		Auditor:      audit.NewScanner(cfg.Analysis, logger),
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	if *withDashboard {
		srv := dashboard.NewServer(cfg.Dashboard.Addr, store, decisionLog, cfg.Analysis)
		g.Go(func() error {
			logger.Info("dashboard listening", zap.String("addr", cfg.Dashboard.Addr))
			return srv.Start(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("shutdown with error", zap.Error(err))
	}
}
