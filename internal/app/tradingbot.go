// Package app wires the market feed, the LLM and the trade ledger into the
// polling bot loop.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/clients"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
	"github.com/jeongwoo-hong/jwcoin/internal/services/audit"
	"github.com/jeongwoo-hong/jwcoin/internal/services/market/indicators"
	"github.com/jeongwoo-hong/jwcoin/internal/services/promptbuilder"
)

const (
	candleCount        = 120
	historyPromptLimit = 10
)

// MarketFeed provides exchange data for one pair.
type MarketFeed interface {
	AccountStatus(ctx context.Context, pair domain.Pair) (domain.AccountStatus, error)
	Candles(ctx context.Context, pair domain.Pair, interval clients.CandleInterval, count int) ([]domain.Candle, error)
	Orderbook(ctx context.Context, pair domain.Pair) (domain.Orderbook, error)
}

// Trader executes a decision as a market order.
type Trader interface {
	Execute(ctx context.Context, action string) (bool, error)
}

// TradesStore persists the balance snapshot written after each cycle.
type TradesStore interface {
	Save(snap domain.Snapshot) (int64, error)
	List() ([]domain.Snapshot, error)
}

// DecisionLog records every decision for the dashboard stream.
type DecisionLog interface {
	Save(event domain.DecisionEvent) error
}

// TradingBot runs the poll/decide/execute/record cycle.
type TradingBot struct {
	pair      domain.Pair
	interval  time.Duration
	auditSpec string

	feed      MarketFeed
	llm       clients.LLMClient
	trader    Trader
	store     TradesStore
	decisions DecisionLog
	prompts   *promptbuilder.PromptBuilder
	auditor   *audit.Scanner
	logger    *zap.Logger
}

// Config carries the dependencies and settings for a TradingBot.
type Config struct {
	Pair         domain.Pair
	PollInterval time.Duration
	AuditSpec    string

	Feed      MarketFeed
	LLM       clients.LLMClient
	Trader    Trader
	Store     TradesStore
	Decisions DecisionLog
	Auditor   *audit.Scanner
	Logger    *zap.Logger
}

func NewTradingBot(cfg Config) *TradingBot {
	return &TradingBot{
		pair:      cfg.Pair,
		interval:  cfg.PollInterval,
		auditSpec: cfg.AuditSpec,
		feed:      cfg.Feed,
		llm:       cfg.LLM,
		trader:    cfg.Trader,
		store:     cfg.Store,
		decisions: cfg.Decisions,
		prompts:   promptbuilder.NewPromptBuilder(cfg.Pair, cfg.Logger),
		auditor:   cfg.Auditor,
		logger:    cfg.Logger,
	}
}

// Run polls the market on the configured interval until the context is
// cancelled. Cycle errors are logged, not fatal. A cron schedule runs the
// cash-movement audit alongside the loop.
func (b *TradingBot) Run(ctx context.Context) error {
	scheduler := cron.New()
	if b.auditSpec != "" {
		if _, err := scheduler.AddFunc(b.auditSpec, func() { b.runAudit() }); err != nil {
			return errors.Wrapf(err, "invalid audit schedule %q", b.auditSpec)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("trading bot started",
		zap.String("pair", b.pair.String()),
		zap.Duration("interval", b.interval))

	for {
		if err := b.RunCycle(ctx); err != nil {
			b.logger.Error("trading cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			b.logger.Info("trading bot stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one full cycle: gather market data, ask the LLM for a
// decision, execute it, and record the resulting balance snapshot.
func (b *TradingBot) RunCycle(ctx context.Context) error {
	marketCtx, err := b.collectMarketContext(ctx)
	if err != nil {
		return err
	}

	decision, err := b.decide(ctx, marketCtx)
	if err != nil {
		return err
	}

	b.logger.Info("decision received",
		zap.String("action", decision.Action),
		zap.Float64("confidence", decision.Confidence),
		zap.String("reason", decision.Reason))

	executed, err := b.trader.Execute(ctx, decision.Action)
	if err != nil {
		return errors.Wrap(err, "execute decision")
	}

	return b.record(ctx, decision, executed)
}

func (b *TradingBot) collectMarketContext(ctx context.Context) (promptbuilder.MarketContext, error) {
	account, err := b.feed.AccountStatus(ctx, b.pair)
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "fetch account status")
	}

	daily, err := b.feed.Candles(ctx, b.pair, clients.CandleDays, candleCount)
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "fetch daily candles")
	}

	hourly, err := b.feed.Candles(ctx, b.pair, clients.CandleHourly, candleCount)
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "fetch hourly candles")
	}

	summary, err := indicators.Summarize(daily)
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "compute indicators")
	}

	book, err := b.feed.Orderbook(ctx, b.pair)
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "fetch orderbook")
	}

	history, err := b.store.List()
	if err != nil {
		return promptbuilder.MarketContext{}, errors.Wrap(err, "load trade history")
	}
	if len(history) > historyPromptLimit {
		history = history[len(history)-historyPromptLimit:]
	}

	return promptbuilder.MarketContext{
		Account:       account,
		DailyCandles:  daily,
		HourlyCandles: hourly,
		Indicators:    summary,
		Orderbook:     book,
		RecentHistory: history,
	}, nil
}

func (b *TradingBot) decide(ctx context.Context, marketCtx promptbuilder.MarketContext) (*domain.Decision, error) {
	raw, err := b.llm.GetDecision(ctx, promptbuilder.SystemPrompt, b.prompts.BuildUserPrompt(marketCtx))
	if err != nil {
		return nil, errors.Wrap(err, "query LLM")
	}

	decision, err := domain.ParseDecision(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse LLM response")
	}
	return decision, nil
}

func (b *TradingBot) record(ctx context.Context, decision *domain.Decision, executed bool) error {
	// Re-read balances so the snapshot reflects the executed order.
	account, err := b.feed.AccountStatus(ctx, b.pair)
	if err != nil {
		return errors.Wrap(err, "refresh account status")
	}

	now := time.Now().UTC()
	snap := domain.Snapshot{
		Timestamp:       now,
		Decision:        decision.Action,
		Reason:          decision.Reason,
		BaseBalance:     account.BaseBalance,
		CashBalance:     account.CashBalance,
		LastPrice:       account.LastPrice,
		ReportedAvgCost: account.AvgBuyPrice,
		TxType:          domain.TxTypeTrade,
	}
	if _, err := b.store.Save(snap); err != nil {
		return errors.Wrap(err, "save snapshot")
	}

	event := domain.DecisionEvent{
		Timestamp:  now,
		Pair:       b.pair.String(),
		Action:     decision.Action,
		Reason:     decision.Reason,
		Confidence: decision.Confidence,
		Price:      account.LastPrice.String(),
		Executed:   executed,
	}
	if err := b.decisions.Save(event); err != nil {
		// The snapshot is already committed; losing one stream event is
		// not worth failing the cycle.
		b.logger.Warn("failed to record decision event", zap.Error(err))
	}
	return nil
}

func (b *TradingBot) runAudit() {
	snapshots, err := b.store.List()
	if err != nil {
		b.logger.Error("audit: load trade history", zap.Error(err))
		return
	}

	for _, finding := range b.auditor.Scan(snapshots) {
		b.logger.Warn("audit: unexplained cash movement",
			zap.Int64("snapshot_id", finding.SnapshotID),
			zap.String("timestamp", finding.Timestamp),
			zap.String("cash_delta", finding.CashDelta),
			zap.String("suggested_tx_type", string(finding.Suggestion)))
	}
}
