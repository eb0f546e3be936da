package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/clients"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
	"github.com/jeongwoo-hong/jwcoin/internal/services/audit"
)

type stubFeed struct {
	status domain.AccountStatus
}

func (f *stubFeed) AccountStatus(ctx context.Context, pair domain.Pair) (domain.AccountStatus, error) {
	return f.status, nil
}

func (f *stubFeed) Candles(ctx context.Context, pair domain.Pair, interval clients.CandleInterval, count int) ([]domain.Candle, error) {
	candles := make([]domain.Candle, count)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := decimal.NewFromInt(int64(50_000_000 + i*100_000))
		candles[i] = domain.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: decimal.NewFromInt(1),
		}
	}
	return candles, nil
}

func (f *stubFeed) Orderbook(ctx context.Context, pair domain.Pair) (domain.Orderbook, error) {
	return domain.Orderbook{
		TotalBidSize: decimal.NewFromInt(10),
		TotalAskSize: decimal.NewFromInt(8),
	}, nil
}

type stubLLM struct {
	response     string
	systemPrompt string
	userPrompt   string
}

func (l *stubLLM) GetDecision(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	l.systemPrompt = systemPrompt
	l.userPrompt = userPrompt
	return l.response, nil
}

type stubTrader struct {
	executedAction string
	executed       bool
}

func (t *stubTrader) Execute(ctx context.Context, action string) (bool, error) {
	t.executedAction = action
	return t.executed, nil
}

type stubStore struct {
	saved []domain.Snapshot
}

func (s *stubStore) Save(snap domain.Snapshot) (int64, error) {
	s.saved = append(s.saved, snap)
	return int64(len(s.saved)), nil
}

func (s *stubStore) List() ([]domain.Snapshot, error) {
	return s.saved, nil
}

type stubDecisionLog struct {
	events []domain.DecisionEvent
}

func (l *stubDecisionLog) Save(event domain.DecisionEvent) error {
	l.events = append(l.events, event)
	return nil
}

func newTestBot(llm *stubLLM, trader *stubTrader, store *stubStore, log *stubDecisionLog) *TradingBot {
	return NewTradingBot(Config{
		Pair:         domain.Pair{Base: "BTC", Quote: "KRW"},
		PollInterval: time.Hour,
		Feed: &stubFeed{status: domain.AccountStatus{
			CashBalance: decimal.NewFromInt(1_000_000),
			BaseBalance: decimal.NewFromFloat(0.01),
			LastPrice:   decimal.NewFromInt(60_000_000),
			AvgBuyPrice: decimal.NewFromInt(55_000_000),
		}},
		LLM:       llm,
		Trader:    trader,
		Store:     store,
		Decisions: log,
		Auditor:   audit.NewScanner(analysis.DefaultConfig(), zap.NewNop()),
		Logger:    zap.NewNop(),
	})
}

func TestRunCycle_BuyDecisionRecorded(t *testing.T) {
	llm := &stubLLM{response: `{"decision":"buy","reason":"uptrend confirmed","confidence_level":0.8}`}
	trader := &stubTrader{executed: true}
	store := &stubStore{}
	log := &stubDecisionLog{}

	err := newTestBot(llm, trader, store, log).RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.ActionBuy, trader.executedAction)

	require.Len(t, store.saved, 1)
	snap := store.saved[0]
	require.Equal(t, domain.ActionBuy, snap.Decision)
	require.Equal(t, "uptrend confirmed", snap.Reason)
	require.Equal(t, domain.TxTypeTrade, snap.TxType)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(1_000_000)))
	require.True(t, snap.ReportedAvgCost.Equal(decimal.NewFromInt(55_000_000)))

	require.Len(t, log.events, 1)
	require.Equal(t, domain.ActionBuy, log.events[0].Action)
	require.True(t, log.events[0].Executed)
	require.InDelta(t, 0.8, log.events[0].Confidence, 1e-9)
}

func TestRunCycle_HoldStillWritesSnapshot(t *testing.T) {
	llm := &stubLLM{response: `{"decision":"hold","reason":"sideways market","confidence_level":0.5}`}
	trader := &stubTrader{executed: false}
	store := &stubStore{}
	log := &stubDecisionLog{}

	err := newTestBot(llm, trader, store, log).RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	require.Equal(t, domain.ActionHold, store.saved[0].Decision)
	require.Len(t, log.events, 1)
	require.False(t, log.events[0].Executed)
}

func TestRunCycle_MalformedLLMResponseFailsCycle(t *testing.T) {
	llm := &stubLLM{response: `I think you should buy.`}
	trader := &stubTrader{}
	store := &stubStore{}
	log := &stubDecisionLog{}

	err := newTestBot(llm, trader, store, log).RunCycle(context.Background())
	require.Error(t, err)
	require.Empty(t, store.saved)
	require.Empty(t, trader.executedAction)
}

func TestRunCycle_PromptCarriesMarketData(t *testing.T) {
	llm := &stubLLM{response: `{"decision":"hold","reason":"waiting","confidence_level":0.3}`}

	err := newTestBot(llm, &stubTrader{}, &stubStore{}, &stubDecisionLog{}).RunCycle(context.Background())
	require.NoError(t, err)

	require.Contains(t, llm.systemPrompt, "buy|sell|hold")
	require.Contains(t, llm.userPrompt, "Market Analysis for KRW-BTC")
	require.Contains(t, llm.userPrompt, "Technical Indicators")
	require.Contains(t, llm.userPrompt, "Orderbook")
}
