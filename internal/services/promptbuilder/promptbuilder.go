// Package promptbuilder formats market data, technical indicators and
// account state into the prompts sent to the decision LLM.
package promptbuilder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
	"github.com/jeongwoo-hong/jwcoin/internal/services/market/indicators"
)

const (
	recentCandleLimit   = 20
	orderbookLevelLimit = 5
)

// PromptBuilder constructs prompts for the LLM.
type PromptBuilder struct {
	pair   domain.Pair
	logger *zap.Logger
}

// NewPromptBuilder creates a new PromptBuilder instance.
func NewPromptBuilder(pair domain.Pair, logger *zap.Logger) *PromptBuilder {
	return &PromptBuilder{
		pair:   pair,
		logger: logger,
	}
}

// MarketContext contains all data needed for prompt building.
type MarketContext struct {
	Account       domain.AccountStatus
	DailyCandles  []domain.Candle
	HourlyCandles []domain.Candle
	Indicators    indicators.Summary
	Orderbook     domain.Orderbook
	RecentHistory []domain.Snapshot
}

// BuildUserPrompt renders the market context into a markdown prompt.
func (pb *PromptBuilder) BuildUserPrompt(ctx MarketContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Market Analysis for %s\n\n", pb.pair.Market()))

	sb.WriteString(pb.formatCandles("Daily Candles", ctx.DailyCandles))
	sb.WriteString(pb.formatCandles("Hourly Candles", ctx.HourlyCandles))
	sb.WriteString(pb.formatIndicators(ctx.Indicators))
	sb.WriteString(pb.formatOrderbook(ctx.Orderbook))
	sb.WriteString(pb.formatHistory(ctx.RecentHistory))
	sb.WriteString(pb.formatAccount(ctx.Account))

	sb.WriteString("## Instructions\n\n")
	sb.WriteString("Analyze the market data and provide your trading decision in JSON format.\n")
	if ctx.Account.BaseBalance.IsPositive() {
		sb.WriteString(fmt.Sprintf("You currently hold %s %s - decide whether to hold, sell, or buy more.\n",
			ctx.Account.BaseBalance, pb.pair.Base))
	} else {
		sb.WriteString("You hold no coins - decide whether to buy or hold (wait).\n")
	}

	return sb.String()
}

func (pb *PromptBuilder) formatCandles(title string, candles []domain.Candle) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s (Last %d)\n\n", title, recentCandleLimit))

	if len(candles) == 0 {
		sb.WriteString("No data available\n\n")
		return sb.String()
	}

	start := len(candles) - recentCandleLimit
	if start < 0 {
		start = 0
	}

	sb.WriteString("```\n")
	sb.WriteString("Time             | Open       | High       | Low        | Close      | Volume\n")
	sb.WriteString("-----------------|------------|------------|------------|------------|--------\n")
	for _, c := range candles[start:] {
		sb.WriteString(fmt.Sprintf("%s | %10s | %10s | %10s | %10s | %s\n",
			c.Time.Format("2006-01-02 15:04"),
			c.Open.StringFixed(0), c.High.StringFixed(0),
			c.Low.StringFixed(0), c.Close.StringFixed(0),
			c.Volume.StringFixed(4)))
	}
	sb.WriteString("```\n\n")
	return sb.String()
}

func (pb *PromptBuilder) formatIndicators(ind indicators.Summary) string {
	var sb strings.Builder
	sb.WriteString("## Technical Indicators (latest)\n\n")
	sb.WriteString(fmt.Sprintf("- SMA5: %s, SMA20: %s, SMA60: %s\n",
		ind.SMA5.StringFixed(0), ind.SMA20.StringFixed(0), ind.SMA60.StringFixed(0)))
	sb.WriteString(fmt.Sprintf("- EMA12: %s, EMA26: %s\n",
		ind.EMA12.StringFixed(0), ind.EMA26.StringFixed(0)))
	sb.WriteString(fmt.Sprintf("- MACD: %s, MACD_Signal: %s\n",
		ind.MACD.StringFixed(2), ind.MACDSignal.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("- RSI14: %s\n", ind.RSI14.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("- Bollinger Upper/Middle/Lower: %s / %s / %s\n\n",
		ind.BollingerUpper.StringFixed(0), ind.BollingerMiddle.StringFixed(0), ind.BollingerLower.StringFixed(0)))
	return sb.String()
}

func (pb *PromptBuilder) formatOrderbook(book domain.Orderbook) string {
	var sb strings.Builder
	sb.WriteString("## Orderbook\n\n")
	sb.WriteString(fmt.Sprintf("**Total Bid Size:** %s  \n", book.TotalBidSize.StringFixed(4)))
	sb.WriteString(fmt.Sprintf("**Total Ask Size:** %s\n\n", book.TotalAskSize.StringFixed(4)))

	if len(book.Units) == 0 {
		return sb.String()
	}

	limit := orderbookLevelLimit
	if len(book.Units) < limit {
		limit = len(book.Units)
	}
	sb.WriteString("```\n")
	sb.WriteString("Ask Price  | Ask Size | Bid Price  | Bid Size\n")
	sb.WriteString("-----------|----------|------------|---------\n")
	for _, u := range book.Units[:limit] {
		sb.WriteString(fmt.Sprintf("%10s | %8s | %10s | %s\n",
			u.AskPrice.StringFixed(0), u.AskSize.StringFixed(4),
			u.BidPrice.StringFixed(0), u.BidSize.StringFixed(4)))
	}
	sb.WriteString("```\n\n")
	return sb.String()
}

func (pb *PromptBuilder) formatHistory(history []domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## Recent Decisions\n\n")

	if len(history) == 0 {
		sb.WriteString("No previous decisions\n\n")
		return sb.String()
	}

	for _, snap := range history {
		reason := snap.Reason
		if len(reason) > 200 {
			reason = reason[:200] + "..."
		}
		sb.WriteString(fmt.Sprintf("- %s **%s**: %s\n",
			snap.Timestamp.Format("2006-01-02 15:04"), snap.Decision, reason))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (pb *PromptBuilder) formatAccount(acc domain.AccountStatus) string {
	var sb strings.Builder
	sb.WriteString("## Account Information\n\n")
	sb.WriteString(fmt.Sprintf("**Cash Balance (%s):** %s  \n", pb.pair.Quote, acc.CashBalance.StringFixed(0)))
	sb.WriteString(fmt.Sprintf("**Coin Balance (%s):** %s  \n", pb.pair.Base, acc.BaseBalance.String()))
	sb.WriteString(fmt.Sprintf("**Average Buy Price:** %s  \n", acc.AvgBuyPrice.StringFixed(0)))
	sb.WriteString(fmt.Sprintf("**Current Price:** %s  \n", acc.LastPrice.StringFixed(0)))
	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n\n", acc.TotalValue().StringFixed(0)))
	return sb.String()
}
