package indicators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

func risingCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := decimal.NewFromInt(int64(1000 + i*10))
		candles[i] = domain.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price.Add(decimal.NewFromInt(5)),
			Low:    price.Sub(decimal.NewFromInt(5)),
			Close:  price,
			Volume: decimal.NewFromInt(1),
		}
	}
	return candles
}

func TestSummarize_NotEnoughCandles(t *testing.T) {
	_, err := Summarize(risingCandles(30))
	require.Error(t, err)
}

func TestSummarize_RisingMarket(t *testing.T) {
	summary, err := Summarize(risingCandles(120))
	require.NoError(t, err)

	// In a steady uptrend the short average sits above the long one.
	require.True(t, summary.SMA5.GreaterThan(summary.SMA20), "SMA5 %s <= SMA20 %s", summary.SMA5, summary.SMA20)
	require.True(t, summary.SMA20.GreaterThan(summary.SMA60), "SMA20 %s <= SMA60 %s", summary.SMA20, summary.SMA60)
	require.True(t, summary.EMA12.GreaterThan(summary.EMA26))

	// Only gains in the window pins RSI at its ceiling.
	require.True(t, summary.RSI14.GreaterThan(decimal.NewFromInt(90)), "RSI14 %s", summary.RSI14)

	require.True(t, summary.BollingerUpper.GreaterThan(summary.BollingerMiddle))
	require.True(t, summary.BollingerMiddle.GreaterThan(summary.BollingerLower))
}
