// Package indicators computes the technical indicators fed into the
// decision prompt: moving averages, MACD, RSI and Bollinger bands over
// candle closing prices.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// minCandles is the warmup requirement of the slowest indicator (SMA60).
const minCandles = 61

// Summary holds the most recent value of each indicator, ready to be
// rendered into a prompt.
type Summary struct {
	SMA5  decimal.Decimal
	SMA20 decimal.Decimal
	SMA60 decimal.Decimal

	EMA12 decimal.Decimal
	EMA26 decimal.Decimal

	MACD       decimal.Decimal
	MACDSignal decimal.Decimal

	RSI14 decimal.Decimal

	BollingerUpper  decimal.Decimal
	BollingerMiddle decimal.Decimal
	BollingerLower  decimal.Decimal
}

// Summarize computes all indicators over the candles (oldest first) and
// returns the latest value of each.
func Summarize(candles []domain.Candle) (Summary, error) {
	if len(candles) < minCandles {
		return Summary{}, errors.Errorf("not enough candles: need %d, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	macd, signal := macdSeries(closes)
	upper, middle, lower := bollingerSeries(closes)

	return Summary{
		SMA5:  lastValue(smaSeries(closes, 5)),
		SMA20: lastValue(smaSeries(closes, 20)),
		SMA60: lastValue(smaSeries(closes, 60)),

		EMA12: lastValue(emaSeries(closes, 12)),
		EMA26: lastValue(emaSeries(closes, 26)),

		MACD:       lastValue(macd),
		MACDSignal: lastValue(signal),

		RSI14: lastValue(rsiSeries(closes, 14)),

		BollingerUpper:  lastValue(upper),
		BollingerMiddle: lastValue(middle),
		BollingerLower:  lastValue(lower),
	}, nil
}

func smaSeries(closes []float64, period int) []float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
}

func emaSeries(closes []float64, period int) []float64 {
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))
}

func rsiSeries(closes []float64, period int) []float64 {
	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
}

func macdSeries(closes []float64) (macd, signal []float64) {
	ind := trend.NewMacd[float64]()
	macdChan, signalChan := ind.Compute(helper.SliceToChan(closes))

	// Both channels must be drained concurrently or the producer blocks.
	done := make(chan struct{})
	go func() {
		signal = helper.ChanToSlice(signalChan)
		close(done)
	}()
	macd = helper.ChanToSlice(macdChan)
	<-done
	return macd, signal
}

func bollingerSeries(closes []float64) (upper, middle, lower []float64) {
	bb := volatility.NewBollingerBands[float64]()
	upperChan, middleChan, lowerChan := bb.Compute(helper.SliceToChan(closes))

	done := make(chan struct{}, 2)
	go func() {
		middle = helper.ChanToSlice(middleChan)
		done <- struct{}{}
	}()
	go func() {
		lower = helper.ChanToSlice(lowerChan)
		done <- struct{}{}
	}()
	upper = helper.ChanToSlice(upperChan)
	<-done
	<-done
	return upper, middle, lower
}

func lastValue(series []float64) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(series[len(series)-1])
}
