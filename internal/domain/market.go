package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV data point.
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// OrderbookUnit is one price level on both sides of the book.
type OrderbookUnit struct {
	BidPrice decimal.Decimal `json:"bid_price"`
	BidSize  decimal.Decimal `json:"bid_size"`
	AskPrice decimal.Decimal `json:"ask_price"`
	AskSize  decimal.Decimal `json:"ask_size"`
}

// Orderbook is the aggregated order book for a market.
type Orderbook struct {
	TotalBidSize decimal.Decimal `json:"total_bid_size"`
	TotalAskSize decimal.Decimal `json:"total_ask_size"`
	Units        []OrderbookUnit `json:"orderbook_units"`
}

// BestAsk returns the lowest ask price, or zero when the book is empty.
func (o Orderbook) BestAsk() decimal.Decimal {
	if len(o.Units) == 0 {
		return decimal.Zero
	}
	return o.Units[0].AskPrice
}

// AccountStatus is the exchange-reported account state for one pair.
type AccountStatus struct {
	CashBalance decimal.Decimal `json:"cash_balance"`
	BaseBalance decimal.Decimal `json:"base_balance"`
	LastPrice   decimal.Decimal `json:"last_price"`
	// AvgBuyPrice is the exchange's running average acquisition cost.
	AvgBuyPrice decimal.Decimal `json:"avg_buy_price"`
}

// BaseValue returns the holdings valued at the last price.
func (a AccountStatus) BaseValue() decimal.Decimal {
	return a.BaseBalance.Mul(a.LastPrice)
}

// TotalValue returns cash plus holdings value.
func (a AccountStatus) TotalValue() decimal.Decimal {
	return a.CashBalance.Add(a.BaseValue())
}
