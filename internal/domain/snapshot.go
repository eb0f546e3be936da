package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType tags how a snapshot row came to exist. Trade rows are written by
// the trading loop; deposit/withdrawal rows by the manual adjustment tool.
type TxType string

const (
	TxTypeTrade      TxType = "trade"
	TxTypeDeposit    TxType = "deposit"
	TxTypeWithdrawal TxType = "withdrawal"
	TxTypeFee        TxType = "fee"
	TxTypeOther      TxType = "other"
)

// Snapshot is one recorded account state. Rows are immutable once written;
// correcting history means appending or deleting rows, never editing them.
type Snapshot struct {
	// ID is the store row id, the tie-breaker for duplicate timestamps.
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Decision is the advisory buy/sell/hold tag recorded with the row.
	// It is not authoritative for event classification.
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	// BaseBalance is the held quantity of the traded asset.
	BaseBalance decimal.Decimal `json:"base_balance"`
	// CashBalance is the held quote currency amount.
	CashBalance decimal.Decimal `json:"cash_balance"`
	// LastPrice is the market price observed at snapshot time.
	LastPrice decimal.Decimal `json:"last_price"`
	// ReportedAvgCost is the exchange's own running average acquisition
	// cost per unit. May be stale or zero when BaseBalance is zero.
	ReportedAvgCost decimal.Decimal `json:"reported_avg_cost"`
	TxType          TxType          `json:"tx_type"`
	ManualEntry     bool            `json:"manual_entry,omitempty"`
	Note            string          `json:"note,omitempty"`
}

// Flat reports whether the snapshot holds no base asset.
func (s Snapshot) Flat() bool {
	return s.BaseBalance.IsZero()
}

// TotalValue returns cash plus holdings valued at the snapshot price.
func (s Snapshot) TotalValue() decimal.Decimal {
	return s.CashBalance.Add(s.BaseBalance.Mul(s.LastPrice))
}
