package analysis

import "github.com/shopspring/decimal"

// EventKind classifies what happened between two adjacent snapshots.
type EventKind string

const (
	// EventTradeBuy is an observed increase of the base-asset balance.
	EventTradeBuy EventKind = "trade-buy"
	// EventTradeSell is an observed decrease of the base-asset balance.
	EventTradeSell EventKind = "trade-sell"
	// EventOpening is the implicit buy synthesized for a first snapshot
	// that already holds base asset. The acquisition history before the
	// log began is unknown; the whole balance is approximated as a single
	// fill at that snapshot's price.
	EventOpening EventKind = "opening"
	// EventDeposit is a cash increase with no base-asset movement.
	EventDeposit EventKind = "deposit"
	// EventWithdraw is a cash decrease with no base-asset movement.
	EventWithdraw EventKind = "withdraw"
	// EventNoOp marks a pair whose deltas are all within noise.
	EventNoOp EventKind = "no-op"
)

// IsTrade reports whether the event moves the cost basis.
func (k EventKind) IsTrade() bool {
	return k == EventTradeBuy || k == EventTradeSell || k == EventOpening
}

// Event is the derived change between two adjacent snapshots. Events are
// recomputed on every run and never persisted.
type Event struct {
	Kind      EventKind       `json:"kind"`
	BaseDelta decimal.Decimal `json:"base_delta"`
	CashDelta decimal.Decimal `json:"cash_delta"`
	// Notional is the cash-equivalent size of the event: priced from
	// BaseDelta for trades, from CashDelta for cash movements.
	Notional decimal.Decimal `json:"notional"`
	// Fee is the estimated trading fee, trades only.
	Fee decimal.Decimal `json:"fee"`
	// Unpriced is set when a trade could not be valued because the
	// snapshot price was missing or non-positive. Unpriced trades are
	// excluded from notional aggregation.
	Unpriced bool `json:"unpriced,omitempty"`
}
