package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

var zero = decimal.Zero

// ErrNegativeBalance is returned when a snapshot violates the non-negative
// balance invariant. The run stops instead of producing a plausible-looking
// but wrong ledger.
var ErrNegativeBalance = errors.New("snapshot has negative balance")

// Flag annotates a ledger entry with a per-row anomaly.
type Flag string

const (
	// FlagUnpricedTrade marks an inferred trade that had no usable price
	// and was excluded from notional aggregation.
	FlagUnpricedTrade Flag = "unpriced-trade"
	// FlagInconsistentBasis marks a positive holding with no usable
	// average cost; unrealized profit is unavailable for the entry.
	FlagInconsistentBasis Flag = "inconsistent-basis"
	// FlagUnpricedValuation marks a positive holding with no usable
	// market price; unrealized profit is unavailable for the entry.
	FlagUnpricedValuation Flag = "unpriced-valuation"
)

// LedgerEntry is the cumulative account state after applying all events up
// to and including one snapshot.
type LedgerEntry struct {
	SnapshotID int64     `json:"snapshot_id"`
	Timestamp  time.Time `json:"timestamp"`
	Event      Event     `json:"event"`

	CumulativeBought decimal.Decimal `json:"cumulative_bought"`
	CumulativeSold   decimal.Decimal `json:"cumulative_sold"`
	CumulativeFees   decimal.Decimal `json:"cumulative_fees"`

	// AverageCost is the per-unit acquisition cost of the current holding.
	AverageCost decimal.Decimal `json:"average_cost"`

	RealizedProfit decimal.Decimal `json:"realized_profit"`
	// UnrealizedProfit is only meaningful when UnrealizedKnown is true.
	// It is left zero, not defaulted, when the basis or price is unusable;
	// silently reporting zero would understate risk.
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	UnrealizedKnown  bool            `json:"unrealized_known"`
	TotalProfit      decimal.Decimal `json:"total_profit"`

	// NetInvestment is the capital currently at risk: cash ever converted
	// into the position, minus cash recovered by selling, plus buy fees
	// (sell fees are already netted into realized profit).
	NetInvestment decimal.Decimal `json:"net_investment"`
	// ReturnRate is TotalProfit over NetInvestment in percent, defined as
	// zero when nothing is invested so the series stays chartable.
	ReturnRate decimal.Decimal `json:"return_rate"`

	Flags []Flag `json:"flags,omitempty"`
}

// ExcludedSnapshot reports a row dropped from the ordering-sensitive
// computation, with the reason it was dropped.
type ExcludedSnapshot struct {
	SnapshotID int64  `json:"snapshot_id"`
	Reason     string `json:"reason"`
}

// Result is the full output of one analysis run.
type Result struct {
	Entries  []LedgerEntry      `json:"entries"`
	Excluded []ExcludedSnapshot `json:"excluded,omitempty"`
}

// Run computes the ledger for the given snapshot sequence.
//
// The input is sorted defensively by timestamp with row id as tie-break, so
// callers may pass rows in any order. Per-row anomalies (unpriceable
// events, inconsistent basis, malformed timestamps) are flagged or excluded
// and the run continues; negative balances are a data-integrity error and
// abort the run.
func Run(snapshots []domain.Snapshot, cfg Config) (*Result, error) {
	result := &Result{}

	usable := make([]domain.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.BaseBalance.IsNegative() || s.CashBalance.IsNegative() {
			return nil, errors.Wrapf(ErrNegativeBalance,
				"snapshot %d (base=%s cash=%s)", s.ID, s.BaseBalance, s.CashBalance)
		}
		if s.Timestamp.IsZero() {
			result.Excluded = append(result.Excluded, ExcludedSnapshot{
				SnapshotID: s.ID,
				Reason:     "malformed timestamp",
			})
			continue
		}
		usable = append(usable, s)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].Timestamp.Equal(usable[j].Timestamp) {
			return usable[i].ID < usable[j].ID
		}
		return usable[i].Timestamp.Before(usable[j].Timestamp)
	})

	if len(usable) == 0 {
		return result, nil
	}

	result.Entries = make([]LedgerEntry, 0, len(usable))

	var st ledgerState
	for i, curr := range usable {
		var ev Event
		if i == 0 {
			ev = classifyOpening(curr, cfg)
		} else {
			ev = classify(usable[i-1], curr, cfg)
		}
		ev = price(ev, curr, cfg)

		entry := st.apply(ev, curr, cfg)
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// ledgerState is the running accumulator of the left-fold.
type ledgerState struct {
	cumBought  decimal.Decimal
	cumSold    decimal.Decimal
	cumFees    decimal.Decimal
	cumBuyFees decimal.Decimal
	avgCost    decimal.Decimal
	realized   decimal.Decimal
}

func (st *ledgerState) apply(ev Event, curr domain.Snapshot, cfg Config) LedgerEntry {
	var flags []Flag

	switch {
	case ev.Kind.IsTrade() && ev.Unpriced:
		flags = append(flags, FlagUnpricedTrade)

	case ev.Kind == EventTradeBuy || ev.Kind == EventOpening:
		st.cumBought = st.cumBought.Add(ev.Notional)
		st.cumFees = st.cumFees.Add(ev.Fee)
		st.cumBuyFees = st.cumBuyFees.Add(ev.Fee)
		st.avgCost = buyAverageCost(st.cumBought, curr, cfg)

	case ev.Kind == EventTradeSell:
		soldQty := ev.BaseDelta.Abs()
		costOfSold := soldQty.Mul(st.avgCost)
		st.realized = st.realized.Add(ev.Notional.Sub(costOfSold).Sub(ev.Fee))
		st.cumSold = st.cumSold.Add(ev.Notional)
		st.cumFees = st.cumFees.Add(ev.Fee)
		// A sale does not alter the cost basis of what remains.
	}

	entry := LedgerEntry{
		SnapshotID:       curr.ID,
		Timestamp:        curr.Timestamp,
		Event:            ev,
		CumulativeBought: st.cumBought,
		CumulativeSold:   st.cumSold,
		CumulativeFees:   st.cumFees,
		AverageCost:      st.avgCost,
		RealizedProfit:   st.realized,
	}

	if curr.BaseBalance.GreaterThan(cfg.Epsilon) {
		switch {
		case st.avgCost.LessThanOrEqual(zero):
			flags = append(flags, FlagInconsistentBasis)
		case curr.LastPrice.LessThanOrEqual(zero):
			flags = append(flags, FlagUnpricedValuation)
		default:
			entry.UnrealizedProfit = curr.BaseBalance.Mul(curr.LastPrice.Sub(st.avgCost))
			entry.UnrealizedKnown = true
		}
	} else {
		entry.UnrealizedKnown = true
	}

	entry.TotalProfit = entry.RealizedProfit.Add(entry.UnrealizedProfit)
	entry.NetInvestment = st.cumBought.Sub(st.cumSold).Add(st.cumBuyFees)
	if entry.NetInvestment.GreaterThan(zero) {
		entry.ReturnRate = entry.TotalProfit.
			Div(entry.NetInvestment).
			Mul(decimal.NewFromInt(100))
	}
	entry.Flags = flags

	return entry
}

// buyAverageCost resolves the basis after a buy. The exchange-reported
// average cost is preferred when positive because it reflects the
// exchange's own exact accounting (fees included); otherwise fall back to
// cumulative bought notional over the current holding.
func buyAverageCost(cumBought decimal.Decimal, curr domain.Snapshot, cfg Config) decimal.Decimal {
	if curr.ReportedAvgCost.GreaterThan(zero) {
		return curr.ReportedAvgCost
	}
	qty := curr.BaseBalance
	if qty.LessThanOrEqual(zero) {
		qty = cfg.Epsilon
	}
	return cumBought.Div(qty)
}

// String implements fmt.Stringer for log-friendly one-liners.
func (e LedgerEntry) String() string {
	return fmt.Sprintf("snapshot=%d kind=%s realized=%s unrealized=%s total=%s",
		e.SnapshotID, e.Event.Kind, e.RealizedProfit, e.UnrealizedProfit, e.TotalProfit)
}
