package analysis

import "github.com/jeongwoo-hong/jwcoin/internal/domain"

// price fills in the notional and fee for a classified event.
//
// A single snapshot may aggregate several fills; the whole delta is
// approximated as one fill at the current snapshot's price. This is a known
// source of error versus ground truth, accepted because the log does not
// record the intra-event execution path.
func price(ev Event, curr domain.Snapshot, cfg Config) Event {
	switch ev.Kind {
	case EventDeposit, EventWithdraw:
		ev.Notional = ev.CashDelta.Abs()
		return ev
	case EventTradeBuy, EventTradeSell, EventOpening:
		if curr.LastPrice.LessThanOrEqual(zero) {
			// Cannot be valued; flag instead of fabricating a price.
			ev.Unpriced = true
			return ev
		}
		ev.Notional = ev.BaseDelta.Abs().Mul(curr.LastPrice)
		ev.Fee = ev.Notional.Mul(cfg.FeeRate)
		return ev
	default:
		return ev
	}
}
