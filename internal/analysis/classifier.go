package analysis

import (
	"strings"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// Reason prefixes written by the manual adjustment tool. When present they
// are authoritative and beat the delta heuristic.
const (
	manualDepositPrefix  = "Manual deposit:"
	manualWithdrawPrefix = "Manual withdraw:"
)

// classify derives the event kind and raw deltas for one adjacent snapshot
// pair. It never fails: ambiguous pairs degrade to no-op because the log is
// best-effort telemetry, not a transactional journal.
func classify(prev, curr domain.Snapshot, cfg Config) Event {
	ev := Event{
		BaseDelta: curr.BaseBalance.Sub(prev.BaseBalance),
		CashDelta: curr.CashBalance.Sub(prev.CashBalance),
	}

	// Explicit tagging first: rows appended by the adjustment tool carry a
	// transaction type or a recognizable reason prefix.
	if kind, ok := taggedCashMovement(curr); ok {
		ev.Kind = kind
		return ev
	}

	switch {
	case ev.BaseDelta.GreaterThan(cfg.Epsilon):
		ev.Kind = EventTradeBuy
	case ev.BaseDelta.LessThan(cfg.Epsilon.Neg()):
		ev.Kind = EventTradeSell
	case ev.CashDelta.GreaterThanOrEqual(cfg.MaterialityThreshold):
		ev.Kind = EventDeposit
	case ev.CashDelta.LessThanOrEqual(cfg.MaterialityThreshold.Neg()):
		ev.Kind = EventWithdraw
	default:
		ev.Kind = EventNoOp
	}
	return ev
}

// classifyOpening synthesizes the implicit buy for the first snapshot when
// it already holds base asset.
func classifyOpening(first domain.Snapshot, cfg Config) Event {
	if first.BaseBalance.LessThanOrEqual(cfg.Epsilon) {
		return Event{Kind: EventNoOp}
	}
	return Event{
		Kind:      EventOpening,
		BaseDelta: first.BaseBalance,
	}
}

func taggedCashMovement(s domain.Snapshot) (EventKind, bool) {
	switch s.TxType {
	case domain.TxTypeDeposit:
		return EventDeposit, true
	case domain.TxTypeWithdrawal:
		return EventWithdraw, true
	}
	if strings.HasPrefix(s.Reason, manualDepositPrefix) {
		return EventDeposit, true
	}
	if strings.HasPrefix(s.Reason, manualWithdrawPrefix) {
		return EventWithdraw, true
	}
	return "", false
}
