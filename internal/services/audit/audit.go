// Package audit scans the trade history for cash movements that no trade
// explains, so untagged deposits and withdrawals can be found and labeled
// before they distort the profit figures.
package audit

import (
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// Finding is a snapshot whose cash balance jumped without a matching trade
// or manual deposit/withdraw label.
type Finding struct {
	SnapshotID int64
	Timestamp  string
	CashDelta  string
	Suggestion domain.TxType
}

// Scanner detects unexplained cash movements between adjacent snapshots.
type Scanner struct {
	cfg    analysis.Config
	logger *zap.Logger
}

func NewScanner(cfg analysis.Config, logger *zap.Logger) *Scanner {
	return &Scanner{cfg: cfg, logger: logger}
}

// Scan walks the snapshots in order and reports rows where cash moved by at
// least the materiality threshold while the coin balance stayed flat and the
// row carries no deposit or withdrawal label.
func (s *Scanner) Scan(snapshots []domain.Snapshot) []Finding {
	var findings []Finding

	for i := 1; i < len(snapshots); i++ {
		prev, curr := snapshots[i-1], snapshots[i]

		if curr.TxType == domain.TxTypeDeposit || curr.TxType == domain.TxTypeWithdrawal {
			continue
		}

		baseDelta := curr.BaseBalance.Sub(prev.BaseBalance)
		if baseDelta.Abs().GreaterThan(s.cfg.Epsilon) {
			continue // explained by a trade
		}

		cashDelta := curr.CashBalance.Sub(prev.CashBalance)
		if cashDelta.Abs().LessThan(s.cfg.MaterialityThreshold) {
			continue
		}

		suggestion := domain.TxTypeDeposit
		if cashDelta.IsNegative() {
			suggestion = domain.TxTypeWithdrawal
		}

		findings = append(findings, Finding{
			SnapshotID: curr.ID,
			Timestamp:  curr.Timestamp.Format("2006-01-02 15:04:05"),
			CashDelta:  cashDelta.String(),
			Suggestion: suggestion,
		})
	}

	if len(findings) > 0 {
		s.logger.Warn("unexplained cash movements found",
			zap.Int("count", len(findings)))
	}
	return findings
}
