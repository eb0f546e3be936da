package audit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

func snap(id int64, base, cash float64, txType domain.TxType) domain.Snapshot {
	return domain.Snapshot{
		ID:          id,
		Timestamp:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		BaseBalance: decimal.NewFromFloat(base),
		CashBalance: decimal.NewFromFloat(cash),
		LastPrice:   decimal.NewFromInt(60_000_000),
		TxType:      txType,
	}
}

func newScanner() *Scanner {
	return NewScanner(analysis.DefaultConfig(), zap.NewNop())
}

func TestScan_FlagsUnexplainedCashJump(t *testing.T) {
	findings := newScanner().Scan([]domain.Snapshot{
		snap(1, 0.1, 500_000, domain.TxTypeTrade),
		snap(2, 0.1, 2_500_000, domain.TxTypeTrade),
	})

	require.Len(t, findings, 1)
	require.Equal(t, int64(2), findings[0].SnapshotID)
	require.Equal(t, domain.TxTypeDeposit, findings[0].Suggestion)
}

func TestScan_SuggestsWithdrawalForCashDrop(t *testing.T) {
	findings := newScanner().Scan([]domain.Snapshot{
		snap(1, 0.1, 2_500_000, domain.TxTypeTrade),
		snap(2, 0.1, 500_000, domain.TxTypeTrade),
	})

	require.Len(t, findings, 1)
	require.Equal(t, domain.TxTypeWithdrawal, findings[0].Suggestion)
}

func TestScan_IgnoresLabeledDeposits(t *testing.T) {
	findings := newScanner().Scan([]domain.Snapshot{
		snap(1, 0.1, 500_000, domain.TxTypeTrade),
		snap(2, 0.1, 2_500_000, domain.TxTypeDeposit),
	})
	require.Empty(t, findings)
}

func TestScan_IgnoresCashMovedByTrades(t *testing.T) {
	findings := newScanner().Scan([]domain.Snapshot{
		snap(1, 0.1, 2_500_000, domain.TxTypeTrade),
		snap(2, 0.14, 100_000, domain.TxTypeTrade),
	})
	require.Empty(t, findings)
}

func TestScan_IgnoresSmallFluctuations(t *testing.T) {
	findings := newScanner().Scan([]domain.Snapshot{
		snap(1, 0.1, 500_000, domain.TxTypeTrade),
		snap(2, 0.1, 500_500, domain.TxTypeTrade),
	})
	require.Empty(t, findings)
}
