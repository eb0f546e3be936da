package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

type stubTradeReader struct {
	snapshots []domain.Snapshot
}

func (s *stubTradeReader) List() ([]domain.Snapshot, error) {
	return s.snapshots, nil
}

func (s *stubTradeReader) After(id int64) ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	for _, snap := range s.snapshots {
		if snap.ID > id {
			out = append(out, snap)
		}
	}
	return out, nil
}

func TestHandleLedger(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &stubTradeReader{snapshots: []domain.Snapshot{
		{
			ID: 1, Timestamp: ts, Decision: domain.ActionBuy,
			BaseBalance: decimal.NewFromFloat(0.01),
			CashBalance: decimal.NewFromInt(400_000),
			LastPrice:   decimal.NewFromInt(60_000_000),
			TxType:      domain.TxTypeTrade,
		},
		{
			ID: 2, Timestamp: ts.Add(time.Hour), Decision: domain.ActionHold,
			BaseBalance: decimal.NewFromFloat(0.01),
			CashBalance: decimal.NewFromInt(400_000),
			LastPrice:   decimal.NewFromInt(62_000_000),
			TxType:      domain.TxTypeTrade,
		},
	}}

	srv := NewServer(":0", store, nil, analysis.DefaultConfig())
	rec := httptest.NewRecorder()
	srv.handleLedger(rec, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Entries, 2)
	require.True(t, result.Entries[0].CumulativeBought.IsPositive())
}

func TestHandleLedger_NegativeBalanceRejected(t *testing.T) {
	store := &stubTradeReader{snapshots: []domain.Snapshot{
		{
			ID: 1, Timestamp: time.Now(),
			BaseBalance: decimal.NewFromFloat(-0.01),
			CashBalance: decimal.NewFromInt(400_000),
			LastPrice:   decimal.NewFromInt(60_000_000),
		},
	}}

	srv := NewServer(":0", store, nil, analysis.DefaultConfig())
	rec := httptest.NewRecorder()
	srv.handleLedger(rec, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestParseLastEventID(t *testing.T) {
	require.Equal(t, uint64(42), parseLastEventID("42", ""))
	require.Equal(t, uint64(7), parseLastEventID("", "7"))
	require.Equal(t, uint64(42), parseLastEventID("42", "7"))
	require.Equal(t, uint64(0), parseLastEventID("", ""))
	require.Equal(t, uint64(0), parseLastEventID("not-a-number", ""))
}

func TestThinSnapshots(t *testing.T) {
	snapshots := make([]domain.Snapshot, 500)
	for i := range snapshots {
		snapshots[i] = domain.Snapshot{ID: int64(i + 1)}
	}

	thinned := thinSnapshots(snapshots)
	require.Less(t, len(thinned), len(snapshots))

	// the most recent 100 rows survive untouched
	tail := thinned[len(thinned)-100:]
	for i, snap := range tail {
		require.Equal(t, snapshots[400+i].ID, snap.ID)
	}
}

func TestThinSnapshots_SmallInputUntouched(t *testing.T) {
	snapshots := make([]domain.Snapshot, 50)
	for i := range snapshots {
		snapshots[i] = domain.Snapshot{ID: int64(i + 1)}
	}
	require.Len(t, thinSnapshots(snapshots), 50)
}
