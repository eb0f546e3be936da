package decisions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

func event(action string) domain.DecisionEvent {
	return domain.DecisionEvent{
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Pair:       "BTC_KRW",
		Action:     action,
		Reason:     "test",
		Confidence: 0.5,
		Executed:   action != domain.ActionHold,
	}
}

func TestWALStore_SaveAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(event(domain.ActionBuy)))
	require.NoError(t, store.Save(event(domain.ActionHold)))
	require.NoError(t, store.Save(event(domain.ActionSell)))

	records, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, domain.ActionBuy, records[0].Event.Action)
	require.Equal(t, domain.ActionSell, records[2].Event.Action)

	// resume mid-stream
	records, err = store.EventsAfter(records[1].Index)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.ActionSell, records[0].Event.Action)
}

func TestWALStore_RejectsEventWithoutPair(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ev := event(domain.ActionBuy)
	ev.Pair = ""
	require.Error(t, store.Save(ev))
}

func TestWALStore_EmptyLogYieldsNothing(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	records, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, store.CurrentIndex())
}
