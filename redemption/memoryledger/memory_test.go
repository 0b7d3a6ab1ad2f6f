package memoryledger

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/ggoodman/l402-go/redemption"
	"github.com/ggoodman/l402-go/redemption/ledgertest"
)

func TestMemoryLedger(t *testing.T) {
	ledgertest.RunLedgerTests(t, func(t *testing.T) redemption.Ledger {
		l, err := New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	})
}

func TestMemoryLedger_TTLLapses(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(WithClock(mock), WithSweepInterval(0))
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	ok, err := l.Redeem(ctx, "h", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mock.Add(59 * time.Second)
	ok, err = l.Redeem(ctx, "h", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "record must hold until its ttl")

	mock.Add(time.Second)
	ok, err = l.Redeem(ctx, "h", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "record must lapse at its ttl")
}

func TestMemoryLedger_ZeroTTLNeverLapses(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(WithClock(mock), WithSweepInterval(0))
	require.NoError(t, err)
	defer l.Close()

	ok, _ := l.Redeem(context.Background(), "h", 0)
	require.True(t, ok)
	mock.Add(24 * 365 * time.Hour)
	ok, _ = l.Redeem(context.Background(), "h", 0)
	require.False(t, ok)
}

func TestMemoryLedger_SweepPurgesExpired(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(WithClock(mock), WithSweepInterval(time.Minute))
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	_, _ = l.Redeem(ctx, "short", 30*time.Second)
	_, _ = l.Redeem(ctx, "long", time.Hour)
	require.Equal(t, 2, l.Len())

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return l.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryLedger_Eviction(t *testing.T) {
	l, err := New(WithSize(2), WithSweepInterval(0))
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	for _, h := range []string{"a", "b", "c"} {
		ok, err := l.Redeem(ctx, h, time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 2, l.Len())
	ok, _ := l.Redeem(ctx, "a", time.Hour)
	require.True(t, ok, "evicted record no longer blocks")
}

func TestMemoryLedger_Closed(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Redeem(context.Background(), "h", time.Minute)
	require.ErrorIs(t, err, redemption.ErrClosed)
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(WithSize(0))
	require.Error(t, err)
}
