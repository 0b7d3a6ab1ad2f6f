// Package ledgertest provides a conformance suite for redemption.Ledger
// implementations.
package ledgertest

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ggoodman/l402-go/redemption"
)

// LedgerFactory creates a fresh Ledger for one subtest. Implementations should
// register cleanup with t.Cleanup.
type LedgerFactory func(t *testing.T) redemption.Ledger

// RunLedgerTests runs the complete Ledger test suite against the provided factory.
func RunLedgerTests(t *testing.T, factory LedgerFactory) {
	t.Run("Redeem_FirstWinsSecondRefused", func(t *testing.T) { testFirstWins(t, factory) })
	t.Run("Redeem_IsolationBetweenHashes", func(t *testing.T) { testIsolation(t, factory) })
	t.Run("Redeem_ConcurrentExactlyOnce", func(t *testing.T) { testConcurrentExactlyOnce(t, factory) })
	t.Run("Redeem_ZeroTTLRetained", func(t *testing.T) { testZeroTTL(t, factory) })
	t.Run("Redeem_CanceledContext", func(t *testing.T) { testCanceledContext(t, factory) })
}

func testFirstWins(t *testing.T, factory LedgerFactory) {
	l := factory(t)
	ctx := context.Background()

	ok, err := l.Redeem(ctx, "hash-1", time.Hour)
	require.NoError(t, err)
	require.True(t, ok, "first redeem must succeed")
	for i := 0; i < 3; i++ {
		ok, err = l.Redeem(ctx, "hash-1", time.Hour)
		require.NoError(t, err)
		require.False(t, ok, "repeat redeem %d must be refused", i)
	}
}

func testIsolation(t *testing.T, factory LedgerFactory) {
	l := factory(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		h := "iso-" + strconv.Itoa(i)
		ok, err := l.Redeem(ctx, h, time.Hour)
		require.NoError(t, err)
		require.True(t, ok, "distinct hash %s refused", h)
	}
}

func testConcurrentExactlyOnce(t *testing.T, factory LedgerFactory) {
	l := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := l.Redeem(ctx, "contended", time.Hour)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), wins.Load(), "exactly one winner")
}

func testZeroTTL(t *testing.T, factory LedgerFactory) {
	l := factory(t)
	ctx := context.Background()

	ok, err := l.Redeem(ctx, "forever", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Redeem(ctx, "forever", 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func testCanceledContext(t *testing.T, factory LedgerFactory) {
	l := factory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Redeem(ctx, "canceled", time.Hour)
	require.Error(t, err)

	// A failed attempt must not consume the hash.
	ok, err := l.Redeem(context.Background(), "canceled", time.Hour)
	require.NoError(t, err)
	require.True(t, ok, "hash consumed by a canceled attempt")
}
