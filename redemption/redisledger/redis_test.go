package redisledger

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ggoodman/l402-go/redemption"
	"github.com/ggoodman/l402-go/redemption/ledgertest"
)

func newMiniLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := New(Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestRedisLedger(t *testing.T) {
	ledgertest.RunLedgerTests(t, func(t *testing.T) redemption.Ledger {
		l, _ := newMiniLedger(t)
		return l
	})
}

// TestRedisLedger_Live runs the suite against a real server when one is
// reachable through REDIS_ADDR (or localhost).
func TestRedisLedger_Live(t *testing.T) {
	l, err := NewFromEnv()
	if err != nil {
		t.Skipf("skipping live redis ledger tests: %v", err)
		return
	}
	_ = l.Close()

	ledgertest.RunLedgerTests(t, func(t *testing.T) redemption.Ledger {
		prefix := "l402:test:" + strconv.FormatInt(time.Now().UnixNano(), 36) + ":"
		ll, err := New(Config{RedisAddr: l.client.Options().Addr, KeyPrefix: prefix})
		require.NoError(t, err)
		t.Cleanup(func() { _ = ll.Close() })
		return ll
	})
}

func TestRedisLedger_KeyAndTTL(t *testing.T) {
	l, mr := newMiniLedger(t)
	ctx := context.Background()

	ok, err := l.Redeem(ctx, "abcd", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, mr.Exists("l402:redeemed:abcd"))
	require.Equal(t, time.Minute, mr.TTL("l402:redeemed:abcd"))

	mr.FastForward(time.Minute)
	ok, err = l.Redeem(ctx, "abcd", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "record must lapse with its key")
}

func TestRedisLedger_CustomPrefixAndClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l, err := New(Config{Client: client, KeyPrefix: "paywall:"})
	require.NoError(t, err)

	_, err = l.Redeem(context.Background(), "ff", time.Hour)
	require.NoError(t, err)
	require.True(t, mr.Exists("paywall:ff"))

	// closing the ledger leaves a caller supplied client usable
	require.NoError(t, l.Close())
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisLedger_BackendFailure(t *testing.T) {
	l, mr := newMiniLedger(t)
	mr.Close()

	_, err := l.Redeem(context.Background(), "h", time.Minute)
	require.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(Config{RedisAddr: "127.0.0.1:1"})
	require.Error(t, err)
}
