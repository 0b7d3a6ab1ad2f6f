package memoryledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ggoodman/l402-go/redemption"
)

// DefaultSize is the number of records retained when WithSize is not given.
const DefaultSize = 100_000

// DefaultSweepInterval is how often expired records are purged.
const DefaultSweepInterval = 5 * time.Minute

var _ redemption.Ledger = (*Ledger)(nil)

// Ledger is an in-memory redemption.Ledger.
type Ledger struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, time.Time] // hash -> expiresAt (zero = none)
	clock  clock.Clock
	closed bool

	stop chan struct{}
	done chan struct{}
}

type options struct {
	size          int
	sweepInterval time.Duration
	clock         clock.Clock
}

// Option configures a Ledger.
type Option func(*options)

// WithSize bounds the number of retained records.
func WithSize(n int) Option { return func(o *options) { o.size = n } }

// WithSweepInterval sets how often expired records are purged. A value <= 0
// disables the background sweep; expired records are then only dropped when
// touched or evicted.
func WithSweepInterval(d time.Duration) Option { return func(o *options) { o.sweepInterval = d } }

// WithClock substitutes the time source, mainly for tests.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// New creates an in-memory ledger.
func New(opts ...Option) (*Ledger, error) {
	o := options{size: DefaultSize, sweepInterval: DefaultSweepInterval, clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := lru.New[string, time.Time](o.size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	l := &Ledger{
		cache: cache,
		clock: o.clock,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if o.sweepInterval > 0 {
		go l.sweep(l.clock.Ticker(o.sweepInterval))
	} else {
		close(l.done)
	}
	return l, nil
}

// Redeem implements redemption.Ledger.
func (l *Ledger) Redeem(ctx context.Context, paymentHash string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, redemption.ErrClosed
	}
	if exp, ok := l.cache.Get(paymentHash); ok && !expired(exp, now) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.cache.Add(paymentHash, exp)
	return true, nil
}

// Len reports the number of retained records, expired or not.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}

// Close stops the sweeper and drops all records.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.cache.Purge()
	l.mu.Unlock()

	close(l.stop)
	<-l.done
	return nil
}

func (l *Ledger) sweep(ticker *clock.Ticker) {
	defer close(l.done)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.purgeExpired()
		}
	}
}

func (l *Ledger) purgeExpired() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range l.cache.Keys() {
		if exp, ok := l.cache.Peek(key); ok && expired(exp, now) {
			l.cache.Remove(key)
		}
	}
}

func expired(exp, now time.Time) bool {
	return !exp.IsZero() && !now.Before(exp)
}
