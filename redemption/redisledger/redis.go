package redisledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/l402-go/redemption"
)

const defaultKeyPrefix = "l402:redeemed:"

// Config for the Redis-backed ledger. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: L402_REDEMPTION_KEY_PREFIX
	KeyPrefix string `env:"L402_REDEMPTION_KEY_PREFIX,default=l402:redeemed:"`

	// Client, when set, is used instead of dialing RedisAddr. The ledger does
	// not close a caller supplied client.
	Client *redis.Client `env:"-"`
}

var _ redemption.Ledger = (*Ledger)(nil)

// Ledger is a Redis-backed redemption.Ledger.
type Ledger struct {
	client    *redis.Client
	ownClient bool
	keyPrefix string
}

// New connects to Redis and verifies the connection with PING.
func New(cfg Config) (*Ledger, error) {
	cl, own := cfg.Client, false
	if cl == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl, own = redis.NewClient(&redis.Options{Addr: addr}), true
	}
	if err := cl.Ping(context.Background()).Err(); err != nil {
		if own {
			_ = cl.Close()
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Ledger{client: cl, ownClient: own, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Ledger using envdecode to populate Config.
func NewFromEnv() (*Ledger, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("redisledger: decode env: %w", err)
	}
	return New(cfg)
}

// Redeem implements redemption.Ledger.
func (l *Ledger) Redeem(ctx context.Context, paymentHash string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := l.client.SetNX(ctx, l.key(paymentHash), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redisledger: setnx: %w", err)
	}
	return ok, nil
}

// Close closes the Redis client if the ledger created it.
func (l *Ledger) Close() error {
	if !l.ownClient {
		return nil
	}
	return l.client.Close()
}

func (l *Ledger) key(paymentHash string) string { return l.keyPrefix + paymentHash }
