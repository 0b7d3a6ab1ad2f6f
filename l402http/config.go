package l402http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/ggoodman/l402-go/credential"
	"github.com/ggoodman/l402-go/keyring"
	"github.com/ggoodman/l402-go/redemption/memoryledger"
)

// Config for a Middleware. Defaults can be loaded via envdecode.
type Config struct {
	// Secret signs challenges. ENV: L402_SECRET
	Secret string `env:"L402_SECRET"`
	// KeysFile is a JWK Set of oct keys, reloaded on change. Takes precedence
	// over Secret. ENV: L402_KEYS_FILE
	KeysFile string `env:"L402_KEYS_FILE"`
	// Realm advertised in challenges. ENV: L402_REALM
	Realm string `env:"L402_REALM"`
	// ChallengeTTL is the validity of issued challenges. ENV: L402_CHALLENGE_TTL
	ChallengeTTL time.Duration `env:"L402_CHALLENGE_TTL,default=1h"`
	// BindBody binds challenges to the request body. ENV: L402_BIND_BODY
	BindBody bool `env:"L402_BIND_BODY,default=false"`
	// MaxBodyBytes bounds bodies read for binding. ENV: L402_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"L402_MAX_BODY_BYTES,default=1048576"`
	// SingleUse makes each payment good for one request. Without WithLedger an
	// in-memory ledger is used. ENV: L402_SINGLE_USE
	SingleUse bool `env:"L402_SINGLE_USE,default=false"`
}

// ConfigFromEnv populates a Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("l402http: decode env: %w", err)
	}
	return cfg, nil
}

// NewFromConfig builds a Middleware from cfg. Options are applied after the
// values taken from cfg and so override them. When cfg names a keys file it is
// watched until ctx is done.
func NewFromConfig(ctx context.Context, cfg Config, invoices InvoiceProvider, opts ...Option) (*Middleware, error) {
	resolved := defaultConfig()
	for _, opt := range opts {
		opt(resolved)
	}

	var keys credential.Keys
	switch {
	case cfg.KeysFile != "":
		ring, err := keyring.Watch(ctx, cfg.KeysFile, resolved.logger)
		if err != nil {
			return nil, err
		}
		keys = ring
	case cfg.Secret != "":
		keys = credential.StaticKey([]byte(cfg.Secret))
	default:
		return nil, ErrNoSecret
	}

	base := []Option{
		WithRealm(cfg.Realm),
		WithChallengeTTL(cfg.ChallengeTTL),
		WithBodyBinding(cfg.BindBody),
		WithMaxBodyBytes(cfg.MaxBodyBytes),
	}

	var owned *memoryledger.Ledger
	if cfg.SingleUse && resolved.ledger == nil {
		l, err := memoryledger.New()
		if err != nil {
			return nil, err
		}
		owned = l
		base = append(base, WithLedger(l))
	}

	m, err := New(keys, invoices, append(base, opts...)...)
	if err != nil {
		if owned != nil {
			_ = owned.Close()
		}
		return nil, err
	}
	if owned != nil {
		m.closers = append(m.closers, owned)
	}
	return m, nil
}
