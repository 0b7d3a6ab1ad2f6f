package l402http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/ggoodman/l402-go/credential"
	"github.com/ggoodman/l402-go/internal/logctx"
	"github.com/ggoodman/l402-go/redemption"
)

const (
	// DefaultChallengeTTL is how long an issued challenge stays redeemable.
	DefaultChallengeTTL = time.Hour
	// DefaultMaxBodyBytes bounds the body read for body binding.
	DefaultMaxBodyBytes int64 = 1 << 20
)

// InvoiceProvider mints a bolt11 invoice for a request that must be paid for.
// The invoice's payment hash is what the issued challenge binds to.
type InvoiceProvider interface {
	CreateInvoice(ctx context.Context, r *http.Request) (string, error)
}

// InvoiceProviderFunc adapts a function to InvoiceProvider.
type InvoiceProviderFunc func(ctx context.Context, r *http.Request) (string, error)

func (f InvoiceProviderFunc) CreateInvoice(ctx context.Context, r *http.Request) (string, error) {
	return f(ctx, r)
}

// Option configures a Middleware.
type Option func(*newConfig)

type newConfig struct {
	logger       *slog.Logger
	realm        string
	ledger       redemption.Ledger
	clock        clock.Clock
	bindBody     bool
	challengeTTL time.Duration
	maxBodyBytes int64
}

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithRealm sets the realm advertised in challenges. Empty (the default)
// omits the attribute.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithLedger makes credentials single-use: each payment hash authorizes one
// request and later presentations receive a fresh challenge.
func WithLedger(l redemption.Ledger) Option {
	return func(c *newConfig) { c.ledger = l }
}

// WithClock substitutes the time source used for expiry decisions.
func WithClock(cl clock.Clock) Option {
	return func(c *newConfig) { c.clock = cl }
}

// WithBodyBinding binds each challenge to the request body that triggered it;
// the paid retry must carry the same body.
func WithBodyBinding(enabled bool) Option {
	return func(c *newConfig) { c.bindBody = enabled }
}

// WithChallengeTTL sets the validity of issued challenges. Non-positive values
// keep the default.
func WithChallengeTTL(d time.Duration) Option {
	return func(c *newConfig) {
		if d > 0 {
			c.challengeTTL = d
		}
	}
}

// WithMaxBodyBytes bounds the request body read for body binding.
// Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(c *newConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

func defaultConfig() *newConfig {
	return &newConfig{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:        clock.New(),
		challengeTTL: DefaultChallengeTTL,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Middleware authorizes requests with L402 credentials.
type Middleware struct {
	keys     credential.Keys
	invoices InvoiceProvider
	log      *slog.Logger
	realm    string
	ledger   redemption.Ledger
	clock    clock.Clock

	bindBody     bool
	challengeTTL time.Duration
	maxBodyBytes int64

	closers []io.Closer
}

// New creates a Middleware that signs challenges with keys and obtains
// invoices from invoices.
func New(keys credential.Keys, invoices InvoiceProvider, opts ...Option) (*Middleware, error) {
	if keys == nil {
		return nil, ErrNoSecret
	}
	if invoices == nil {
		return nil, ErrNoInvoiceProvider
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Middleware{
		keys:         keys,
		invoices:     invoices,
		log:          logctx.Wrap(cfg.logger),
		realm:        cfg.realm,
		ledger:       cfg.ledger,
		clock:        cfg.clock,
		bindBody:     cfg.bindBody,
		challengeTTL: cfg.challengeTTL,
		maxBodyBytes: cfg.maxBodyBytes,
	}, nil
}

// Close releases resources the Middleware created itself, such as a ledger
// built by NewFromConfig. Caller supplied ledgers are left open.
func (m *Middleware) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Wrap returns a handler that serves next only for requests carrying a valid,
// paid credential.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID:  uuid.NewString(),
			Method:     r.Method,
			UserAgent:  r.UserAgent(),
			RemoteAddr: r.RemoteAddr,
			Path:       r.URL.Path,
		})
		r = r.WithContext(ctx)

		vc, ok := m.authorize(ctx, w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(withCredential(r.Context(), vc)))
	})
}

// authorize runs the credential checks. On failure the response has been
// written and ok is false.
func (m *Middleware) authorize(ctx context.Context, w http.ResponseWriter, r *http.Request) (vc *credential.VerifiedCredential, ok bool) {
	start := time.Now()

	var body []byte
	if m.bindBody {
		var err error
		body, err = readBody(w, r, m.maxBodyBytes)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				m.log.InfoContext(ctx, "l402.body.too_large", slog.Int64("limit", m.maxBodyBytes))
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return nil, false
			}
			m.log.WarnContext(ctx, "l402.body.read.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusBadRequest, "unable to read request body")
			return nil, false
		}
	}

	header := r.Header.Get(authorizationHeader)
	if strings.TrimSpace(header) == "" {
		m.log.InfoContext(ctx, "l402.check.missing")
		m.challenge(ctx, w, r, body, "payment required")
		return nil, false
	}

	vc, err := credential.VerifyProofHeaderWithKeys(header, m.keys)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrInvalidSignature):
			m.log.InfoContext(ctx, "l402.verify.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusUnauthorized, "invalid credential signature")
		case errors.Is(err, credential.ErrMalformedHeader), errors.Is(err, credential.ErrDecoding):
			m.log.InfoContext(ctx, "l402.verify.invalid", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusBadRequest, "malformed L402 credential")
		default:
			m.log.ErrorContext(ctx, "l402.verify.err", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, "unable to verify credential")
		}
		return nil, false
	}

	ctx = logctx.WithCredentialData(ctx, &logctx.CredentialData{PaymentHash: vc.PaymentHash()})
	now := m.clock.Now()

	if !vc.IsPaid() {
		m.log.InfoContext(ctx, "l402.check.unpaid")
		m.challenge(ctx, w, r, body, "payment preimage does not match")
		return nil, false
	}
	if vc.IsExpiredAt(now) {
		m.log.InfoContext(ctx, "l402.check.expired")
		m.challenge(ctx, w, r, body, "credential expired")
		return nil, false
	}
	if m.bindBody && !vc.IsBodyValid(body) {
		m.log.InfoContext(ctx, "l402.check.body_mismatch")
		writeJSONError(w, http.StatusUnauthorized, "request body does not match credential")
		return nil, false
	}

	if m.ledger != nil {
		exp, _ := vc.Expiry()
		first, err := m.ledger.Redeem(ctx, vc.PaymentHash(), redemption.TTLUntil(now, exp))
		if err != nil {
			m.log.ErrorContext(ctx, "l402.redeem.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, "unable to record redemption")
			return nil, false
		}
		if !first {
			m.log.InfoContext(ctx, "l402.check.replayed")
			m.challenge(ctx, w, r, body, "credential already redeemed")
			return nil, false
		}
	}

	m.log.InfoContext(ctx, "l402.check.ok", slog.Duration("dur", time.Since(start)))
	return vc, true
}

// challenge answers 402 with a freshly minted invoice and signed token.
func (m *Middleware) challenge(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte, reason string) {
	invoice, err := m.invoices.CreateInvoice(ctx, r)
	if err != nil {
		m.log.ErrorContext(ctx, "l402.invoice.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "unable to create invoice")
		return
	}
	c, err := credential.FromInvoice(invoice)
	if err != nil {
		m.log.ErrorContext(ctx, "l402.invoice.decode.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "unable to create invoice")
		return
	}
	c = c.WithExpiryAt(m.clock.Now().Add(m.challengeTTL))
	if m.bindBody {
		c = c.BindBody(body)
	}
	token, err := credential.EncodeChallengeWithKeys(c, m.keys)
	if err != nil {
		m.log.ErrorContext(ctx, "l402.challenge.sign.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "unable to issue challenge")
		return
	}

	ctx = logctx.WithCredentialData(ctx, &logctx.CredentialData{PaymentHash: c.PaymentHash()})
	m.log.InfoContext(ctx, "l402.challenge.issued", slog.Bool("body_bound", m.bindBody))
	w.Header().Add(wwwAuthenticateHeader, buildChallenge(m.realm, token, invoice))
	writeJSONError(w, http.StatusPaymentRequired, reason)
}
