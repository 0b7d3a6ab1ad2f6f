// Package l402test provides test tooling for L402 servers and clients.
//
// Node is an in-memory stand-in for a Lightning node: it mints real, signed
// bolt11 invoices backed by random preimages and "pays" its own invoices by
// revealing the preimage. It satisfies both sides of the scheme, so one Node
// can back a paywall's invoice provider and the client that pays it.
//
//	node, _ := l402test.NewNode(l402test.WithAmount(1_000))
//	mw, _ := l402http.New(credential.StaticKey(secret), node)
//	client := &http.Client{Transport: &l402http.Transport{Payer: node}}
package l402test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/ggoodman/l402-go/bolt11"
	"github.com/ggoodman/l402-go/credential"
)

var (
	ErrUnknownInvoice = errors.New("l402test: invoice not issued by this node")
	ErrInvoiceExpired = errors.New("l402test: invoice expired")
)

// Node is a fake Lightning node. It is safe for concurrent use.
type Node struct {
	key        *btcec.PrivateKey
	pubKey     string
	network    string
	amountMsat uint64
	expiry     time.Duration
	clock      clock.Clock

	mu       sync.Mutex
	invoices map[string]*issued // payment hash -> invoice state
}

type issued struct {
	preimage  []byte
	expiresAt time.Time
	paid      int
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithNetwork sets the bolt11 network prefix (bolt11.NetworkRegtest by default).
func WithNetwork(network string) NodeOption { return func(n *Node) { n.network = network } }

// WithAmount sets the amount in millisatoshis requested by CreateInvoice.
func WithAmount(msat uint64) NodeOption { return func(n *Node) { n.amountMsat = msat } }

// WithInvoiceExpiry sets the validity of minted invoices.
func WithInvoiceExpiry(d time.Duration) NodeOption { return func(n *Node) { n.expiry = d } }

// WithClock substitutes the time source used for invoice timestamps and
// expiry checks.
func WithClock(c clock.Clock) NodeOption { return func(n *Node) { n.clock = c } }

// NewNode creates a node with a fresh secp256k1 identity.
func NewNode(opts ...NodeOption) (*Node, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("l402test: generate node key: %w", err)
	}
	n := &Node{
		key:        key,
		pubKey:     hex.EncodeToString(key.PubKey().SerializeCompressed()),
		network:    bolt11.NetworkRegtest,
		amountMsat: 1_000,
		expiry:     bolt11.DefaultExpiry,
		clock:      clock.New(),
		invoices:   make(map[string]*issued),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// PubKey returns the node's compressed public key in hex.
func (n *Node) PubKey() string { return n.pubKey }

// CreateInvoice mints an invoice for the node's configured amount. It has the
// shape of an HTTP invoice provider; the description names the request.
func (n *Node) CreateInvoice(ctx context.Context, r *http.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return n.NewInvoice(n.amountMsat, r.Method+" "+r.URL.Path)
}

// NewInvoice mints a signed invoice for amountMsat backed by a random preimage.
func (n *Node) NewInvoice(amountMsat uint64, description string) (string, error) {
	preimage := make([]byte, 32)
	secret := make([]byte, 32)
	if _, err := rand.Read(preimage); err != nil {
		return "", fmt.Errorf("l402test: preimage: %w", err)
	}
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("l402test: payment secret: %w", err)
	}
	now := n.clock.Now()
	hash := credential.HashHex(preimage)

	inv, err := bolt11.Encode(&bolt11.Invoice{
		Network:       n.network,
		AmountMsat:    amountMsat,
		Timestamp:     now,
		PaymentHash:   hash,
		PaymentSecret: hex.EncodeToString(secret),
		Description:   description,
		Expiry:        n.expiry,
	}, n.key)
	if err != nil {
		return "", fmt.Errorf("l402test: encode invoice: %w", err)
	}

	n.mu.Lock()
	n.invoices[hash] = &issued{preimage: preimage, expiresAt: now.Add(n.expiry)}
	n.mu.Unlock()
	return inv, nil
}

// Pay settles an invoice minted by this node and returns its hex preimage.
// Paying the same invoice again returns the same preimage.
func (n *Node) Pay(ctx context.Context, invoice string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	inv, err := bolt11.Decode(invoice)
	if err != nil {
		return "", err
	}
	if inv.Payee != n.pubKey {
		return "", fmt.Errorf("%w: payee %s", ErrUnknownInvoice, inv.Payee)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.invoices[inv.PaymentHash]
	if !ok {
		return "", ErrUnknownInvoice
	}
	if !n.clock.Now().Before(st.expiresAt) {
		return "", ErrInvoiceExpired
	}
	st.paid++
	return hex.EncodeToString(st.preimage), nil
}

// Payments reports how many times the invoice with paymentHash was paid.
func (n *Node) Payments(paymentHash string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if st, ok := n.invoices[paymentHash]; ok {
		return st.paid
	}
	return 0
}

// Issued reports how many invoices the node has minted.
func (n *Node) Issued() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.invoices)
}
