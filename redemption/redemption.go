// Package redemption defines the replay ledger used to make L402 credentials
// single-use. A valid credential is otherwise reusable for as long as its
// token has not expired; servers that sell one response per payment record
// each payment hash in a Ledger and refuse credentials already redeemed.
//
// Backends live in sibling packages: memoryledger for a single process and
// redisledger for deployments that run several replicas behind one paywall.
// ledgertest holds the conformance suite every backend passes.
package redemption

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Redeem once the ledger has been closed.
var ErrClosed = errors.New("redemption: ledger closed")

// Ledger records redeemed payment hashes.
type Ledger interface {
	// Redeem atomically marks paymentHash as redeemed. It returns true when
	// this call performed the redemption and false when the hash had already
	// been redeemed and the record has not lapsed. A ttl <= 0 keeps the record
	// for as long as the backend retains it.
	//
	// Errors are reserved for backend failures; callers must not treat an
	// error as either outcome.
	Redeem(ctx context.Context, paymentHash string, ttl time.Duration) (bool, error)

	// Close releases the ledger's resources.
	Close() error
}

// TTLUntil returns the record lifetime for a credential that stops being
// accepted at expiresAt. The record must outlive the credential, so a small
// margin is added; an expiry already in the past yields the margin alone.
func TTLUntil(now, expiresAt time.Time) time.Duration {
	const margin = time.Minute
	d := expiresAt.Sub(now)
	if d < 0 {
		d = 0
	}
	return d + margin
}
