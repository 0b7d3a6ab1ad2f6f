package credential

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ggoodman/l402-go/bolt11"
)

// Credential captures the fields of one L402 credential. It is an immutable
// value: the With* and BindBody methods return modified copies and never
// touch the receiver.
//
// The zero value has no payment hash and cannot be encoded.
type Credential struct {
	paymentHash    string
	paymentRequest string
	preimage       string
	bodyHash       string
	expiresAt      int64 // unix seconds
	hasExpiry      bool
	token          string
}

// New returns a Credential for the given hex payment hash.
func New(paymentHash string) (Credential, error) {
	if paymentHash == "" {
		return Credential{}, fmt.Errorf("%w: payment hash", ErrMissingField)
	}
	return Credential{paymentHash: paymentHash}, nil
}

// FromInvoice decodes a bolt11 invoice and returns a Credential bound to its
// payment hash. The raw invoice is carried as the payment request.
func FromInvoice(invoice string) (Credential, error) {
	inv, err := bolt11.Decode(invoice)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrInvoiceDecoding, err)
	}
	hash, ok := inv.Section(bolt11.SectionPaymentHash)
	if !ok || hash == "" {
		return Credential{}, fmt.Errorf("%w: invoice has no payment hash", ErrInvoiceDecoding)
	}
	return Credential{paymentHash: hash, paymentRequest: invoice}, nil
}

// PaymentHash returns the hex payment hash.
func (c Credential) PaymentHash() string { return c.paymentHash }

// PaymentRequest returns the bolt11 invoice the credential was built from.
// It is absent on the verification path.
func (c Credential) PaymentRequest() (string, bool) {
	return c.paymentRequest, c.paymentRequest != ""
}

// Preimage returns the payment preimage presented by the client.
func (c Credential) Preimage() (string, bool) { return c.preimage, c.preimage != "" }

// BodyHash returns the bound request body hash, if any.
func (c Credential) BodyHash() (string, bool) { return c.bodyHash, c.bodyHash != "" }

// Expiry returns the expiry instant, if any.
func (c Credential) Expiry() (time.Time, bool) {
	if !c.hasExpiry {
		return time.Time{}, false
	}
	return time.Unix(c.expiresAt, 0), true
}

// Token returns the raw signed token the credential was parsed from.
func (c Credential) Token() (string, bool) { return c.token, c.token != "" }

// BindBody returns a copy bound to sha256(body). Any previous binding is
// replaced.
func (c Credential) BindBody(body []byte) Credential {
	c.bodyHash = HashHex(body)
	return c
}

// WithExpiry returns a copy that expires validFor from now. Negative
// durations are treated as zero.
func (c Credential) WithExpiry(validFor time.Duration) Credential {
	return c.withExpiryFrom(time.Now(), validFor)
}

// WithExpiryAt returns a copy that expires at t, truncated to whole seconds.
func (c Credential) WithExpiryAt(t time.Time) Credential {
	c.expiresAt = t.Unix()
	c.hasExpiry = true
	return c
}

func (c Credential) withExpiryFrom(now time.Time, validFor time.Duration) Credential {
	if validFor < 0 {
		validFor = 0
	}
	return c.WithExpiryAt(now.Add(validFor))
}

// WithPreimage returns a copy carrying the given hex preimage.
func (c Credential) WithPreimage(preimage string) Credential {
	c.preimage = preimage
	return c
}

// IsPaid reports whether sha256(preimage) equals the payment hash, comparing
// lowercase hex digests exactly. The preimage string itself is hashed.
//
// A Lightning node hashes the 32 raw preimage bytes instead, so a preimage
// that is valid hex also counts as paid when its decoded bytes hash to the
// payment hash. Missing fields mean not paid.
func (c Credential) IsPaid() bool {
	if c.paymentHash == "" || c.preimage == "" {
		return false
	}
	if hashEqual(HashHex([]byte(c.preimage)), c.paymentHash) {
		return true
	}
	raw, err := hex.DecodeString(c.preimage)
	if err != nil {
		return false
	}
	return hashEqual(HashHex(raw), c.paymentHash)
}

// IsExpired reports whether the credential is expired at the current time.
// A credential without an expiry is reported as expired.
func (c Credential) IsExpired() bool { return c.IsExpiredAt(time.Now()) }

// IsExpiredAt reports whether the credential is expired at now: true when no
// expiry is set or when now is at or past the expiry second.
func (c Credential) IsExpiredAt(now time.Time) bool {
	if !c.hasExpiry {
		return true
	}
	return now.Unix() >= c.expiresAt
}

// IsBodyValid reports whether body satisfies the credential's body binding.
// An unbound credential accepts any body.
func (c Credential) IsBodyValid(body []byte) bool {
	if c.bodyHash == "" {
		return true
	}
	return hashEqual(HashHex(body), c.bodyHash)
}
