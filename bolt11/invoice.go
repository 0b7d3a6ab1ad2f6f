package bolt11

import (
	"errors"
	"time"
)

// Section names used in Invoice.Sections.
const (
	SectionCoinNetwork        = "coin_network"
	SectionAmount             = "amount"
	SectionTimestamp          = "timestamp"
	SectionPaymentHash        = "payment_hash"
	SectionPaymentSecret      = "payment_secret"
	SectionDescription        = "description"
	SectionDescriptionHash    = "description_hash"
	SectionExpiry             = "expiry"
	SectionMinFinalCLTVExpiry = "min_final_cltv_expiry"
	SectionPayee              = "payee"
	SectionFallbackAddress    = "fallback_address"
	SectionRouteHint          = "route_hint"
	SectionFeatureBits        = "feature_bits"
	SectionMetadata           = "metadata"
	SectionSignature          = "signature"
)

const (
	// DefaultExpiry applies when an invoice has no "x" field.
	DefaultExpiry = time.Hour
	// DefaultMinFinalCLTVExpiry applies when an invoice has no "c" field.
	DefaultMinFinalCLTVExpiry = 18
)

var (
	ErrInvalidInvoice     = errors.New("bolt11: invalid invoice")
	ErrInvalidSignature   = errors.New("bolt11: invalid signature")
	ErrMissingPaymentHash = errors.New("bolt11: missing payment hash")
)

// Network prefixes as they appear after "ln" in the human readable part.
const (
	NetworkMainnet = "bc"
	NetworkTestnet = "tb"
	NetworkSignet  = "tbs"
	NetworkRegtest = "bcrt"
	NetworkSimnet  = "sb"
)

// Section is one decoded element of an invoice. Hashes and keys are lowercase
// hex; integers are decimal.
type Section struct {
	Name  string
	Value string
}

// Invoice is a decoded payment request.
type Invoice struct {
	Network string
	// AmountMsat is the requested amount in millisatoshis; 0 means the payer
	// chooses.
	AmountMsat         uint64
	Timestamp          time.Time
	PaymentHash        string
	PaymentSecret      string
	Description        string
	DescriptionHash    string
	Expiry             time.Duration
	MinFinalCLTVExpiry uint64
	// Payee is the compressed hex public key of the node that signed the
	// invoice.
	Payee string

	Sections []Section
}

// Section returns the value of the first section named name.
func (inv *Invoice) Section(name string) (string, bool) {
	for _, s := range inv.Sections {
		if s.Name == name {
			return s.Value, true
		}
	}
	return "", false
}

// ExpiresAt is the instant after which the invoice should no longer be paid.
func (inv *Invoice) ExpiresAt() time.Time {
	exp := inv.Expiry
	if exp == 0 {
		exp = DefaultExpiry
	}
	return inv.Timestamp.Add(exp)
}

// IsExpiredAt reports whether the invoice has expired at now.
func (inv *Invoice) IsExpiredAt(now time.Time) bool {
	return !now.Before(inv.ExpiresAt())
}
