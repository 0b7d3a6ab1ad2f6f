package credential

import "time"

// VerifiedCredential is a Credential whose token signature has been checked.
// It can only be obtained from VerifyProofHeader or VerifyProofHeaderWithKeys.
//
// Verification establishes that the server issued the token. It says nothing
// about payment, expiry or body binding; callers still consult IsPaid,
// IsExpired and IsBodyValid.
type VerifiedCredential struct {
	c Credential
}

// Credential returns a copy of the underlying credential value.
func (v *VerifiedCredential) Credential() Credential { return v.c }

// PaymentHash returns the hex payment hash from the verified token.
func (v *VerifiedCredential) PaymentHash() string { return v.c.PaymentHash() }

// Preimage returns the preimage presented with the token. It is not covered
// by the signature.
func (v *VerifiedCredential) Preimage() (string, bool) { return v.c.Preimage() }

// BodyHash returns the body hash the token was bound to, if any.
func (v *VerifiedCredential) BodyHash() (string, bool) { return v.c.BodyHash() }

// Expiry returns the token's expiry, if any.
func (v *VerifiedCredential) Expiry() (time.Time, bool) { return v.c.Expiry() }

// Token returns the raw verified token.
func (v *VerifiedCredential) Token() (string, bool) { return v.c.Token() }

// IsPaid reports whether the preimage settles the payment hash.
func (v *VerifiedCredential) IsPaid() bool { return v.c.IsPaid() }

// IsExpired reports whether the token is expired at the current time.
func (v *VerifiedCredential) IsExpired() bool { return v.c.IsExpired() }

// IsExpiredAt reports whether the token is expired at now.
func (v *VerifiedCredential) IsExpiredAt(now time.Time) bool { return v.c.IsExpiredAt(now) }

// IsBodyValid reports whether body satisfies the token's body binding.
func (v *VerifiedCredential) IsBodyValid(body []byte) bool { return v.c.IsBodyValid(body) }
