// Package credential implements the credential core of the L402 scheme: a
// server issues a signed challenge token bound to the payment hash of a
// Lightning invoice, and a client that paid the invoice presents the token
// together with the payment preimage as proof of payment.
//
// The package is stateless. A Credential is an immutable value that lives for
// the duration of one request. Predicates (IsPaid, IsExpired, IsBodyValid) are
// pure functions over its fields.
//
// # Issuing a challenge
//
//	cred, err := credential.FromInvoice(invoice)
//	if err != nil { /* invoice could not be decoded */ }
//	cred = cred.WithExpiry(time.Hour).BindBody(body)
//	tok, err := credential.EncodeChallenge(cred, secret)
//	w.Header().Set("WWW-Authenticate", credential.ChallengeHeader(tok, invoice))
//
// # Verifying a proof
//
// Only VerifyProofHeader (or VerifyProofHeaderWithKeys) yields a
// VerifiedCredential. ParseChallenge and ParseProofHeader decode without
// checking the signature and their results must never be used to authorize a
// request.
//
//	vc, err := credential.VerifyProofHeader(r.Header.Get("Authorization"), secret)
//	switch {
//	case errors.Is(err, credential.ErrMalformedHeader), errors.Is(err, credential.ErrDecoding):
//	    // 400
//	case errors.Is(err, credential.ErrInvalidSignature):
//	    // 401
//	}
//	if !vc.IsPaid() || vc.IsExpired() { /* 402 with a fresh challenge */ }
package credential
