package credential

import "errors"

var (
	// ErrMissingField indicates a required field (the payment hash) is absent
	// when an operation needs it.
	ErrMissingField = errors.New("credential: missing required field")

	// ErrMalformedHeader indicates the proof header does not have the
	// "<scheme> <token>:<preimage>" shape.
	ErrMalformedHeader = errors.New("credential: malformed authorization header")

	// ErrDecoding indicates the token payload could not be decoded or lacks a
	// payment hash.
	ErrDecoding = errors.New("credential: token decoding failed")

	// ErrInvalidSignature indicates the token signature does not verify
	// against the configured secret.
	ErrInvalidSignature = errors.New("credential: invalid token signature")

	// ErrInvoiceDecoding indicates the bolt11 invoice could not be decoded or
	// has no payment hash.
	ErrInvoiceDecoding = errors.New("credential: invoice decoding failed")

	// ErrSigning indicates the challenge token could not be signed.
	ErrSigning = errors.New("credential: token signing failed")

	// ErrUnknownKey indicates no verification key exists for a token's key id.
	ErrUnknownKey = errors.New("credential: unknown signing key")
)
