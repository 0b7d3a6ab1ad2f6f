package credential

import "fmt"

// Keys supplies HMAC secrets for signing and verifying challenge tokens.
// Implementations must be safe for concurrent use and treat key material as
// read-only.
type Keys interface {
	// SigningKey returns the key id and secret used to sign new tokens. The
	// key id may be empty.
	SigningKey() (kid string, secret []byte, err error)
	// VerificationKey returns the secret for kid. kid is taken from the
	// unverified token header and may be empty.
	VerificationKey(kid string) ([]byte, error)
}

type staticKey []byte

// StaticKey returns Keys backed by one secret. Tokens carry no key id and any
// key id presented at verification resolves to the same secret.
func StaticKey(secret []byte) Keys {
	return staticKey(append([]byte(nil), secret...))
}

func (s staticKey) SigningKey() (string, []byte, error) {
	if len(s) == 0 {
		return "", nil, fmt.Errorf("%w: empty secret", ErrSigning)
	}
	return "", []byte(s), nil
}

func (s staticKey) VerificationKey(string) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrUnknownKey)
	}
	return []byte(s), nil
}
