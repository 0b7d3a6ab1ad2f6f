package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingMethod is the only algorithm challenge tokens are issued or
// accepted with.
var signingMethod = jwt.SigningMethodHS256

// challengeClaims is the JSON payload of a challenge token. Optional fields are
// omitted rather than encoded as null.
type challengeClaims struct {
	PaymentHash string `json:"paymentHash"`
	BodyHash    string `json:"bodyHash,omitempty"`
	Expiry      *int64 `json:"expiresAt,omitempty"`
	jwt.RegisteredClaims
}

func newParser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithStrictDecoding(),
	)
}

// EncodeChallenge signs c into a compact challenge token using secret.
func EncodeChallenge(c Credential, secret []byte) (string, error) {
	return EncodeChallengeWithKeys(c, StaticKey(secret))
}

// EncodeChallengeWithKeys signs c with the current signing key of keys. The
// key id, when non-empty, is carried in the token's "kid" header.
func EncodeChallengeWithKeys(c Credential, keys Keys) (string, error) {
	if c.paymentHash == "" {
		return "", fmt.Errorf("%w: payment hash is required to sign a challenge", ErrMissingField)
	}
	kid, secret, err := keys.SigningKey()
	if err != nil {
		if errors.Is(err, ErrSigning) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: empty secret", ErrSigning)
	}

	claims := challengeClaims{
		PaymentHash: c.paymentHash,
		BodyHash:    c.bodyHash,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if c.hasExpiry {
		exp := c.expiresAt
		claims.Expiry = &exp
	}
	tok := jwt.NewWithClaims(signingMethod, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return s, nil
}

// ParseChallenge decodes a challenge token WITHOUT verifying its signature.
// The result carries the token's payment hash and optional body hash and
// expiry; it must not be used to authorize a request.
func ParseChallenge(token string) (Credential, error) {
	var claims challengeClaims
	if _, _, err := newParser().ParseUnverified(token, &claims); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return credentialFromClaims(token, claims)
}

// ParseProofHeader parses "<scheme> <token>:<preimage>" WITHOUT verifying the
// token signature. Only the text after the last space is considered, and only
// its first two ':' separated parts.
func ParseProofHeader(header string) (Credential, error) {
	token, preimage, err := splitProofHeader(header)
	if err != nil {
		return Credential{}, err
	}
	c, err := ParseChallenge(token)
	if err != nil {
		return Credential{}, err
	}
	return c.WithPreimage(preimage), nil
}

// VerifyProofHeader parses an authorization header and verifies the token
// signature against secret before any payload field is trusted.
func VerifyProofHeader(header string, secret []byte) (*VerifiedCredential, error) {
	return VerifyProofHeaderWithKeys(header, StaticKey(secret))
}

// VerifyProofHeaderWithKeys is VerifyProofHeader with key selection by the
// token's "kid" header.
//
// The signature is checked over the raw signing input before the payload is
// decoded, so a token altered in any segment fails with ErrInvalidSignature.
func VerifyProofHeaderWithKeys(header string, keys Keys) (*VerifiedCredential, error) {
	token, preimage, err := splitProofHeader(header)
	if err != nil {
		return nil, err
	}

	parser := newParser()
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return nil, fmt.Errorf("%w: token must have three segments", ErrDecoding)
	}

	key, err := keys.VerificationKey(unverifiedKeyID(parser, segs[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	sig, err := parser.DecodeSegment(segs[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding: %v", ErrInvalidSignature, err)
	}
	if err := signingMethod.Verify(segs[0]+"."+segs[1], sig, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var claims challengeClaims
	_, err = parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	c, err := credentialFromClaims(token, claims)
	if err != nil {
		return nil, err
	}
	return &VerifiedCredential{c: c.WithPreimage(preimage)}, nil
}

// IsValidProofHeader reports whether header carries a well-formed token whose
// signature verifies against secret. It says nothing about payment or expiry;
// use VerifyProofHeader to authorize.
func IsValidProofHeader(header string, secret []byte) bool {
	_, err := VerifyProofHeader(header, secret)
	return err == nil
}

func credentialFromClaims(token string, claims challengeClaims) (Credential, error) {
	if claims.PaymentHash == "" {
		return Credential{}, fmt.Errorf("%w: payload lacks paymentHash", ErrDecoding)
	}
	c := Credential{
		paymentHash: claims.PaymentHash,
		bodyHash:    claims.BodyHash,
		token:       token,
	}
	if claims.Expiry != nil {
		c.expiresAt, c.hasExpiry = *claims.Expiry, true
	}
	return c, nil
}

// unverifiedKeyID reads "kid" from a header segment that has not been
// authenticated yet. It is only used to pick a key; failures yield "".
func unverifiedKeyID(p *jwt.Parser, seg string) string {
	raw, err := p.DecodeSegment(seg)
	if err != nil {
		return ""
	}
	var hdr struct {
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return ""
	}
	return hdr.Kid
}

func splitProofHeader(header string) (token, preimage string, err error) {
	if strings.TrimSpace(header) == "" {
		return "", "", fmt.Errorf("%w: empty header", ErrMalformedHeader)
	}
	last := header
	if i := strings.LastIndexByte(header, ' '); i >= 0 {
		last = header[i+1:]
	}
	token, preimage, ok := strings.Cut(last, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: expected <token>:<preimage>", ErrMalformedHeader)
	}
	// anything after a second ':' is ignored
	preimage, _, _ = strings.Cut(preimage, ":")
	if token == "" || preimage == "" {
		return "", "", fmt.Errorf("%w: token and preimage must be non-empty", ErrMalformedHeader)
	}
	return token, preimage, nil
}
