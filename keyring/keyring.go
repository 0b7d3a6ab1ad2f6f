// Package keyring provides read-only, concurrency-safe sources of the HMAC
// secrets used to sign and verify L402 challenge tokens.
//
// A Ring is loaded from a JSON Web Key Set containing symmetric ("oct") keys.
// The first key in the set signs new tokens; every key in the set verifies
// tokens by key id, which allows rotation without invalidating outstanding
// challenges:
//
//	{"keys":[
//	  {"kty":"oct","kid":"2024-06","k":"…base64url…"},
//	  {"kty":"oct","kid":"2024-05","k":"…base64url…"}
//	]}
//
// Watch keeps a Ring in sync with its file using fsnotify.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/ggoodman/l402-go/credential"
)

// MinSecretLen is the minimum accepted secret length in bytes.
const MinSecretLen = 32

var ErrNoKeys = errors.New("keyring: no usable keys")

type snapshot struct {
	signingKID string
	keys       map[string][]byte
}

// Ring is a rotating set of HMAC secrets. The zero value is not usable; use
// Parse, LoadFile or Watch.
type Ring struct {
	cur atomic.Pointer[snapshot]
}

var _ credential.Keys = (*Ring)(nil)

// Parse builds a Ring from JWK Set JSON.
func Parse(b []byte) (*Ring, error) {
	snap, err := parseSet(b)
	if err != nil {
		return nil, err
	}
	r := &Ring{}
	r.cur.Store(snap)
	return r, nil
}

// LoadFile reads a JWK Set from path.
func LoadFile(path string) (*Ring, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: read %s: %w", path, err)
	}
	return Parse(b)
}

// SigningKey implements credential.Keys.
func (r *Ring) SigningKey() (string, []byte, error) {
	s := r.cur.Load()
	if s == nil {
		return "", nil, ErrNoKeys
	}
	return s.signingKID, s.keys[s.signingKID], nil
}

// VerificationKey implements credential.Keys. An empty kid resolves to the
// signing key.
func (r *Ring) VerificationKey(kid string) ([]byte, error) {
	s := r.cur.Load()
	if s == nil {
		return nil, ErrNoKeys
	}
	if kid == "" {
		kid = s.signingKID
	}
	k, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", credential.ErrUnknownKey, kid)
	}
	return k, nil
}

// KeyIDs returns the key ids in the current snapshot, signing key first.
func (r *Ring) KeyIDs() []string {
	s := r.cur.Load()
	if s == nil {
		return nil
	}
	ids := []string{s.signingKID}
	for kid := range s.keys {
		if kid != s.signingKID {
			ids = append(ids, kid)
		}
	}
	return ids
}

func (r *Ring) replace(b []byte) error {
	snap, err := parseSet(b)
	if err != nil {
		return err
	}
	r.cur.Store(snap)
	return nil
}

func parseSet(b []byte) (*snapshot, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("keyring: parse jwk set: %w", err)
	}
	snap := &snapshot{keys: make(map[string][]byte, len(set.Keys))}
	for i, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if k.Algorithm != "" && k.Algorithm != "HS256" {
			continue
		}
		secret, ok := k.Key.([]byte)
		if !ok {
			continue
		}
		if len(secret) < MinSecretLen {
			return nil, fmt.Errorf("keyring: key %d (%q) shorter than %d bytes", i, k.KeyID, MinSecretLen)
		}
		if k.KeyID == "" {
			return nil, fmt.Errorf("keyring: key %d has no kid", i)
		}
		if _, dup := snap.keys[k.KeyID]; dup {
			return nil, fmt.Errorf("keyring: duplicate kid %q", k.KeyID)
		}
		if snap.signingKID == "" {
			snap.signingKID = k.KeyID
		}
		snap.keys[k.KeyID] = append([]byte(nil), secret...)
	}
	if snap.signingKID == "" {
		return nil, ErrNoKeys
	}
	return snap, nil
}
